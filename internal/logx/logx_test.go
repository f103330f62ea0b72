package logx

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"pkt.systems/pslog"
)

func newCapture() (*logCapture, pslog.Logger) {
	capture := &logCapture{}
	logger := pslog.NewWithOptions(capture, pslog.Options{
		Mode:          pslog.ModeStructured,
		NoColor:       true,
		MinLevel:      pslog.InfoLevel,
		VerboseFields: true,
	})
	return capture, logger
}

func TestWithScreenAddsField(t *testing.T) {
	capture, logger := newCapture()
	ctx := pslog.ContextWithLogger(context.Background(), logger)
	WithScreen(ctx, "music").Info("hello")

	entry := capture.firstEntry(t)
	if entry["screen"] != "music" {
		t.Fatalf("expected screen field, got %+v", entry)
	}
}

func TestWithScreenSkipsDuplicate(t *testing.T) {
	capture, logger := newCapture()
	ctx := ContextWithScreenLogger(context.Background(), logger.With("screen", "music"), "music")
	WithScreen(ctx, "music").Info("hello")

	line := capture.buf.String()
	if n := bytes.Count([]byte(line), []byte(`"screen"`)); n != 1 {
		t.Fatalf("expected one screen field, got %d in %s", n, line)
	}
}

func TestWithSessionAddsFields(t *testing.T) {
	capture, logger := newCapture()
	ctx := pslog.ContextWithLogger(context.Background(), logger)
	WithSession(ctx, "s1", "alice").Info("hello")

	entry := capture.firstEntry(t)
	if entry["session"] != "s1" {
		t.Fatalf("expected session field, got %+v", entry)
	}
	if entry["user"] != "alice" {
		t.Fatalf("expected user field, got %+v", entry)
	}
}

type logCapture struct {
	buf bytes.Buffer
}

func (c *logCapture) Write(p []byte) (int, error) {
	return c.buf.Write(p)
}

func (c *logCapture) firstEntry(t *testing.T) map[string]any {
	t.Helper()
	data := c.buf.Bytes()
	idx := bytes.IndexByte(data, '\n')
	if idx == -1 {
		idx = len(data)
	}
	line := bytes.TrimSpace(data[:idx])
	entry := map[string]any{}
	if err := json.Unmarshal(line, &entry); err != nil {
		t.Fatalf("parse log entry: %v", err)
	}
	return entry
}

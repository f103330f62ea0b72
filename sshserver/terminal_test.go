package sshserver

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"pkt.systems/marquee/internal/eventbus"
	"pkt.systems/marquee/schema"
)

type recordingController struct {
	mu      sync.Mutex
	calls   []string
	invoked []int
	menu    int
}

func (c *recordingController) Next() {
	c.mu.Lock()
	c.calls = append(c.calls, "next")
	c.mu.Unlock()
}

func (c *recordingController) Prev() {
	c.mu.Lock()
	c.calls = append(c.calls, "prev")
	c.mu.Unlock()
}

func (c *recordingController) InvokeTrayItem(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index >= c.menu {
		return schema.ErrMenuItemNotFound
	}
	c.invoked = append(c.invoked, index)
	return nil
}

func TestTerminalKeysDriveController(t *testing.T) {
	ctrl := &recordingController{menu: 1}
	rw := &lockedRW{r: strings.NewReader("\x1b[C\x1b[D\t1q")}
	session := newTerminalSession(rw, ctrl, nil, "amber", nil)
	session.SetSize(80, 24)
	if err := session.Run(context.Background(), sampleEvent(), nil); err != nil {
		t.Fatalf("run: %v", err)
	}
	if strings.Join(ctrl.calls, ",") != "next,prev,next" {
		t.Fatalf("unexpected rotation calls %v", ctrl.calls)
	}
	if len(ctrl.invoked) != 1 || ctrl.invoked[0] != 0 {
		t.Fatalf("unexpected tray invocations %v", ctrl.invoked)
	}
	if !strings.Contains(stripANSI(rw.String()), "Music: Logged Out") {
		t.Fatalf("expected display content in output")
	}
}

func TestTerminalUnknownMenuItemShowsNotice(t *testing.T) {
	ctrl := &recordingController{}
	session := newTerminalSession(&lockedRW{r: strings.NewReader("")}, ctrl, nil, "", nil)
	session.last = sampleEvent()
	if session.handleKey(key{kind: keyRune, r: '3'}) {
		t.Fatalf("digit must not end the session")
	}
	if session.notice != "no menu item 3" {
		t.Fatalf("unexpected notice %q", session.notice)
	}
	session.handleKey(key{kind: keyCtrlL})
	if session.notice != "" {
		t.Fatalf("expected ctrl-l to clear the notice")
	}
}

func TestTerminalRedrawsOnEvent(t *testing.T) {
	reader, writer := io.Pipe()
	defer writer.Close()
	rw := &lockedRW{r: reader}
	events := make(chan eventbus.Event, 1)
	session := newTerminalSession(rw, &recordingController{}, events, "", nil)
	session.SetSize(80, 24)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- session.Run(ctx, eventbus.Event{}, nil) }()

	ev := sampleEvent()
	ev.Frame = []string{"CPU              42%"}
	events <- ev
	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(stripANSI(rw.String()), "CPU              42%") {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for redraw")
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestTerminalIdleTimeout(t *testing.T) {
	reader, writer := io.Pipe()
	defer writer.Close()
	session := newTerminalSession(&lockedRW{r: reader}, &recordingController{}, nil, "", nil)
	session.idle = 20 * time.Millisecond
	err := session.Run(context.Background(), eventbus.Event{}, nil)
	if !errors.Is(err, errIdle) {
		t.Fatalf("expected idle timeout, got %v", err)
	}
}

type lockedRW struct {
	r   io.Reader
	mu  sync.Mutex
	buf bytes.Buffer
}

func (l *lockedRW) Read(p []byte) (int, error) {
	return l.r.Read(p)
}

func (l *lockedRW) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.Write(p)
}

func (l *lockedRW) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.String()
}

package popup

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"pkt.systems/marquee/internal/music"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func freeRedirect(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()
	return fmt.Sprintf("http://%s/callback", addr)
}

func TestLoopbackDeliversCallbackOnce(t *testing.T) {
	redirect := freeRedirect(t)
	out := &syncBuffer{}
	browser, err := NewLoopback(LoopbackConfig{RedirectURI: redirect, Out: out})
	if err != nil {
		t.Fatalf("new loopback: %v", err)
	}
	popup, err := browser.Open(context.Background(), music.PopupOptions{Title: "Log in"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	closed := make(chan struct{})
	popup.OnClosed(func() { close(closed) })

	got := make(chan string, 2)
	if err := popup.Intercept(redirect+"*", func(u string) { got <- u }); err != nil {
		t.Fatalf("intercept: %v", err)
	}
	if err := popup.Navigate(context.Background(), "https://accounts.example/authorize?x=1"); err != nil {
		t.Fatalf("navigate: %v", err)
	}
	if !strings.Contains(out.String(), "https://accounts.example/authorize?x=1") {
		t.Fatalf("expected login url in output, got %q", out.String())
	}

	resp, err := http.Get(redirect + "?code=abc&state=s")
	if err != nil {
		t.Fatalf("get callback: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "close this window") {
		t.Fatalf("unexpected callback response %d %q", resp.StatusCode, body)
	}
	select {
	case u := <-got:
		if !strings.HasSuffix(u, "/callback?code=abc&state=s") {
			t.Fatalf("unexpected callback url %q", u)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("expected callback")
	}

	resp, err = http.Get(redirect + "?code=again")
	if err != nil {
		t.Fatalf("get second callback: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected second callback to be rejected, got %d", resp.StatusCode)
	}

	if err := popup.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := popup.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected closed callback")
	}
}

func TestLoopbackRejectsHTTPS(t *testing.T) {
	if _, err := NewLoopback(LoopbackConfig{RedirectURI: "https://localhost/cb"}); err == nil {
		t.Fatalf("expected error for https redirect")
	}
}

func TestListenAddrDefaultsPort(t *testing.T) {
	addr, err := listenAddr("http://localhost/spotifyCallback")
	if err != nil {
		t.Fatalf("listen addr: %v", err)
	}
	if addr != "localhost:80" {
		t.Fatalf("expected localhost:80, got %q", addr)
	}
}

package popup

import (
	"sync/atomic"
	"testing"
)

func TestMatch(t *testing.T) {
	cases := []struct {
		pattern string
		url     string
		want    bool
	}{
		{pattern: "http://localhost/cb*", url: "http://localhost/cb?code=1", want: true},
		{pattern: "http://localhost/cb*", url: "http://localhost/cb", want: true},
		{pattern: "http://localhost/cb*", url: "http://localhost/other", want: false},
		{pattern: "http://localhost/cb", url: "http://localhost/cb", want: true},
		{pattern: "http://localhost/cb", url: "http://localhost/cb?x", want: false},
	}
	for _, tc := range cases {
		if got := Match(tc.pattern, tc.url); got != tc.want {
			t.Fatalf("Match(%q, %q): expected %v, got %v", tc.pattern, tc.url, tc.want, got)
		}
	}
}

func TestLifecycleRunsCallbacksOnce(t *testing.T) {
	var l lifecycle
	var calls atomic.Int32
	l.OnClosed(func() { calls.Add(1) })
	if !l.markClosed() {
		t.Fatalf("expected first close to report true")
	}
	if l.markClosed() {
		t.Fatalf("expected second close to report false")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one callback, got %d", calls.Load())
	}
	if !l.isClosed() {
		t.Fatalf("expected closed")
	}
}

func TestOneShotTakesOnce(t *testing.T) {
	var o oneShot
	o.set("http://x/cb*", func(string) {})
	if o.take("http://x/other") != nil {
		t.Fatalf("expected no match")
	}
	if o.take("http://x/cb?code=1") == nil {
		t.Fatalf("expected match")
	}
	if o.take("http://x/cb?code=2") != nil {
		t.Fatalf("expected callback to be consumed")
	}
}

func TestFindChromeExplicitMissing(t *testing.T) {
	if _, err := FindChrome("/nonexistent/marquee-chrome"); err == nil {
		t.Fatalf("expected error for missing binary")
	}
}

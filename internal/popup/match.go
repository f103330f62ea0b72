// Package popup implements the login windows used by the music screen.
package popup

import (
	"strings"
	"sync"
)

// Match reports whether url matches pattern. A trailing '*' in pattern
// matches any suffix; otherwise the match is exact.
func Match(pattern, url string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(url, prefix)
	}
	return url == pattern
}

// lifecycle tracks whether a popup is gone and runs its close callbacks
// exactly once.
type lifecycle struct {
	mu       sync.Mutex
	closed   bool
	onClosed []func()
}

func (l *lifecycle) OnClosed(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		go fn()
		return
	}
	l.onClosed = append(l.onClosed, fn)
	l.mu.Unlock()
}

func (l *lifecycle) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// markClosed flips the popup to closed and runs the callbacks. It reports
// false when the popup was already closed.
func (l *lifecycle) markClosed() bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.closed = true
	fns := l.onClosed
	l.onClosed = nil
	l.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
	return true
}

// oneShot hands out a match callback at most once.
type oneShot struct {
	mu      sync.Mutex
	pattern string
	fn      func(string)
}

func (o *oneShot) set(pattern string, fn func(string)) {
	o.mu.Lock()
	o.pattern = pattern
	o.fn = fn
	o.mu.Unlock()
}

// take returns the callback when url matches, and clears it.
func (o *oneShot) take(url string) func(string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fn == nil || !Match(o.pattern, url) {
		return nil
	}
	fn := o.fn
	o.fn = nil
	return fn
}

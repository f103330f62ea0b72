package core

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"pkt.systems/marquee/schema"
	"pkt.systems/pslog"
)

// UpdateFunc fetches fresh data for a looping screen. The context is bounded
// by the display poll timeout.
type UpdateFunc func(ctx context.Context)

// Looper implements the shared mechanics of a polling screen: the poll loop,
// horizontal scrolling, progress bars and the owner hooks. Concrete screens
// supply an update function that fetches data and a redraw function that
// turns their state into lines with SetLines.
type Looper struct {
	name     schema.ScreenName
	hooks    Hooks
	height   int
	width    int
	interval time.Duration
	timeout  time.Duration
	update   UpdateFunc
	redraw   func()
	log      pslog.Logger

	inFlight atomic.Bool
	polls    sync.WaitGroup

	mu    sync.Mutex
	tick  int
	lines []string
	menu  []schema.MenuItem
}

// NewLooper returns a looper for the named screen. Invalid display settings
// fall back to the defaults.
func NewLooper(name schema.ScreenName, args Args, hooks Hooks, update UpdateFunc, redraw func()) *Looper {
	display, err := schema.NormalizeDisplayConfig(args.Display)
	if err != nil {
		display, _ = schema.NormalizeDisplayConfig(schema.DisplayConfig{})
	}
	return &Looper{
		name:     name,
		hooks:    hooks,
		height:   display.Height,
		width:    display.Width,
		interval: display.PollInterval,
		timeout:  display.PollTimeout,
		update:   update,
		redraw:   redraw,
		log:      args.logger().With("screen", string(name)),
	}
}

// Name returns the screen name.
func (l *Looper) Name() schema.ScreenName {
	return l.name
}

// Width returns the display width in runes.
func (l *Looper) Width() int {
	return l.width
}

// Height returns the display height in rows.
func (l *Looper) Height() int {
	return l.height
}

// Logger returns the screen-scoped logger.
func (l *Looper) Logger() pslog.Logger {
	return l.log
}

// Render returns a copy of the last lines set by the screen.
func (l *Looper) Render() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lines...)
}

// Lines is an alias for Render used by screens that keep their last output.
func (l *Looper) Lines() []string {
	return l.Render()
}

// TrayMenu returns a copy of the screen's tray contribution.
func (l *Looper) TrayMenu() []schema.MenuItem {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]schema.MenuItem(nil), l.menu...)
}

// SetLines stores new display lines and notifies the owner.
func (l *Looper) SetLines(lines []string) {
	l.mu.Lock()
	l.lines = append([]string(nil), lines...)
	l.mu.Unlock()
	l.hooks.ContentChanged()
}

// SetTrayMenu stores a new tray contribution and notifies the owner.
func (l *Looper) SetTrayMenu(items []schema.MenuItem) {
	l.mu.Lock()
	l.menu = append([]schema.MenuItem(nil), items...)
	l.mu.Unlock()
	l.hooks.TrayChanged()
}

// RequestUpdateScreen advances the scroll position and redraws once.
func (l *Looper) RequestUpdateScreen() {
	l.mu.Lock()
	l.tick++
	l.mu.Unlock()
	l.Redraw()
}

// Redraw runs the screen's redraw function without advancing the scroll.
func (l *Looper) Redraw() {
	if l.redraw != nil {
		l.redraw()
	}
}

// Tick returns the current scroll position.
func (l *Looper) Tick() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tick
}

// Scroll returns the display-width window of text at the current tick.
func (l *Looper) Scroll(text string) string {
	return ScrollWindow(text, l.width, l.Tick())
}

// Bar renders p as a display-width progress bar.
func (l *Looper) Bar(p float64) string {
	return ProgressBar(p, l.width)
}

// Run polls immediately and then on every interval until ctx is done. A tick
// that fires while the previous poll is still running is skipped.
func (l *Looper) Run(ctx context.Context) error {
	l.log.Debug("looper start", "interval", l.interval, "timeout", l.timeout)
	defer l.polls.Wait()
	l.spawn(ctx)
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			l.log.Debug("looper stop")
			return nil
		case <-ticker.C:
			l.spawn(ctx)
		}
	}
}

func (l *Looper) spawn(ctx context.Context) {
	if l.inFlight.Load() {
		l.log.Trace("looper poll skipped", "reason", "in flight")
		return
	}
	l.polls.Add(1)
	go func() {
		defer l.polls.Done()
		l.Poll(ctx)
	}()
}

// Poll runs one update bounded by the poll timeout, then advances the scroll
// and redraws. It returns false without polling when another poll is in
// flight.
func (l *Looper) Poll(ctx context.Context) bool {
	if !l.inFlight.CompareAndSwap(false, true) {
		l.log.Trace("looper poll skipped", "reason", "in flight")
		return false
	}
	defer l.inFlight.Store(false)
	if l.update != nil {
		pollCtx, cancel := context.WithTimeout(ctx, l.timeout)
		l.update(pollCtx)
		cancel()
	}
	l.RequestUpdateScreen()
	return true
}

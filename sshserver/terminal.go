package sshserver

import (
	"context"
	"errors"
	"io"
	"time"

	gliderssh "github.com/gliderlabs/ssh"

	"pkt.systems/marquee/internal/eventbus"
	"pkt.systems/marquee/schema"
	"pkt.systems/pslog"
)

// Controller is the part of the screen manager a display session drives.
// *core.Manager satisfies it.
type Controller interface {
	Next()
	Prev()
	InvokeTrayItem(index int) error
}

type terminalSession struct {
	out        io.Writer
	in         io.Reader
	controller Controller
	events     <-chan eventbus.Event
	screen     *screen
	theme      tuiTheme
	idle       time.Duration
	audit      bool
	log        pslog.Logger

	width  int
	height int

	last   eventbus.Event
	notice string
}

func newTerminalSession(rw io.ReadWriter, controller Controller, events <-chan eventbus.Event, theme schema.ThemeName, log pslog.Logger) *terminalSession {
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	return &terminalSession{
		out:        rw,
		in:         rw,
		controller: controller,
		events:     events,
		screen:     newScreen(rw),
		theme:      themeForName(theme),
		log:        log,
	}
}

func (t *terminalSession) SetSize(width, height int) {
	if width <= 0 {
		width = 80
	}
	if height <= 0 {
		height = 24
	}
	t.width = width
	t.height = height
}

// Run drives the session until the user quits, input ends, ctx is done or
// the idle timeout fires.
func (t *terminalSession) Run(ctx context.Context, initial eventbus.Event, winCh <-chan gliderssh.Window) error {
	if ctx == nil {
		ctx = context.Background()
	}
	t.last = initial
	t.screen.EnterAltScreen()
	defer t.screen.ExitAltScreen()
	t.render()
	t.log.Info("tui session start", "width", t.width, "height", t.height)

	keys := make(chan key, 16)
	go readKeys(t.in, keys)

	var idle <-chan time.Time
	var idleTimer *time.Timer
	if t.idle > 0 {
		idleTimer = time.NewTimer(t.idle)
		defer idleTimer.Stop()
		idle = idleTimer.C
	}

	events := t.events
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-idle:
			t.log.Info("tui exit", "reason", "idle timeout")
			return errIdle
		case k, ok := <-keys:
			if !ok {
				return nil
			}
			if idleTimer != nil {
				idleTimer.Reset(t.idle)
			}
			if t.handleKey(k) {
				return nil
			}
			t.render()
		case win, ok := <-winCh:
			if ok {
				t.SetSize(win.Width, win.Height)
				t.log.Debug("tui resize", "width", t.width, "height", t.height)
				t.render()
			}
		case ev, ok := <-events:
			if !ok {
				events = nil
				break
			}
			t.last = ev
			t.render()
		}
	}
}

var errIdle = errors.New("idle timeout")

// handleKey applies one key press and reports whether the session should end.
func (t *terminalSession) handleKey(k key) bool {
	switch k.kind {
	case keyCtrlC, keyCtrlD:
		t.log.Info("tui exit", "reason", "ctrl")
		return true
	case keyLeft, keyUp, keyShiftTab:
		t.notice = ""
		t.controller.Prev()
	case keyRight, keyDown, keyTab:
		t.notice = ""
		t.controller.Next()
	case keyCtrlL:
		t.notice = ""
	case keyRune:
		switch {
		case k.r == 'q' || k.r == 'Q':
			t.log.Info("tui exit", "reason", "quit")
			return true
		case k.r >= '1' && k.r <= '9':
			t.invoke(int(k.r - '1'))
		}
	}
	return false
}

func (t *terminalSession) invoke(index int) {
	label := ""
	if index < len(t.last.Menu) {
		label = t.last.Menu[index]
	}
	if err := t.controller.InvokeTrayItem(index); err != nil {
		t.notice = "no menu item " + string(rune('1'+index))
		t.log.Debug("tui tray invoke failed", "index", index, "err", err)
		return
	}
	t.notice = ""
	if t.audit {
		t.log.Info("tui audit tray invoke", "index", index, "label", label)
	}
}

func (t *terminalSession) render() {
	lines := renderView(t.last, t.notice, t.width, t.height, t.theme)
	if err := t.screen.Render(lines); err != nil {
		t.log.Debug("tui render failed", "err", err)
	}
}

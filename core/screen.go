package core

import (
	"context"

	"pkt.systems/marquee/schema"
	"pkt.systems/pslog"
)

// Screen is a self-contained unit of display content.
type Screen interface {
	// Name returns a stable identifier for the screen.
	Name() schema.ScreenName
	// Render returns the current display rows. Rows beyond the display height
	// are dropped and short rows are padded by the manager.
	Render() []string
	// TrayMenu returns the screen's contribution to the shared tray menu.
	TrayMenu() []schema.MenuItem
}

// Runner is implemented by screens that poll on their own schedule. Run
// blocks until ctx is cancelled.
type Runner interface {
	Run(ctx context.Context) error
}

// Args carries the construction arguments shared by every screen.
type Args struct {
	Display schema.DisplayConfig
	Logger  pslog.Logger
}

// Factory builds one screen bound to the hooks of its slot.
type Factory func(args Args, hooks Hooks) (Screen, error)

// logger returns args.Logger or the background context logger.
func (a Args) logger() pslog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return pslog.Ctx(context.Background())
}

package sshserver

import (
	"time"

	"pkt.systems/marquee/schema"
)

// Config defines SSH server settings.
type Config struct {
	Addr               string
	HostKeyPath        string
	AuthorizedKeysPath string
	// IdleTimeout disconnects sessions without input; zero disables it.
	IdleTimeout        time.Duration
	Theme              schema.ThemeName
	DisableAuditTrails bool
}

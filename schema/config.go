package schema

import "time"

// DisplayConfig defines the geometry and timing shared by every screen.
type DisplayConfig struct {
	Height         int
	Width          int
	PollInterval   time.Duration
	PollTimeout    time.Duration
	RotateInterval time.Duration
}

const (
	// DefaultDisplayHeight is the number of rows on the character display.
	DefaultDisplayHeight = 4
	// DefaultDisplayWidth is the number of columns on the character display.
	DefaultDisplayWidth = 21
	// DefaultPollInterval is how often looping screens refresh their data.
	DefaultPollInterval = 5 * time.Second
	// DefaultPollTimeout bounds a single poll.
	DefaultPollTimeout = 10 * time.Second
)

// NormalizeDisplayConfig applies defaults and validates the config.
func NormalizeDisplayConfig(cfg DisplayConfig) (DisplayConfig, error) {
	if cfg.Height == 0 {
		cfg.Height = DefaultDisplayHeight
	}
	if cfg.Width == 0 {
		cfg.Width = DefaultDisplayWidth
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = DefaultPollTimeout
	}
	if cfg.RotateInterval < 0 {
		cfg.RotateInterval = 0
	}
	if cfg.Height < 0 || cfg.Width < 0 {
		return DisplayConfig{}, ErrInvalidDisplay
	}
	return cfg, nil
}

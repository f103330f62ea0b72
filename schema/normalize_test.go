package schema

import (
	"errors"
	"testing"
	"time"
)

func TestNormalizeScreenName(t *testing.T) {
	cases := []struct {
		name  string
		in    string
		want  ScreenName
		valid bool
	}{
		{"simple", "perf", "perf", true},
		{"upper", "Music", "music", true},
		{"padded", "  perf ", "perf", true},
		{"dash", "now-playing", "now-playing", true},
		{"underscore", "now_playing", "now_playing", true},
		{"empty", "", "", false},
		{"space", "now playing", "", false},
		{"symbol", "perf!", "", false},
	}
	for _, tc := range cases {
		got, err := NormalizeScreenName(tc.in)
		if tc.valid && err != nil {
			t.Fatalf("case %q expected valid, got error: %v", tc.name, err)
		}
		if !tc.valid && !errors.Is(err, ErrInvalidScreen) {
			t.Fatalf("case %q expected ErrInvalidScreen, got %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("case %q: got %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestNormalizeDisplayConfigDefaults(t *testing.T) {
	cfg, err := NormalizeDisplayConfig(DisplayConfig{})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.Height != DefaultDisplayHeight || cfg.Width != DefaultDisplayWidth {
		t.Fatalf("unexpected size %dx%d", cfg.Height, cfg.Width)
	}
	if cfg.PollInterval != DefaultPollInterval || cfg.PollTimeout != DefaultPollTimeout {
		t.Fatalf("unexpected timing %+v", cfg)
	}
	if _, err := NormalizeDisplayConfig(DisplayConfig{Height: -1}); !errors.Is(err, ErrInvalidDisplay) {
		t.Fatalf("expected ErrInvalidDisplay, got %v", err)
	}
	cfg, err = NormalizeDisplayConfig(DisplayConfig{RotateInterval: -time.Second})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.RotateInterval != 0 {
		t.Fatalf("expected negative rotate interval to disable rotation")
	}
}

func TestSameMenu(t *testing.T) {
	a := []MenuItem{{Label: "Log in"}, {Label: "Quit"}}
	b := []MenuItem{{Label: "Log in", Action: func() {}}, {Label: "Quit"}}
	if !SameMenu(a, b) {
		t.Fatalf("expected menus with equal labels to match")
	}
	if SameMenu(a, b[:1]) {
		t.Fatalf("expected length mismatch to differ")
	}
	if SameMenu(a, []MenuItem{{Label: "Log out"}, {Label: "Quit"}}) {
		t.Fatalf("expected label mismatch to differ")
	}
}

func TestConnectionStateString(t *testing.T) {
	tests := []struct {
		state ConnectionState
		want  string
	}{
		{StateBooting, "booting"},
		{StateLoggedOut, "logged_out"},
		{StateNotPlaying, "not_playing"},
		{StatePlaying, "playing"},
		{StateRefreshing, "refreshing"},
		{ConnectionState(42), "unknown"},
	}
	for _, tc := range tests {
		if got := tc.state.String(); got != tc.want {
			t.Fatalf("ConnectionState(%d).String() = %q, want %q", tc.state, got, tc.want)
		}
	}
}

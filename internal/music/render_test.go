package music

import (
	"strings"
	"testing"

	"pkt.systems/marquee/core"
	"pkt.systems/marquee/schema"
)

func sampleSong() *Playback {
	return &Playback{
		IsPlaying:  true,
		ProgressMs: 65_000,
		Item: &Track{
			Name:       "Song",
			Artists:    []string{"A", "B"},
			DurationMs: 200_000,
		},
	}
}

func TestRenderPlaying(t *testing.T) {
	lines := render(schema.StatePlaying, sampleSong(), nil, 21, 0)
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d", len(lines))
	}
	if lines[0] != core.PadRight("Song", 21) {
		t.Fatalf("unexpected title %q", lines[0])
	}
	if lines[1] != core.PadRight("A, B", 21) {
		t.Fatalf("unexpected artists %q", lines[1])
	}
	if lines[2] != core.ProgressBar(0.325, 21) {
		t.Fatalf("unexpected bar %q", lines[2])
	}
	want := string(PlayingGlyph) + strings.Repeat(" ", 11) + "1:05/3:20"
	if lines[3] != want {
		t.Fatalf("expected %q, got %q", want, lines[3])
	}
}

func TestRenderStates(t *testing.T) {
	prev := []string{"previous"}
	cases := []struct {
		name  string
		state schema.ConnectionState
		song  *Playback
		prev  []string
		want  string
	}{
		{name: "logged out", state: schema.StateLoggedOut, song: sampleSong(), prev: prev, want: lineLoggedOut},
		{name: "connected no data", state: schema.StateNotPlaying, want: lineConnected},
		{name: "not playing ignores song", state: schema.StateNotPlaying, song: sampleSong(), want: lineConnected},
		{name: "playing no song", state: schema.StatePlaying, want: lineConnected},
		{name: "playing no item", state: schema.StatePlaying, song: &Playback{IsPlaying: true}, want: lineConnected},
		{name: "playing zero duration", state: schema.StatePlaying, song: &Playback{Item: &Track{Name: "x"}}, want: lineInvalid},
		{name: "playing negative progress", state: schema.StatePlaying, song: &Playback{ProgressMs: -1, Item: &Track{Name: "x", DurationMs: 10}}, want: lineInvalid},
		{name: "refreshing keeps", state: schema.StateRefreshing, prev: prev, want: "previous"},
		{name: "refreshing empty", state: schema.StateRefreshing, want: lineConnecting},
		{name: "booting empty", state: schema.StateBooting, want: lineBooting},
		{name: "booting keeps", state: schema.StateBooting, prev: prev, want: "previous"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			lines := render(tc.state, tc.song, tc.prev, 21, 0)
			if len(lines) != 1 || lines[0] != tc.want {
				t.Fatalf("expected [%q], got %q", tc.want, lines)
			}
		})
	}
}

func TestFormatClock(t *testing.T) {
	cases := map[int64]string{
		0:         "0:00",
		9_999:     "0:09",
		60_000:    "1:00",
		3_599_000: "59:59",
		-5:        "0:00",
	}
	for in, want := range cases {
		if got := formatClock(in); got != want {
			t.Fatalf("formatClock(%d): expected %q, got %q", in, want, got)
		}
	}
}

package music

import (
	"fmt"
	"strings"

	"pkt.systems/marquee/core"
	"pkt.systems/marquee/schema"
)

// PlayingGlyph marks active playback on the status line.
const PlayingGlyph = '▶'

const (
	lineLoggedOut  = "Music: Logged Out"
	lineConnected  = "Music: Connected"
	lineConnecting = "Music: Connecting"
	lineInvalid    = "Invalid song info"
	lineBooting    = "Music"
)

// render produces the screen lines for a state. prev is the last output and
// is kept while the connection is being established. song is read only while
// playing.
func render(state schema.ConnectionState, song *Playback, prev []string, width, tick int) []string {
	switch state {
	case schema.StateLoggedOut:
		return []string{lineLoggedOut}
	case schema.StateNotPlaying:
		return []string{lineConnected}
	case schema.StatePlaying:
		if song == nil || song.Item == nil {
			return []string{lineConnected}
		}
		if !validSong(song) {
			return []string{lineInvalid}
		}
		return renderSong(song, width, tick)
	case schema.StateRefreshing:
		if len(prev) > 0 {
			return prev
		}
		return []string{lineConnecting}
	default:
		if len(prev) > 0 {
			return prev
		}
		return []string{lineBooting}
	}
}

// validSong reports whether a present item can be drawn.
func validSong(song *Playback) bool {
	return song.Item.DurationMs > 0 && song.ProgressMs >= 0
}

func renderSong(song *Playback, width, tick int) []string {
	item := song.Item
	progress := float64(song.ProgressMs) / float64(item.DurationMs)
	duration := formatClock(song.ProgressMs) + "/" + formatClock(item.DurationMs)
	return []string{
		core.ScrollWindow(item.Name, width, tick),
		core.ScrollWindow(strings.Join(item.Artists, ", "), width, tick),
		core.ProgressBar(progress, width),
		string(PlayingGlyph) + core.PadLeft(duration, width-1),
	}
}

// formatClock renders milliseconds as m:ss.
func formatClock(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	total := ms / 1000
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

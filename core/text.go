package core

import (
	"math"
	"strings"
	"unicode/utf8"
)

// ScrollSeparator is appended to scrolling text before it wraps around.
const ScrollSeparator = "   "

const (
	// BarFilled is the glyph for the completed part of a progress bar.
	BarFilled = '█'
	// BarEmpty is the glyph for the remaining part of a progress bar.
	BarEmpty = '░'
)

// ScrollWindow returns a width-rune window of text for the given tick. Text
// that fits is left-justified and padded. Longer text scrolls cyclically over
// text+ScrollSeparator with period len(text)+len(ScrollSeparator).
func ScrollWindow(text string, width, tick int) string {
	if width <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= width {
		return PadRight(text, width)
	}
	loop := append(runes, []rune(ScrollSeparator)...)
	period := len(loop)
	start := tick % period
	if start < 0 {
		start += period
	}
	out := make([]rune, width)
	for i := range out {
		out[i] = loop[(start+i)%period]
	}
	return string(out)
}

// ProgressBar renders p in [0,1] as width glyphs. Out of range values are
// clamped and NaN counts as zero.
func ProgressBar(p float64, width int) string {
	if width <= 0 {
		return ""
	}
	if math.IsNaN(p) || p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	filled := int(math.Floor(p * float64(width)))
	if filled > width {
		filled = width
	}
	return strings.Repeat(string(BarFilled), filled) + strings.Repeat(string(BarEmpty), width-filled)
}

// PadRight truncates or space-pads s to exactly width runes.
func PadRight(s string, width int) string {
	if width <= 0 {
		return ""
	}
	n := utf8.RuneCountInString(s)
	if n == width {
		return s
	}
	if n > width {
		return string([]rune(s)[:width])
	}
	return s + strings.Repeat(" ", width-n)
}

// PadLeft truncates or left-pads s to exactly width runes.
func PadLeft(s string, width int) string {
	if width <= 0 {
		return ""
	}
	n := utf8.RuneCountInString(s)
	if n >= width {
		return PadRight(s, width)
	}
	return strings.Repeat(" ", width-n) + s
}

// Fit normalises lines to exactly height rows of width runes.
func Fit(lines []string, height, width int) []string {
	if height <= 0 {
		return nil
	}
	out := make([]string, height)
	for i := range out {
		line := ""
		if i < len(lines) {
			line = lines[i]
		}
		out[i] = PadRight(line, width)
	}
	return out
}

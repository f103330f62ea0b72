package sshserver

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"pkt.systems/marquee/internal/eventbus"
)

const helpLine = "←/→ screens  1-9 menu  q quit"

// maxMenuKeys is the number of tray items reachable with a single digit.
const maxMenuKeys = 9

// renderView lays out the screen indicator, the framed display, the
// numbered tray menu and the help line, clipped to the terminal size.
func renderView(ev eventbus.Event, notice string, width, height int, theme tuiTheme) []string {
	if width <= 0 {
		width = 80
	}
	if height <= 0 {
		height = 24
	}
	lines := make([]string, 0, height)
	lines = append(lines, renderIndicator(ev, width, theme))

	frameFG := ansiFgRGB(theme.FrameFG)
	panel := ansiBgRGB(theme.PanelBG) + ansiFgRGB(theme.PanelFG)
	inner := 0
	for _, row := range ev.Frame {
		if n := utf8.RuneCountInString(row); n > inner {
			inner = n
		}
	}
	border := strings.Repeat("─", inner)
	lines = append(lines, frameFG+"┌"+border+"┐"+ansiReset)
	for _, row := range ev.Frame {
		lines = append(lines, frameFG+"│"+panel+padRunes(row, inner)+ansiReset+frameFG+"│"+ansiReset)
	}
	lines = append(lines, frameFG+"└"+border+"┘"+ansiReset)

	keyFG := ansiFgRGB(theme.MenuKeyFG) + ansiBold
	for i, label := range ev.Menu {
		prefix := "   "
		if i < maxMenuKeys {
			prefix = strconv.Itoa(i+1) + ") "
		}
		lines = append(lines, keyFG+prefix+ansiReset+clip(label, width-len(prefix)))
	}
	lines = append(lines, ansiFgRGB(theme.DimFG)+clip(helpLine, width)+ansiReset)
	if notice != "" {
		lines = append(lines, ansiFgRGB(theme.NoticeFG)+clip(notice, width)+ansiReset)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	return lines
}

func renderIndicator(ev eventbus.Event, width int, theme tuiTheme) string {
	if len(ev.Screens) == 0 {
		return clip("no screens", width)
	}
	var b strings.Builder
	used := 0
	for i, name := range ev.Screens {
		label := " " + string(name) + " "
		if i == ev.Active {
			label = "[" + string(name) + "]"
		}
		n := utf8.RuneCountInString(label)
		if used+n > width {
			break
		}
		if i == ev.Active {
			b.WriteString(ansiFgRGB(theme.ActiveFG) + ansiBold + label + ansiReset)
		} else {
			b.WriteString(ansiFgRGB(theme.DimFG) + label + ansiReset)
		}
		used += n
	}
	return b.String()
}

func padRunes(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return clip(s, width)
	}
	return s + strings.Repeat(" ", width-n)
}

func clip(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	return string([]rune(s)[:width])
}

package tui

import (
	"github.com/charmbracelet/lipgloss"

	"pkt.systems/marquee/schema"
)

type palette struct {
	panelFG lipgloss.Color
	panelBG lipgloss.Color
	frame   lipgloss.Color
	active  lipgloss.Color
	dim     lipgloss.Color
	notice  lipgloss.Color
}

var palettes = map[schema.ThemeName]palette{
	"amber": {
		panelFG: "#FFB000",
		panelBG: "#1E1200",
		frame:   "#805800",
		active:  "#FFCC66",
		dim:     "#8C6E3C",
		notice:  "#FF6B6B",
	},
	"green": {
		panelFG: "#0F380F",
		panelBG: "#9BBC0F",
		frame:   "#306230",
		active:  "#8BAC0F",
		dim:     "#648250",
		notice:  "#FB4934",
	},
	"blue": {
		panelFG: "#E6F0FF",
		panelBG: "#0028A0",
		frame:   "#5078DC",
		active:  "#7AA2F7",
		dim:     "#7F85A3",
		notice:  "#F7768E",
	},
}

// Styles holds the lipgloss styles for one theme.
type Styles struct {
	Panel  lipgloss.Style
	Active lipgloss.Style
	Dim    lipgloss.Style
	Key    lipgloss.Style
	Notice lipgloss.Style
}

// StylesFor returns the styles for name, falling back to the default theme.
func StylesFor(name schema.ThemeName) Styles {
	if normalized, ok := schema.NormalizeThemeName(string(name)); ok {
		name = normalized
	}
	p, ok := palettes[name]
	if !ok {
		p = palettes[schema.DefaultTheme]
	}
	return Styles{
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.frame).
			Foreground(p.panelFG).
			Background(p.panelBG),
		Active: lipgloss.NewStyle().Bold(true).Foreground(p.active),
		Dim:    lipgloss.NewStyle().Foreground(p.dim),
		Key:    lipgloss.NewStyle().Bold(true).Foreground(p.panelFG),
		Notice: lipgloss.NewStyle().Foreground(p.notice),
	}
}

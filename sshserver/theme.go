package sshserver

import (
	"strconv"

	"pkt.systems/marquee/schema"
)

type rgb struct {
	r int
	g int
	b int
}

// tuiTheme colours an emulated character LCD.
type tuiTheme struct {
	Name      schema.ThemeName
	PanelBG   rgb
	PanelFG   rgb
	FrameFG   rgb
	ActiveFG  rgb
	DimFG     rgb
	MenuKeyFG rgb
	NoticeFG  rgb
}

const (
	ansiReset = "\x1b[0m"
	ansiBold  = "\x1b[1m"
)

var tuiThemes = map[schema.ThemeName]tuiTheme{
	"amber": {
		Name:      "amber",
		PanelBG:   rgb{r: 30, g: 18, b: 0},
		PanelFG:   rgb{r: 255, g: 176, b: 0},
		FrameFG:   rgb{r: 128, g: 88, b: 0},
		ActiveFG:  rgb{r: 255, g: 204, b: 102},
		DimFG:     rgb{r: 140, g: 110, b: 60},
		MenuKeyFG: rgb{r: 255, g: 176, b: 0},
		NoticeFG:  rgb{r: 255, g: 107, b: 107},
	},
	"green": {
		Name:      "green",
		PanelBG:   rgb{r: 155, g: 188, b: 15},
		PanelFG:   rgb{r: 15, g: 56, b: 15},
		FrameFG:   rgb{r: 48, g: 98, b: 48},
		ActiveFG:  rgb{r: 139, g: 172, b: 15},
		DimFG:     rgb{r: 100, g: 130, b: 80},
		MenuKeyFG: rgb{r: 139, g: 172, b: 15},
		NoticeFG:  rgb{r: 251, g: 73, b: 52},
	},
	"blue": {
		Name:      "blue",
		PanelBG:   rgb{r: 0, g: 40, b: 160},
		PanelFG:   rgb{r: 230, g: 240, b: 255},
		FrameFG:   rgb{r: 80, g: 120, b: 220},
		ActiveFG:  rgb{r: 122, g: 162, b: 247},
		DimFG:     rgb{r: 127, g: 133, b: 163},
		MenuKeyFG: rgb{r: 125, g: 207, b: 255},
		NoticeFG:  rgb{r: 247, g: 118, b: 142},
	},
}

func themeForName(name schema.ThemeName) tuiTheme {
	if normalized, ok := schema.NormalizeThemeName(string(name)); ok {
		name = normalized
	}
	if theme, ok := tuiThemes[name]; ok {
		return theme
	}
	return tuiThemes[schema.DefaultTheme]
}

func ansiFgRGB(c rgb) string {
	return "\x1b[38;2;" + strconv.Itoa(c.r) + ";" + strconv.Itoa(c.g) + ";" + strconv.Itoa(c.b) + "m"
}

func ansiBgRGB(c rgb) string {
	return "\x1b[48;2;" + strconv.Itoa(c.r) + ";" + strconv.Itoa(c.g) + ";" + strconv.Itoa(c.b) + "m"
}

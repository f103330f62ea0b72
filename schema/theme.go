package schema

import "strings"

// DefaultTheme is the default host theme name.
const DefaultTheme ThemeName = "amber"

var themeNames = []ThemeName{
	"amber",
	"green",
	"blue",
}

// AvailableThemes returns the supported theme names.
func AvailableThemes() []ThemeName {
	out := make([]ThemeName, len(themeNames))
	copy(out, themeNames)
	return out
}

// NormalizeThemeName returns a canonical theme name if supported.
func NormalizeThemeName(name string) (ThemeName, bool) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	normalized = strings.ReplaceAll(normalized, "_", "-")
	switch normalized {
	case "", "amber", "orange":
		return "amber", true
	case "green", "green-lcd":
		return "green", true
	case "blue", "blue-lcd":
		return "blue", true
	default:
		return "", false
	}
}

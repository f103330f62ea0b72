package schema

import "strings"

// NormalizeScreenName validates and normalizes a screen name.
// Allowed characters after lower-casing: a-z, 0-9, '-', '_'.
func NormalizeScreenName(name string) (ScreenName, error) {
	trimmed := strings.ToLower(strings.TrimSpace(name))
	if trimmed == "" {
		return "", ErrInvalidScreen
	}
	for _, r := range trimmed {
		if r >= 'a' && r <= 'z' {
			continue
		}
		if r >= '0' && r <= '9' {
			continue
		}
		if r == '-' || r == '_' {
			continue
		}
		return "", ErrInvalidScreen
	}
	return ScreenName(trimmed), nil
}

package schema

// ScreenName identifies a screen kind in configuration and logs.
type ScreenName string

// ThemeName identifies a host UI theme.
type ThemeName string

// MenuItem is a single tray-menu entry contributed by a screen.
type MenuItem struct {
	Label  string
	Action func()
}

// MenuLabels returns the labels of items in order.
func MenuLabels(items []MenuItem) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.Label
	}
	return out
}

// SameMenu reports whether two menus carry the same labels in the same order.
// Actions are not comparable and are ignored.
func SameMenu(a, b []MenuItem) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Label != b[i].Label {
			return false
		}
	}
	return true
}

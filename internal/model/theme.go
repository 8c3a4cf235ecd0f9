package model

import "fmt"

// Theme is the operator display preference.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// DefaultTheme is used when no preference has been stored.
const DefaultTheme = ThemeLight

// ParseTheme validates a theme name.
func ParseTheme(s string) (Theme, error) {
	switch Theme(s) {
	case ThemeLight, ThemeDark:
		return Theme(s), nil
	}
	return "", fmt.Errorf("unknown theme %q: %w", s, ErrNotValid)
}

// Toggle returns the opposite theme.
func (t Theme) Toggle() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

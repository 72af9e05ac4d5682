package prefs

import (
	"context"
	"fmt"
	"strings"
)

// ThemeKey is the preference key holding the display theme.
const ThemeKey = "theme"

// Theme is the display theme preference.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ParseTheme validates a theme name.
func ParseTheme(value string) (Theme, error) {
	switch Theme(strings.ToLower(strings.TrimSpace(value))) {
	case ThemeLight:
		return ThemeLight, nil
	case ThemeDark:
		return ThemeDark, nil
	default:
		return "", fmt.Errorf("unsupported theme: %q (want light or dark)", value)
	}
}

// Toggle returns the opposite theme.
func (t Theme) Toggle() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

func (t Theme) String() string { return string(t) }

// Themes reads and writes the theme preference.
type Themes struct {
	Store   Store
	Default Theme
}

// Get returns the stored theme, or the default when none is stored or the
// stored value is not a valid theme.
func (t *Themes) Get(ctx context.Context) (Theme, error) {
	fallback := t.Default
	if fallback == "" {
		fallback = ThemeLight
	}

	raw, ok, err := t.Store.LoadPreference(ctx, ThemeKey)
	if err != nil {
		return fallback, err
	}
	if !ok {
		return fallback, nil
	}
	theme, err := ParseTheme(raw)
	if err != nil {
		return fallback, nil
	}
	return theme, nil
}

// Set persists theme.
func (t *Themes) Set(ctx context.Context, theme Theme) error {
	if _, err := ParseTheme(string(theme)); err != nil {
		return err
	}
	return t.Store.SavePreference(ctx, ThemeKey, string(theme))
}

// Toggle flips the stored theme and returns the new value.
func (t *Themes) Toggle(ctx context.Context) (Theme, error) {
	current, err := t.Get(ctx)
	if err != nil {
		return current, err
	}
	next := current.Toggle()
	if err := t.Set(ctx, next); err != nil {
		return current, err
	}
	return next, nil
}

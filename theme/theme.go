package theme

import (
	"strings"

	"github.com/goliatone/go-errors"
)

// Theme is the user's color scheme preference.
type Theme string

const (
	Dark   Theme = "dark"
	Light  Theme = "light"
	System Theme = "system"
)

// DefaultStorageKey is the storage slot used when none is configured.
const DefaultStorageKey = "vite-ui-theme"

const (
	TextCodeInvalidTheme = "THEME_INVALID"
	TextCodeNoProvider   = "THEME_NO_PROVIDER"
)

// ErrInvalidTheme is returned for values outside dark, light and system.
var ErrInvalidTheme = errors.New("invalid theme", errors.CategoryValidation).
	WithTextCode(TextCodeInvalidTheme).
	WithCode(errors.CodeBadRequest)

// ErrNoProvider is returned when a provider is built without storage or root.
var ErrNoProvider = errors.New("theme provider requires storage and a document root", errors.CategoryInternal).
	WithTextCode(TextCodeNoProvider).
	WithCode(errors.CodeInternal)

// Parse converts s into a Theme. Matching is case insensitive.
func Parse(s string) (Theme, error) {
	t := Theme(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", ErrInvalidTheme
	}
	return t, nil
}

// Valid reports whether t is one of the known themes.
func (t Theme) Valid() bool {
	switch t {
	case Dark, Light, System:
		return true
	}
	return false
}

func (t Theme) String() string {
	return string(t)
}

// Resolve maps System to the platform preference. Explicit themes
// never consult the platform.
func (t Theme) Resolve(scheme ColorScheme) Theme {
	if t != System {
		return t
	}
	if scheme != nil && scheme.PrefersDark() {
		return Dark
	}
	return Light
}

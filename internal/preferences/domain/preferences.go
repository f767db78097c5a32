// Package domain holds the per-installation display preferences.
package domain

import (
	"regexp"
	"slices"

	"storefront/backend/internal/platform/errs"
)

// Menu lists the menu items the user hid and, optionally, their preferred order.
type Menu struct {
	HiddenItems []string `json:"hiddenItems"`
	CustomOrder []string `json:"customOrder"`
}

// DefaultMenu hides nothing and keeps the built-in order.
func DefaultMenu() Menu {
	return Menu{HiddenItems: []string{}, CustomOrder: []string{}}
}

// IsHidden reports whether key is hidden.
func (m Menu) IsHidden(key string) bool {
	return slices.Contains(m.HiddenItems, key)
}

type ThemeMode string

const (
	ThemeLight   ThemeMode = "light"
	ThemeDark    ThemeMode = "dark"
	ThemePremium ThemeMode = "premium"
	ThemeCustom  ThemeMode = "custom"
)

// ThemeModes is the toggle cycle.
var ThemeModes = []ThemeMode{ThemeLight, ThemeDark, ThemePremium, ThemeCustom}

// DefaultTheme is used when nothing valid is stored.
const DefaultTheme = ThemeLight

func (t ThemeMode) Valid() bool {
	return slices.Contains(ThemeModes, t)
}

// Next returns the mode after t in the toggle cycle. Unknown modes continue from light.
func (t ThemeMode) Next() ThemeMode {
	i := slices.Index(ThemeModes, t)
	return ThemeModes[(i+1)%len(ThemeModes)]
}

// Colors are the palette used by the custom theme.
type Colors struct {
	Primary    string `json:"primary"`
	Secondary  string `json:"secondary"`
	Background string `json:"background"`
	Surface    string `json:"surface"`
}

func DefaultColors() Colors {
	return Colors{Primary: "#0052CC", Secondary: "#00A3BF", Background: "#121212", Surface: "#1D1D1F"}
}

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)

// WithColor returns c with the named slot set. Unknown slots and non-hex colours are validation errors.
func (c Colors) WithColor(slot, color string) (Colors, error) {
	if !hexColor.MatchString(color) {
		return c, errs.Invalid("color", "must be a hex colour")
	}
	switch slot {
	case "primary":
		c.Primary = color
	case "secondary":
		c.Secondary = color
	case "background":
		c.Background = color
	case "surface":
		c.Surface = color
	default:
		return c, errs.Invalid("key", "unknown colour slot")
	}
	return c, nil
}

// Languages are the supported interface languages. DefaultLanguage is the fallback.
var Languages = []string{"en", "fr", "ar", "de", "es", "zh", "hi"}

const DefaultLanguage = "en"

func SupportedLanguage(code string) bool {
	return slices.Contains(Languages, code)
}

package storage

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"luca-backend/internal/i18n"
)

type ThemeMode string

const (
	ModeLight  ThemeMode = "light"
	ModeDark   ThemeMode = "dark"
	ModeSystem ThemeMode = "system"
)

const DefaultTheme = "modern"

type theme struct {
	display string
	mode    ThemeMode
}

// themes is the UI theme catalog; each family has a light and a dark variant.
var themes = map[string]theme{
	"modern":     {"Modern", ModeLight},
	"modernDark": {"Modern Dark", ModeDark},
	"ocean":      {"Ocean", ModeLight},
	"oceanDark":  {"Ocean Dark", ModeDark},
	"forest":     {"Forest", ModeLight},
	"forestDark": {"Forest Dark", ModeDark},
	"sunset":     {"Sunset", ModeLight},
	"sunsetDark": {"Sunset Dark", ModeDark},
}

// Themes returns the catalog names in sorted order.
func Themes() []string {
	names := make([]string, 0, len(themes))
	for name := range themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type Preferences struct {
	Language  i18n.Language `json:"language"`
	Theme     string        `json:"theme"`
	ThemeMode ThemeMode     `json:"theme_mode"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func DefaultPreferences() Preferences {
	return Preferences{
		Language:  i18n.EN,
		Theme:     DefaultTheme,
		ThemeMode: ModeSystem,
	}
}

// Normalize fills empty fields with defaults and rejects unknown values.
func (p Preferences) Normalize() (Preferences, error) {
	def := DefaultPreferences()
	if p.Language == "" {
		p.Language = def.Language
	}
	if p.Theme == "" {
		p.Theme = def.Theme
	}
	if p.ThemeMode == "" {
		p.ThemeMode = def.ThemeMode
	}

	if !p.Language.Valid() {
		return p, fmt.Errorf("%w: language %q", ErrInvalidData, p.Language)
	}
	if _, ok := themes[p.Theme]; !ok {
		return p, fmt.Errorf("%w: theme %q", ErrInvalidData, p.Theme)
	}
	switch p.ThemeMode {
	case ModeLight, ModeDark, ModeSystem:
	default:
		return p, fmt.Errorf("%w: theme mode %q", ErrInvalidData, p.ThemeMode)
	}
	return p, nil
}

// ResolveTheme picks the catalog theme to render for the preferred mode. A
// theme already in the target mode is kept; otherwise its counterpart in the
// same family is used, then the first theme of the target mode.
func ResolveTheme(name string, preferred ThemeMode, systemDark bool) string {
	if _, ok := themes[name]; !ok {
		name = DefaultTheme
	}
	target := preferred
	if target == ModeSystem || (target != ModeLight && target != ModeDark) {
		target = ModeLight
		if systemDark {
			target = ModeDark
		}
	}

	base := themes[name]
	if base.mode == target {
		return name
	}

	names := Themes()
	for _, key := range names {
		t := themes[key]
		if t.mode == target && (strings.Contains(t.display, base.display) || strings.Contains(base.display, t.display)) {
			return key
		}
	}
	for _, key := range names {
		if themes[key].mode == target {
			return key
		}
	}
	return name
}

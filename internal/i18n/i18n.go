// Package i18n holds the user-facing strings and system instructions for each
// supported UI language.
package i18n

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

type Language string

const (
	EN Language = "en"
	HI Language = "hi"
)

// Languages lists the supported languages in display order.
var Languages = []Language{EN, HI}

var speechLocales = map[Language]language.Tag{
	EN: language.MustParse("en-US"),
	HI: language.MustParse("hi-IN"),
}

// Parse accepts a bare code or any BCP-47 tag whose base language is supported
// ("hi-IN" -> HI).
func Parse(s string) (Language, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("empty language")
	}
	tag, err := language.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid language %q: %w", s, err)
	}
	base, _ := tag.Base()
	lang := Language(base.String())
	if _, ok := bundles[lang]; !ok {
		return "", fmt.Errorf("unsupported language %q", s)
	}
	return lang, nil
}

func (l Language) Valid() bool {
	_, ok := bundles[l]
	return ok
}

// SpeechLocale returns the locale tag handed to the speech recognizer.
func SpeechLocale(l Language) string {
	if tag, ok := speechLocales[l]; ok {
		return tag.String()
	}
	return speechLocales[EN].String()
}

// Bundle returns the translations for l, falling back to English.
func Bundle(l Language) Translations {
	if t, ok := bundles[l]; ok {
		return t
	}
	return bundles[EN]
}

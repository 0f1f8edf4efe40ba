package main

import (
	"errors"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Language is a supported card language, stored as a BCP 47 base tag.
type Language string

const (
	English Language = "en"
	French  Language = "fr"
	Spanish Language = "es"
	German  Language = "de"

	defaultLanguage = English
)

// ErrUnsupportedLanguage is returned for tags outside SupportedLanguages.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// SupportedLanguages lists card languages in menu order.
var SupportedLanguages = []Language{English, French, Spanish, German}

var languageMatcher = language.NewMatcher([]language.Tag{
	language.English,
	language.French,
	language.Spanish,
	language.German,
})

// Tag returns the x/text tag for l.
func (l Language) Tag() language.Tag {
	return language.Make(string(l))
}

// EnglishName is the name used when instructing the model, e.g. "French".
func (l Language) EnglishName() string {
	return display.English.Tags().Name(l.Tag())
}

// NativeName is the label shown in the language menu, e.g. "français".
func (l Language) NativeName() string {
	return display.Self.Name(l.Tag())
}

// ParseLanguage accepts a tag such as "fr" or "fr-CA" and returns the
// supported language with the same base. An empty value yields the default.
func ParseLanguage(value string) (Language, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return defaultLanguage, nil
	}

	tag, err := language.Parse(value)
	if err != nil {
		return "", ErrUnsupportedLanguage
	}
	base, _ := tag.Base()
	for _, l := range SupportedLanguages {
		if string(l) == base.String() {
			return l, nil
		}
	}
	return "", ErrUnsupportedLanguage
}

// MatchLanguage picks the best supported language for an Accept-Language
// header, falling back to the default.
func MatchLanguage(acceptLanguage string) Language {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return defaultLanguage
	}
	_, idx, conf := languageMatcher.Match(tags...)
	if conf == language.No {
		return defaultLanguage
	}
	return SupportedLanguages[idx]
}

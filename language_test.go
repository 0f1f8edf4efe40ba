package main

import (
	"errors"
	"testing"
)

func TestParseLanguage(t *testing.T) {
	tests := []struct {
		in   string
		want Language
		err  error
	}{
		{"", English, nil},
		{"en", English, nil},
		{"fr", French, nil},
		{"fr-CA", French, nil},
		{" es ", Spanish, nil},
		{"de-AT", German, nil},
		{"ja", "", ErrUnsupportedLanguage},
		{"not a tag!", "", ErrUnsupportedLanguage},
	}

	for _, tt := range tests {
		got, err := ParseLanguage(tt.in)
		if !errors.Is(err, tt.err) {
			t.Fatalf("ParseLanguage(%q) error = %v, want %v", tt.in, err, tt.err)
		}
		if got != tt.want {
			t.Fatalf("ParseLanguage(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMatchLanguage(t *testing.T) {
	tests := map[string]Language{
		"":                         English,
		"fr-FR,fr;q=0.9,en;q=0.8":  French,
		"de;q=0.5, es;q=0.9":       Spanish,
		"ja-JP":                    English,
		"garbage;;;":               English,
	}

	for header, want := range tests {
		if got := MatchLanguage(header); got != want {
			t.Errorf("MatchLanguage(%q) = %q, want %q", header, got, want)
		}
	}
}

func TestLanguageNames(t *testing.T) {
	if got := French.EnglishName(); got != "French" {
		t.Fatalf("expected French, got %q", got)
	}
	if got := German.NativeName(); got != "Deutsch" {
		t.Fatalf("expected Deutsch, got %q", got)
	}
}

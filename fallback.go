package main

import (
	"embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed fallbacks/*.yaml
var fallbackFS embed.FS

// Fallback is the deterministic content used when the model cannot be
// reached or returns something unusable.
type Fallback struct {
	FreeSpace string   `yaml:"free_space"`
	Phrases   []string `yaml:"phrases"`
	Padding   []string `yaml:"padding"`
	Roles     []string `yaml:"roles"`
	Analysis  struct {
		Score             int    `yaml:"score"`
		Commentary        string `yaml:"commentary"`
		MissingCommentary string `yaml:"missing_commentary"`
	} `yaml:"analysis"`
}

// Fallbacks holds one catalog per supported language.
type Fallbacks map[Language]*Fallback

// LoadFallbacks parses the embedded catalogs and checks that every supported
// language has a complete one.
func LoadFallbacks() (Fallbacks, error) {
	out := make(Fallbacks, len(SupportedLanguages))
	for _, lang := range SupportedLanguages {
		name := "fallbacks/" + string(lang) + ".yaml"
		data, err := fallbackFS.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}

		var fb Fallback
		if err := yaml.Unmarshal(data, &fb); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		if err := fb.validate(); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", name, err)
		}
		out[lang] = &fb
	}
	return out, nil
}

// For returns the catalog for lang, or the default language's catalog.
func (f Fallbacks) For(lang Language) *Fallback {
	if fb, ok := f[lang]; ok {
		return fb
	}
	return f[defaultLanguage]
}

func (fb *Fallback) validate() error {
	if len(fb.Phrases) != PhraseCount {
		return fmt.Errorf("expected %d phrases, got %d", PhraseCount, len(fb.Phrases))
	}
	seen := make(map[string]bool, len(fb.Phrases))
	for i, p := range fb.Phrases {
		key := strings.ToLower(strings.TrimSpace(p))
		if key == "" {
			return fmt.Errorf("phrase %d is blank", i)
		}
		if seen[key] {
			return fmt.Errorf("phrase %d (%q) is duplicated", i, p)
		}
		seen[key] = true
	}
	if strings.TrimSpace(fb.FreeSpace) == "" {
		return fmt.Errorf("free_space is blank")
	}
	if len(fb.Roles) == 0 {
		return fmt.Errorf("no roles")
	}
	if fb.Analysis.Score < 0 || fb.Analysis.Score > 100 {
		return fmt.Errorf("analysis score %d out of range", fb.Analysis.Score)
	}
	if fb.Analysis.Commentary == "" || fb.Analysis.MissingCommentary == "" {
		return fmt.Errorf("analysis commentary missing")
	}
	return nil
}

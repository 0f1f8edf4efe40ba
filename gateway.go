package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

var errNoGenerator = errors.New("text generation disabled")

// Analysis is the post-win verdict on the meeting.
type Analysis struct {
	BoredomScore int    `json:"boredomScore"`
	Commentary   string `json:"commentary"`
}

// Gateway turns game requests into prompts and never lets a model failure
// reach the caller: every operation has a per-language fallback.
type Gateway struct {
	gen       Generator
	fallbacks Fallbacks
}

// NewGateway returns a gateway. A nil generator serves fallbacks only.
func NewGateway(gen Generator, fallbacks Fallbacks) *Gateway {
	return &Gateway{gen: gen, fallbacks: fallbacks}
}

// FreeSpace is the label of the centre cell in lang.
func (g *Gateway) FreeSpace(lang Language) string {
	return g.fallbacks.For(lang).FreeSpace
}

// GeneratePhrases always returns exactly PhraseCount phrases. Any model
// failure, timeouts included, yields the language's fallback card.
func (g *Gateway) GeneratePhrases(ctx context.Context, topic, industry string, roles []string, lang Language) []string {
	fb := g.fallbacks.For(lang)

	raw, err := g.generate(ctx, phrasesPrompt(topic, industry, roles, lang), stringListSchema)

	var phrases []string
	if err == nil {
		phrases, err = decodeStrings(raw)
	}
	if err != nil {
		logFallback(err, "phrases", lang)
		return append([]string(nil), fb.Phrases...)
	}

	return fitPhrases(phrases, fb)
}

// SuggestRoles returns whatever roles the model offers, or the fallback list.
func (g *Gateway) SuggestRoles(ctx context.Context, topic, industry string, lang Language) []string {
	raw, err := g.generate(ctx, rolesPrompt(topic, industry, lang), stringListSchema)

	var roles []string
	if err == nil {
		roles, err = decodeStrings(raw)
	}
	if err != nil {
		logFallback(err, "roles", lang)
		return append([]string(nil), g.fallbacks.For(lang).Roles...)
	}
	return cleanStrings(roles)
}

// AnalyzeResult always returns a complete analysis.
func (g *Gateway) AnalyzeResult(ctx context.Context, topic string, winningPhrases []string, elapsed time.Duration, lang Language) Analysis {
	fb := g.fallbacks.For(lang)

	raw, err := g.generate(ctx, analysisPrompt(topic, winningPhrases, elapsed, lang), analysisSchema)

	var payload struct {
		BoredomScore *float64 `json:"boredomScore"`
		Commentary   *string  `json:"commentary"`
	}
	if err == nil {
		err = json.Unmarshal([]byte(ExtractJSON(raw)), &payload)
	}
	if err != nil {
		logFallback(err, "analysis", lang)
		return Analysis{BoredomScore: fb.Analysis.Score, Commentary: fb.Analysis.Commentary}
	}

	a := Analysis{BoredomScore: fb.Analysis.Score, Commentary: fb.Analysis.MissingCommentary}
	if payload.BoredomScore != nil {
		a.BoredomScore = clampScore(*payload.BoredomScore)
	}
	if payload.Commentary != nil && strings.TrimSpace(*payload.Commentary) != "" {
		a.Commentary = strings.TrimSpace(*payload.Commentary)
	}
	return a
}

func (g *Gateway) generate(ctx context.Context, prompt string, schema *genai.Schema) (string, error) {
	if g.gen == nil {
		return "", errNoGenerator
	}
	return g.gen.Generate(ctx, prompt, schema)
}

func logFallback(err error, what string, lang Language) {
	if errors.Is(err, errNoGenerator) {
		log.Debug().Str("kind", what).Str("lang", string(lang)).Msg("using fallback content")
		return
	}
	log.Warn().Err(err).Str("kind", what).Str("lang", string(lang)).Msg("generation failed, using fallback content")
}

func decodeStrings(raw string) ([]string, error) {
	var out []string
	if err := json.Unmarshal([]byte(ExtractJSON(raw)), &out); err != nil {
		return nil, fmt.Errorf("decode string list: %w", err)
	}
	return out, nil
}

// cleanStrings trims entries and drops blanks and case-insensitive duplicates.
func cleanStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

// fitPhrases truncates to PhraseCount, or pads from the padding list and
// then from the full fallback card.
func fitPhrases(phrases []string, fb *Fallback) []string {
	out := cleanStrings(phrases)
	if len(out) >= PhraseCount {
		return out[:PhraseCount]
	}

	seen := make(map[string]bool, PhraseCount)
	for _, p := range out {
		seen[strings.ToLower(p)] = true
	}
	for _, source := range [][]string{fb.Padding, fb.Phrases} {
		for _, p := range source {
			if len(out) == PhraseCount {
				return out
			}
			if key := strings.ToLower(p); !seen[key] {
				seen[key] = true
				out = append(out, p)
			}
		}
	}
	for i := 0; len(out) < PhraseCount; i++ {
		out = append(out, fb.Phrases[i%len(fb.Phrases)])
	}
	return out
}

func clampScore(v float64) int {
	return int(math.Round(math.Max(0, math.Min(100, v))))
}

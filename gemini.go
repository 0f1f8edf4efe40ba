package main

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// Generator is the text-generation service behind the gateway. It returns
// raw text that is expected, but not guaranteed, to match schema.
type Generator interface {
	Generate(ctx context.Context, prompt string, schema *genai.Schema) (string, error)
}

var errEmptyResponse = errors.New("empty gemini response")

var (
	stringListSchema = &genai.Schema{
		Type:  genai.TypeArray,
		Items: &genai.Schema{Type: genai.TypeString},
	}

	analysisSchema = &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"boredomScore": {Type: genai.TypeInteger},
			"commentary":   {Type: genai.TypeString},
		},
		Required: []string{"boredomScore", "commentary"},
	}
)

// Generate sends a single-turn prompt and asks for a JSON answer shaped by schema.
func (g *GeminiClient) Generate(ctx context.Context, prompt string, schema *genai.Schema) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.modelName,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			Temperature:      genai.Ptr(float32(0.9)),
			ResponseMIMEType: "application/json",
			ResponseSchema:   schema,
		},
	)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", errEmptyResponse
	}
	return text, nil
}

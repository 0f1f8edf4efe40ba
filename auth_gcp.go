package main

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

const (
	defaultRegion = "europe-west1"
	defaultModel  = "gemini-2.5-flash"
)

// errNoCredentials means neither an API key nor a GCP project was configured.
var errNoCredentials = errors.New("no gemini credentials configured")

// GeminiConfig selects the GenAI backend. An API key wins over a project.
type GeminiConfig struct {
	APIKey    string
	ProjectID string
	Region    string
	Model     string
}

// GeminiClient wraps the Google GenAI client.
type GeminiClient struct {
	client    *genai.Client
	modelName string
}

// NewGeminiClient creates a client for the Gemini API when an API key is
// set, or for Vertex AI using Application Default Credentials otherwise.
// Set GOOGLE_APPLICATION_CREDENTIALS to the service account key file path.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	cc := &genai.ClientConfig{}
	switch {
	case cfg.APIKey != "":
		cc.APIKey = cfg.APIKey
		cc.Backend = genai.BackendGeminiAPI
	case cfg.ProjectID != "":
		cc.Project = cfg.ProjectID
		cc.Location = cfg.Region
		if cc.Location == "" {
			cc.Location = defaultRegion
		}
		cc.Backend = genai.BackendVertexAI
	default:
		return nil, errNoCredentials
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	return &GeminiClient{
		client:    client,
		modelName: model,
	}, nil
}

// Close releases resources held by the client.
func (g *GeminiClient) Close() error {
	return nil
}

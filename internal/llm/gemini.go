package llm

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/genai"

	"github.com/Sachin-Mamoru/error-fix-engine/internal/logfields"
)

// modelProbePrompt is a minimal request used to check a model is reachable
// with the configured API key.
const modelProbePrompt = "Reply with one word: OK"

// GeminiClient implements Client against the Gemini API.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates the API client and resolves the first reachable
// model from candidates. The candidate list is ordered newest-first so
// existing API keys pick up better models automatically; the last entry is
// available to every key.
func NewGeminiClient(ctx context.Context, apiKey string, candidates []string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("generation API key is not set")
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no model candidates configured")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create generation client: %w", err)
	}

	g := &GeminiClient{client: client}
	g.model = g.resolveModel(ctx, candidates)
	return g, nil
}

// resolveModel probes each candidate in order and returns the first that
// responds; if all probes fail it falls back to the last candidate so the
// run can still proceed (per-topic retries handle transient outages).
func (g *GeminiClient) resolveModel(ctx context.Context, candidates []string) string {
	for _, model := range candidates {
		_, err := g.client.Models.GenerateContent(ctx, model, genai.Text(modelProbePrompt), nil)
		if err == nil {
			slog.Info("Generation model resolved", logfields.Model(model))
			return model
		}
		slog.Debug("Model probe failed", logfields.Model(model), logfields.Error(err))
	}
	fallback := candidates[len(candidates)-1]
	slog.Warn("All model probes failed, using last candidate", logfields.Model(fallback))
	return fallback
}

// Generate sends one prompt and returns the raw response text. The caller
// bounds the call with a context deadline.
func (g *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", err
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("generation service returned an empty response")
	}
	return text, nil
}

// ModelName returns the resolved model identifier.
func (g *GeminiClient) ModelName() string { return g.model }

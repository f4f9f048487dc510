// Package llm wraps the generative-AI client behind a one-method interface.
//
// The rest of the app only ever needs "send a prompt, get text back", so
// that's all the interface exposes. Services depend on llm.Client, not on
// the concrete Gemini type — tests substitute a stub and never touch the
// network.
package llm

import (
	"context"
	"errors"
	"fmt"

	genai "google.golang.org/genai"
)

// DefaultModel is the model used when GEMINI_MODEL is not configured.
const DefaultModel = "gemini-2.5-flash"

// ErrEmptyResponse is returned when the API call succeeds but the response
// carries no candidates or no text parts. Callers treat this the same as
// unparsable output — the model returned nothing usable.
var ErrEmptyResponse = errors.New("llm: empty response from model")

// Client is the minimal completion surface the services depend on.
type Client interface {
	// Complete sends the prompt as a single-shot request and returns the
	// model's raw text response. One call, no retries — a failed call is
	// the caller's problem to surface.
	Complete(ctx context.Context, prompt string) (string, error)
}

// Gemini is a thin wrapper around the official genai client.
type Gemini struct {
	cli   *genai.Client
	model string
}

var _ Client = (*Gemini)(nil)

// NewGemini creates a Gemini client for the given API key and model.
// An empty model falls back to DefaultModel.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("llm: API key is required")
	}
	if model == "" {
		model = DefaultModel
	}

	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("llm: creating genai client: %w", err)
	}

	return &Gemini{cli: cli, model: model}, nil
}

// Model returns the configured model identifier (useful for logging).
func (g *Gemini) Model() string { return g.model }

// Complete sends the prompt and returns the first candidate's text.
//
// ResponseMIMEType application/json nudges the API to return bare JSON
// instead of fenced markdown. That is a hint, not a guarantee — the caller
// still parses and validates whatever comes back.
func (g *Gemini) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
		&genai.GenerateContentConfig{ResponseMIMEType: "application/json"},
	)
	if err != nil {
		return "", fmt.Errorf("llm: generating content: %w", err)
	}

	if len(resp.Candidates) == 0 ||
		resp.Candidates[0].Content == nil ||
		len(resp.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyResponse
	}

	return resp.Candidates[0].Content.Parts[0].Text, nil
}

// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes the database
//
// Handlers only know HTTP; services only know business rules; neither knows
// SQL. Services take interfaces (repository.*, llm.Client), not concrete
// types — tests inject mocks, main injects SQLite and Gemini.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/code-reviewer/internal/apperror"
	"github.com/sakif/code-reviewer/internal/llm"
	"github.com/sakif/code-reviewer/internal/model"
)

// DefaultAnalyzeTimeout bounds the upstream model call. Gemini usually
// answers a review prompt within a few seconds; a minute means something is
// wrong upstream, and without a bound a hung call would hang the request
// forever.
const DefaultAnalyzeTimeout = 60 * time.Second

// AnalysisService forwards prompts to the review model and turns its raw
// text output into a validated AIReview.
//
// Single-shot by design: one call, no retries, no repair of bad output.
// A user who hits a flaky response just resubmits.
type AnalysisService struct {
	client  llm.Client
	timeout time.Duration
	logger  *slog.Logger
}

// NewAnalysisService creates an AnalysisService. client may be nil when no
// API key is configured — Analyze then fails with an upstream error instead
// of the server refusing to start. A non-positive timeout falls back to
// DefaultAnalyzeTimeout.
func NewAnalysisService(client llm.Client, timeout time.Duration, logger *slog.Logger) *AnalysisService {
	if timeout <= 0 {
		timeout = DefaultAnalyzeTimeout
	}
	return &AnalysisService{
		client:  client,
		timeout: timeout,
		logger:  logger,
	}
}

// Analyze sends the prompt upstream and parses the response.
//
// Error taxonomy — the two failure classes are deliberately distinct:
//   - apperror.ErrInvalidResponse: the call worked, but the model returned
//     something that isn't the mandated JSON shape (unparsable text,
//     fenced markdown, truncated output, schema violations).
//   - anything else: the call itself failed (transport, auth, timeout).
//     Handlers surface that as a generic internal error; the raw upstream
//     reason goes to the log, never to the client.
func (s *AnalysisService) Analyze(ctx context.Context, promptText string) (*model.AIReview, error) {
	if s.client == nil {
		return nil, fmt.Errorf("analysis: no model client configured")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.client.Complete(ctx, promptText)
	if err != nil {
		if errors.Is(err, llm.ErrEmptyResponse) {
			s.logger.Warn("model returned an empty response")
			return nil, apperror.InvalidResponse("AI returned invalid JSON")
		}
		s.logger.Error("model call failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("analysis: calling model: %w", err)
	}

	var review model.AIReview
	if err := json.Unmarshal([]byte(raw), &review); err != nil {
		s.logger.Warn("model returned unparsable output",
			slog.Int("length", len(raw)),
			slog.String("error", err.Error()),
		)
		return nil, apperror.InvalidResponse("AI returned invalid JSON")
	}

	// Valid JSON is not enough — the shape must match the contract too.
	if err := review.Validate(); err != nil {
		s.logger.Warn("model response failed schema validation", slog.String("error", err.Error()))
		return nil, apperror.InvalidResponse("AI returned invalid JSON")
	}

	s.logger.Info("analysis completed",
		slog.String("title", review.Title),
		slog.Int("bugs", len(review.Bugs)),
		slog.Int("fixes", len(review.Fixes)),
	)

	return &review, nil
}

package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/code-reviewer/internal/apperror"
	"github.com/sakif/code-reviewer/internal/model"
	"github.com/sakif/code-reviewer/internal/repository"
)

// Validation and pagination constants.
const (
	MaxCodeLength    = 100000 // ~100KB of code
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// Pagination is the envelope metadata returned alongside a page of records.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// HistoryPage is one page of a user's review history.
type HistoryPage struct {
	Data       []model.HistoryRecord `json:"data"`
	Pagination Pagination            `json:"pagination"`
}

// ReviewService handles business logic for review history.
//
// Records are write-once: Create and read operations only. The acting user
// is always an argument — callers pass the server-verified session user,
// never a client-supplied identifier.
type ReviewService struct {
	repo   repository.HistoryRepository
	logger *slog.Logger
}

// NewReviewService creates a ReviewService.
func NewReviewService(repo repository.HistoryRepository, logger *slog.Logger) *ReviewService {
	return &ReviewService{
		repo:   repo,
		logger: logger,
	}
}

// Create validates and persists one completed review session.
//
// There is no idempotency key: a create whose response is lost in transit
// cannot be told apart from one that never happened, and a retry writes a
// second record. Known gap, inherited from the API contract.
func (s *ReviewService) Create(ctx context.Context, userID, inputCode, language string, review *model.AIReview) (*model.HistoryRecord, error) {
	if userID == "" {
		return nil, apperror.Unauthorized("User not authenticated")
	}
	if strings.TrimSpace(inputCode) == "" {
		return nil, apperror.ValidationFailed("inputCode", "inputCode is required")
	}
	if len(inputCode) > MaxCodeLength {
		return nil, apperror.ValidationFailed("inputCode",
			fmt.Sprintf("inputCode must be %d characters or less", MaxCodeLength))
	}
	if strings.TrimSpace(language) == "" {
		return nil, apperror.ValidationFailed("language", "language is required")
	}
	if review == nil {
		return nil, apperror.ValidationFailed("aiResponse", "aiResponse is required")
	}
	// The same strict check the analysis gateway applies — a client could
	// POST a hand-crafted record, and we don't persist shapes we couldn't
	// render back.
	if err := review.Validate(); err != nil {
		return nil, err
	}

	record := &model.HistoryRecord{
		UserID:     userID,
		InputCode:  inputCode,
		Language:   strings.TrimSpace(language),
		AIResponse: *review,
	}

	if err := s.repo.Create(ctx, record); err != nil {
		s.logger.Error("failed to create history record",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating history record: %w", err)
	}

	s.logger.Info("history record created",
		slog.String("id", record.ID),
		slog.String("userID", userID),
		slog.String("language", record.Language),
	)

	return record, nil
}

// List returns one page of the user's history, newest first.
//
// page starts at 1; limit defaults to 10 and is clamped to 100. A page past
// the end returns an empty data list with the totals unchanged — not an
// error. totalPages is ceil(total/limit).
func (s *ReviewService) List(ctx context.Context, userID string, page, limit int) (*HistoryPage, error) {
	if userID == "" {
		return nil, apperror.Unauthorized("User not authenticated")
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	offset := (page - 1) * limit

	records, total, err := s.repo.ListByUser(ctx, userID, repository.ListOptions{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		s.logger.Error("failed to list history",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing history: %w", err)
	}

	return &HistoryPage{
		Data: records,
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: (total + limit - 1) / limit,
		},
	}, nil
}

// GetByID returns a single record, but only to its owner.
// A record that exists but belongs to someone else is Forbidden, not
// NotFound — the id itself is not a secret.
func (s *ReviewService) GetByID(ctx context.Context, userID, id string) (*model.HistoryRecord, error) {
	if userID == "" {
		return nil, apperror.Unauthorized("User not authenticated")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "history record ID is required")
	}

	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if record.UserID != userID {
		return nil, apperror.Forbidden("history record belongs to another user")
	}

	return record, nil
}

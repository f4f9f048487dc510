package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/code-reviewer/internal/apperror"
	"github.com/sakif/code-reviewer/internal/auth"
	"github.com/sakif/code-reviewer/internal/model"
	"github.com/sakif/code-reviewer/internal/service"
)

// HistoryHandler manages a user's persisted review sessions.
//
// Every route here sits behind RequireAuth, so the userID is always read
// from the request context — never from the request body or query string.
// A client-supplied userId is tolerated only when it matches the session;
// a mismatch is a 403, not a silent override.
type HistoryHandler struct {
	reviews *service.ReviewService
	logger  *slog.Logger
}

func NewHistoryHandler(reviews *service.ReviewService, logger *slog.Logger) *HistoryHandler {
	return &HistoryHandler{reviews: reviews, logger: logger}
}

type createHistoryRequest struct {
	UserID     string          `json:"userId"` // optional; must match the session if set
	InputCode  string          `json:"inputCode"`
	Language   string          `json:"language"`
	AIResponse *model.AIReview `json:"aiResponse"`
}

// HandleCreate saves one completed review session.
//
// HTTP: POST /api/history
// REQUEST BODY: {"inputCode": "...", "language": "python", "aiResponse": {...}}
// RESPONSE: 201 with the stored record (including its ID and timestamp).
func (h *HistoryHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("User not authenticated"))
		return
	}

	var req createHistoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	if req.UserID != "" && req.UserID != userID {
		writeError(w, apperror.Forbidden("cannot write history for another user"))
		return
	}

	record, err := h.reviews.Create(r.Context(), userID, req.InputCode, req.Language, req.AIResponse)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, record)
}

// HandleList returns one page of the session user's history, newest first.
//
// HTTP: GET /api/history?page=1&limit=10
// RESPONSE: {"data": [...], "pagination": {"page":1,"limit":10,"total":42,"totalPages":5}}
//
// Unparsable page/limit values fall back to the defaults rather than
// erroring — a mistyped query string isn't worth a 400 here.
func (h *HistoryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("User not authenticated"))
		return
	}

	if requested := r.URL.Query().Get("userId"); requested != "" && requested != userID {
		writeError(w, apperror.Forbidden("cannot read another user's history"))
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	result, err := h.reviews.List(r.Context(), userID, page, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HandleGet returns a single history record.
//
// HTTP: GET /api/history/{id}
// RESPONSE: 200 with the record, 404 if it doesn't exist, 403 if it
// belongs to another user.
func (h *HistoryHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("User not authenticated"))
		return
	}

	record, err := h.reviews.GetByID(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, record)
}

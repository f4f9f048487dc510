// Package handler contains the HTTP layer: request parsing, response
// writing, cookie management. Business rules live in the service layer;
// handlers translate between HTTP and services.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/code-reviewer/internal/apperror"
)

// ErrorResponse is the error shape every endpoint returns. The single
// "error" field carries the human-readable message — clients key their UI
// off the HTTP status and show the message as-is, e.g.
//
//	401 {"error": "User not authenticated"}
//	400 {"error": "Prompt missing"}
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeJSON sends a JSON response with the given status code.
// Headers and status must be set before the first body write — Encode
// writes, so the order here is fixed.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already gone; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to an HTTP status and the standard error
// body. This is the only place domain errors meet HTTP status codes — the
// service layer stays protocol-agnostic.
//
// errors.Is walks the wrap chain, so a service error like
// fmt.Errorf("creating record: %w", apperror.ValidationFailed(...)) still
// maps to 400.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
		case errors.Is(err, apperror.ErrUnauthorized):
			status = http.StatusUnauthorized
		case errors.Is(err, apperror.ErrForbidden):
			status = http.StatusForbidden
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusConflict
		case errors.Is(err, apperror.ErrQuotaExceeded):
			status = http.StatusTooManyRequests
		case errors.Is(err, apperror.ErrInvalidResponse):
			// The model call worked but the output was garbage. Still a
			// 500 from the client's point of view, but with a message
			// that tells them retrying may help.
			status = http.StatusInternalServerError
		}

		writeJSON(w, status, ErrorResponse{Error: appErr.Message})
		return
	}

	// Unknown error: the raw message may carry SQL, file paths, or upstream
	// API details. The client gets the generic body; the cause was already
	// logged where it happened.
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Internal error"})
}

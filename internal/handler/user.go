package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/code-reviewer/internal/apperror"
	"github.com/sakif/code-reviewer/internal/auth"
	"github.com/sakif/code-reviewer/internal/service"
)

// UserHandler manages user account endpoints.
type UserHandler struct {
	users  *service.UserService
	logger *slog.Logger
}

func NewUserHandler(users *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

type createUserRequest struct {
	Email     string `json:"email"`
	Name      string `json:"name"`
	AvatarURL string `json:"image"`
	Provider  string `json:"provider"`
}

type updateUserRequest struct {
	Name      string `json:"name"`
	AvatarURL string `json:"image"`
}

// HandleCreate creates a user account, or returns the existing one when the
// email is already registered.
//
// HTTP: POST /api/users
// REQUEST BODY: {"email": "a@b.c", "name": "A", "image": "...", "provider": "github"}
// RESPONSE: 201 with the new user, or 200 with the existing one.
//
// Create-or-return rather than create-or-conflict: the caller is typically
// a sign-in flow that only cares about ending up with an account, and
// repeating it must not fail.
func (h *UserHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	user, created, err := h.users.CreateOrGet(r.Context(), req.Email, req.Name, req.AvatarURL, req.Provider)
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, user)
}

// HandleList returns all users.
//
// HTTP: GET /api/users
func (h *UserHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// HandleGet returns a single user by ID.
//
// HTTP: GET /api/users/{id}
// RESPONSE: 200 with the user, or an explicit 404 when the ID is unknown.
func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleUpdate changes the session user's display name and avatar.
//
// HTTP: PUT /api/users/{id} (authenticated; id must be the session user)
func (h *UserHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("User not authenticated"))
		return
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	user, err := h.users.Update(r.Context(), userID, r.PathValue("id"), req.Name, req.AvatarURL)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleDelete removes the session user's account and, via the database
// cascade, all of their history.
//
// HTTP: DELETE /api/users/{id} (authenticated; id must be the session user)
// RESPONSE: 204 on success. The session cookie is cleared — the account
// behind it no longer exists.
func (h *UserHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("User not authenticated"))
		return
	}

	if err := h.users.Delete(r.Context(), userID, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}

	clearCookie(w, auth.SessionCookie)
	w.WriteHeader(http.StatusNoContent)
}

// clearCookie expires a cookie immediately.
func clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

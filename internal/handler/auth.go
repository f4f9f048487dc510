package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/code-reviewer/internal/apperror"
	"github.com/sakif/code-reviewer/internal/auth"
	"github.com/sakif/code-reviewer/internal/service"
)

const stateCookieName = "oauth_state"

// AuthHandler runs the OAuth login flow and session endpoints for every
// configured provider. Providers are looked up by the {provider} URL
// segment, so adding one is a map entry, not a new set of handlers.
type AuthHandler struct {
	providers map[string]*auth.Provider
	auth      *service.AuthService
	logger    *slog.Logger
}

func NewAuthHandler(providers map[string]*auth.Provider, authSvc *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		providers: providers,
		auth:      authSvc,
		logger:    logger,
	}
}

func (h *AuthHandler) provider(r *http.Request) (*auth.Provider, bool) {
	p, ok := h.providers[r.PathValue("provider")]
	return p, ok
}

// HandleLogin starts the OAuth flow for a provider.
//
// HTTP: GET /auth/{provider}/login
//
// The random state lands in a short-lived cookie; the callback checks it
// matches what the provider echoes back. That ties the callback to a flow
// this server started — a CSRF guard.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	p, ok := h.provider(r)
	if !ok {
		writeError(w, apperror.NotFound("provider", r.PathValue("provider")))
		return
	}

	state := xid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // long enough to approve, short enough to limit replay
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, p.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleCallback completes the OAuth flow.
//
// HTTP: GET /auth/{provider}/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Verify the state parameter against the cookie (CSRF check)
//  2. Exchange the code for a verified profile
//  3. Resolve the profile to a local account (created on first sign-in)
//  4. Issue the JWT session cookie
//  5. Redirect to the app
func (h *AuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	p, ok := h.provider(r)
	if !ok {
		writeError(w, apperror.NotFound("provider", r.PathValue("provider")))
		return
	}

	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" || r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("auth callback: state check failed",
			slog.String("provider", p.Name()),
		)
		writeError(w, apperror.ValidationFailed("state", "invalid OAuth state"))
		return
	}
	clearCookie(w, stateCookieName) // single-use

	// The provider reports the user denying authorization as an error param.
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: authorization denied",
			slog.String("provider", p.Name()),
			slog.String("error", errParam),
		)
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, apperror.ValidationFailed("code", "missing OAuth code"))
		return
	}

	profile, err := p.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: exchange failed",
			slog.String("provider", p.Name()),
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Internal error"})
		return
	}

	result, err := h.auth.LoginOrRegister(r.Context(), profile)
	if err != nil {
		h.logger.Error("auth callback: login failed",
			slog.String("provider", p.Name()),
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Internal error"})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    result.Token,
		Path:     "/",
		MaxAge:   int(auth.SessionDuration / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		// Secure: true, // requires HTTPS; enable behind TLS
	})

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleLogout clears the session cookie.
//
// HTTP: POST /auth/logout
//
// POST, not GET: logout changes state, and GET would be open to CSRF and
// browser prefetching. Sessions are stateless JWTs, so "logout" is purely
// deleting the cookie — the token stays valid until expiry, but nothing
// sends it anymore.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	clearCookie(w, auth.SessionCookie)
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleMe returns the authenticated user's profile.
//
// HTTP: GET /api/me (authenticated)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		// Unreachable behind RequireAuth, kept for safety.
		writeError(w, apperror.Unauthorized("User not authenticated"))
		return
	}

	user, err := h.auth.GetUserByID(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

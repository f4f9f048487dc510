package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/code-reviewer/internal/auth"
	"github.com/sakif/code-reviewer/internal/prompt"
	"github.com/sakif/code-reviewer/internal/quota"
	"github.com/sakif/code-reviewer/internal/service"
)

// AnonCookie identifies an anonymous visitor for quota accounting. It is an
// opaque random ID, not a session — it grants nothing, it only counts.
const AnonCookie = "anon_token"

const anonCookieMaxAge = 365 * 24 * time.Hour

// AnalyzeHandler runs code through the review model.
type AnalyzeHandler struct {
	analysis *service.AnalysisService
	gate     *quota.Gate
	logger   *slog.Logger
}

func NewAnalyzeHandler(analysis *service.AnalysisService, gate *quota.Gate, logger *slog.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{
		analysis: analysis,
		gate:     gate,
		logger:   logger,
	}
}

// analyzeRequest accepts either a pre-built prompt or raw code plus a
// language. When both are present, the explicit prompt wins.
type analyzeRequest struct {
	Prompt   string `json:"prompt"`
	Code     string `json:"code"`
	Language string `json:"language"`
}

// HandleAnalyze reviews submitted code.
//
// HTTP: POST /api/analyze
// REQUEST BODY: {"prompt": "..."} or {"code": "...", "language": "python"}
// RESPONSE: the structured review (200), or
//
//	400 {"error": "Prompt missing"}
//	429 {"error": "Demo limit reached. Please sign in to continue."}
//	500 {"error": "AI returned invalid JSON"} / {"error": "Internal error"}
//
// Anonymous visitors are identified by the AnonCookie and get a limited
// number of free analyses. The quota is checked before the model call and
// consumed only after a successful one — a failed call costs nothing.
// Signed-in users bypass the quota entirely.
func (h *AnalyzeHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Prompt missing"})
		return
	}

	promptText := strings.TrimSpace(req.Prompt)
	if promptText == "" {
		if strings.TrimSpace(req.Code) == "" {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Prompt missing"})
			return
		}
		promptText = prompt.Build(req.Code, req.Language)
	}

	_, authenticated := auth.UserIDFromContext(r.Context())

	var anonToken string
	if !authenticated {
		anonToken = h.anonToken(w, r)
		if err := h.gate.Check(r.Context(), anonToken); err != nil {
			writeError(w, err)
			return
		}
	}

	review, err := h.analysis.Analyze(r.Context(), promptText)
	if err != nil {
		writeError(w, err)
		return
	}

	if !authenticated {
		if err := h.gate.Consume(r.Context(), anonToken); err != nil {
			// The analysis already succeeded; a broken counter shouldn't
			// take the response down with it.
			h.logger.Error("failed to consume quota", slog.String("error", err.Error()))
		}
		if remaining, err := h.gate.Remaining(r.Context(), anonToken); err == nil {
			w.Header().Set("X-Quota-Remaining", strconv.Itoa(remaining))
		}
	}

	writeJSON(w, http.StatusOK, review)
}

// anonToken returns the visitor's quota token, minting a cookie on first
// sight. The cookie is HttpOnly like the session cookie — nothing on the
// page needs to read it.
func (h *AnalyzeHandler) anonToken(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(AnonCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	token := xid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     AnonCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(anonCookieMaxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return token
}

package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/code-reviewer/internal/auth"
	"github.com/sakif/code-reviewer/internal/handler"
	"github.com/sakif/code-reviewer/internal/model"
	"github.com/sakif/code-reviewer/internal/quota"
	"github.com/sakif/code-reviewer/internal/service"
)

// mockClient stands in for the Gemini client. It captures the prompt so
// tests can assert on what the handler actually sent upstream.
type mockClient struct {
	CapturedPrompt string
	Response       string
	Err            error
	Calls          int
}

func (m *mockClient) Complete(_ context.Context, prompt string) (string, error) {
	m.Calls++
	m.CapturedPrompt = prompt
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

const reviewJSON = `{
	"title": "Looks Fine",
	"bugs": [],
	"fixes": [],
	"explanation": [],
	"complexity": {"time": "O(1)", "space": "O(1)", "explanation": "trivial"},
	"finalCode": "print('ok')"
}`

func newAnalyzeHandler(client *mockClient) *handler.AnalyzeHandler {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	analysis := service.NewAnalysisService(client, 0, logger)
	gate := quota.NewGate(quota.NewMemoryStore(), quota.DefaultLimit)
	return handler.NewAnalyzeHandler(analysis, gate, logger)
}

func TestAnalyzeHandler_HandleAnalyze(t *testing.T) {
	t.Run("authenticated analyze", func(t *testing.T) {
		client := &mockClient{Response: reviewJSON}
		h := newAnalyzeHandler(client)

		req := httptest.NewRequest(http.MethodPost, "/api/analyze",
			bytes.NewBufferString(`{"prompt":"review my code"}`))
		req = req.WithContext(auth.WithUserID(req.Context(), "user-1"))
		rr := httptest.NewRecorder()

		h.HandleAnalyze(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "review my code", client.CapturedPrompt)

		var review model.AIReview
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&review))
		assert.Equal(t, "Looks Fine", review.Title)
	})

	t.Run("code and language build the prompt", func(t *testing.T) {
		client := &mockClient{Response: reviewJSON}
		h := newAnalyzeHandler(client)

		req := httptest.NewRequest(http.MethodPost, "/api/analyze",
			bytes.NewBufferString(`{"code":"def f(): pass","language":"python"}`))
		req = req.WithContext(auth.WithUserID(req.Context(), "user-1"))
		rr := httptest.NewRecorder()

		h.HandleAnalyze(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, client.CapturedPrompt, "def f(): pass")
		assert.Contains(t, client.CapturedPrompt, "python")
	})

	t.Run("empty body is Prompt missing", func(t *testing.T) {
		client := &mockClient{Response: reviewJSON}
		h := newAnalyzeHandler(client)

		req := httptest.NewRequest(http.MethodPost, "/api/analyze", bytes.NewBufferString(`{}`))
		rr := httptest.NewRecorder()

		h.HandleAnalyze(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.JSONEq(t, `{"error":"Prompt missing"}`, rr.Body.String())
		assert.Zero(t, client.Calls, "model must not be called without a prompt")
	})

	t.Run("malformed JSON is Prompt missing", func(t *testing.T) {
		client := &mockClient{Response: reviewJSON}
		h := newAnalyzeHandler(client)

		req := httptest.NewRequest(http.MethodPost, "/api/analyze", bytes.NewBufferString(`{"prompt":`))
		rr := httptest.NewRecorder()

		h.HandleAnalyze(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.JSONEq(t, `{"error":"Prompt missing"}`, rr.Body.String())
	})

	t.Run("invalid model output", func(t *testing.T) {
		client := &mockClient{Response: "I am not JSON"}
		h := newAnalyzeHandler(client)

		req := httptest.NewRequest(http.MethodPost, "/api/analyze",
			bytes.NewBufferString(`{"prompt":"review"}`))
		req = req.WithContext(auth.WithUserID(req.Context(), "user-1"))
		rr := httptest.NewRecorder()

		h.HandleAnalyze(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.JSONEq(t, `{"error":"AI returned invalid JSON"}`, rr.Body.String())
	})
}

func TestAnalyzeHandler_AnonymousQuota(t *testing.T) {
	client := &mockClient{Response: reviewJSON}
	h := newAnalyzeHandler(client)

	// First anonymous call mints the visitor cookie; later calls carry it.
	var anonCookie *http.Cookie

	analyze := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/analyze",
			bytes.NewBufferString(`{"prompt":"review"}`))
		if anonCookie != nil {
			req.AddCookie(anonCookie)
		}
		rr := httptest.NewRecorder()
		h.HandleAnalyze(rr, req)

		for _, c := range rr.Result().Cookies() {
			if c.Name == handler.AnonCookie {
				anonCookie = c
			}
		}
		return rr
	}

	for i := 1; i <= quota.DefaultLimit; i++ {
		rr := analyze()
		require.Equal(t, http.StatusOK, rr.Code, "attempt %d should be allowed", i)
	}
	require.NotNil(t, anonCookie, "first response should set the visitor cookie")

	// The limit is spent — the next attempt is blocked before the model.
	callsBefore := client.Calls
	rr := analyze()
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.JSONEq(t, `{"error":"Demo limit reached. Please sign in to continue."}`, rr.Body.String())
	assert.Equal(t, callsBefore, client.Calls, "blocked attempt must not reach the model")

	// A signed-in user with the same cookie is not subject to the quota.
	req := httptest.NewRequest(http.MethodPost, "/api/analyze",
		bytes.NewBufferString(`{"prompt":"review"}`))
	req.AddCookie(anonCookie)
	req = req.WithContext(auth.WithUserID(req.Context(), "user-1"))
	rec := httptest.NewRecorder()
	h.HandleAnalyze(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAnalyzeHandler_FailedCallDoesNotConsumeQuota(t *testing.T) {
	client := &mockClient{Err: context.DeadlineExceeded}
	h := newAnalyzeHandler(client)

	req := httptest.NewRequest(http.MethodPost, "/api/analyze",
		bytes.NewBufferString(`{"prompt":"review"}`))
	rr := httptest.NewRecorder()
	h.HandleAnalyze(rr, req)
	require.Equal(t, http.StatusInternalServerError, rr.Code)

	var cookie *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == handler.AnonCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)

	// The failed attempts didn't count: a full set of successes remains.
	client.Err = nil
	client.Response = reviewJSON
	for i := 1; i <= quota.DefaultLimit; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/analyze",
			bytes.NewBufferString(`{"prompt":"review"}`))
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		h.HandleAnalyze(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, "attempt %d should be allowed", i)
	}
}

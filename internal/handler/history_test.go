package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/code-reviewer/internal/apperror"
	"github.com/sakif/code-reviewer/internal/auth"
	"github.com/sakif/code-reviewer/internal/handler"
	"github.com/sakif/code-reviewer/internal/model"
	"github.com/sakif/code-reviewer/internal/repository"
	"github.com/sakif/code-reviewer/internal/service"
)

// fakeHistoryRepo is an in-memory repository.HistoryRepository for handler
// tests. Newest-first like the real one.
type fakeHistoryRepo struct {
	records []model.HistoryRecord
	nextID  int
}

func (f *fakeHistoryRepo) Create(_ context.Context, record *model.HistoryRecord) error {
	f.nextID++
	record.ID = fmt.Sprintf("hist-%d", f.nextID)
	record.CreatedAt = time.Now()
	f.records = append(f.records, *record)
	return nil
}

func (f *fakeHistoryRepo) GetByID(_ context.Context, id string) (*model.HistoryRecord, error) {
	for i := range f.records {
		if f.records[i].ID == id {
			r := f.records[i]
			return &r, nil
		}
	}
	return nil, apperror.NotFound("history record", id)
}

func (f *fakeHistoryRepo) ListByUser(_ context.Context, userID string, opts repository.ListOptions) ([]model.HistoryRecord, int, error) {
	var owned []model.HistoryRecord
	for i := len(f.records) - 1; i >= 0; i-- {
		if f.records[i].UserID == userID {
			owned = append(owned, f.records[i])
		}
	}
	total := len(owned)
	if opts.Offset >= total {
		return []model.HistoryRecord{}, total, nil
	}
	owned = owned[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(owned) {
		owned = owned[:opts.Limit]
	}
	return owned, total, nil
}

func newHistoryHandler() (*handler.HistoryHandler, *fakeHistoryRepo) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	repo := &fakeHistoryRepo{}
	return handler.NewHistoryHandler(service.NewReviewService(repo, logger), logger), repo
}

func historyBody(t *testing.T) *bytes.Buffer {
	t.Helper()
	body := map[string]any{
		"inputCode": "print('hi')",
		"language":  "python",
		"aiResponse": map[string]any{
			"title":      "Fine",
			"bugs":       []any{},
			"fixes":      []any{},
			"complexity": map[string]string{"time": "O(1)", "space": "O(1)"},
			"finalCode":  "print('hi')",
		},
	}
	buf := &bytes.Buffer{}
	require.NoError(t, json.NewEncoder(buf).Encode(body))
	return buf
}

func authed(req *http.Request, userID string) *http.Request {
	return req.WithContext(auth.WithUserID(req.Context(), userID))
}

func TestHistoryHandler_HandleCreate(t *testing.T) {
	t.Run("creates a record for the session user", func(t *testing.T) {
		h, _ := newHistoryHandler()

		req := authed(httptest.NewRequest(http.MethodPost, "/api/history", historyBody(t)), "user-1")
		rr := httptest.NewRecorder()
		h.HandleCreate(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)

		var record model.HistoryRecord
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&record))
		assert.NotEmpty(t, record.ID)
		assert.Equal(t, "user-1", record.UserID)
		assert.Equal(t, "Fine", record.AIResponse.Title)
	})

	t.Run("no session is 401", func(t *testing.T) {
		h, _ := newHistoryHandler()

		req := httptest.NewRequest(http.MethodPost, "/api/history", historyBody(t))
		rr := httptest.NewRecorder()
		h.HandleCreate(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.JSONEq(t, `{"error":"User not authenticated"}`, rr.Body.String())
	})

	t.Run("body userId mismatched with session is 403", func(t *testing.T) {
		h, _ := newHistoryHandler()

		body := `{"userId":"someone-else","inputCode":"x","language":"go","aiResponse":{"title":"t","complexity":{"time":"O(1)","space":"O(1)"},"finalCode":"x"}}`
		req := authed(httptest.NewRequest(http.MethodPost, "/api/history", bytes.NewBufferString(body)), "user-1")
		rr := httptest.NewRecorder()
		h.HandleCreate(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("invalid review shape is 400", func(t *testing.T) {
		h, _ := newHistoryHandler()

		body := `{"inputCode":"x","language":"go","aiResponse":{"bugs":[]}}`
		req := authed(httptest.NewRequest(http.MethodPost, "/api/history", bytes.NewBufferString(body)), "user-1")
		rr := httptest.NewRecorder()
		h.HandleCreate(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestHistoryHandler_HandleList(t *testing.T) {
	seed := func(t *testing.T, h *handler.HistoryHandler, userID string, n int) {
		t.Helper()
		for i := 0; i < n; i++ {
			req := authed(httptest.NewRequest(http.MethodPost, "/api/history", historyBody(t)), userID)
			rr := httptest.NewRecorder()
			h.HandleCreate(rr, req)
			require.Equal(t, http.StatusCreated, rr.Code)
		}
	}

	t.Run("pagination envelope", func(t *testing.T) {
		h, _ := newHistoryHandler()
		seed(t, h, "user-1", 3)

		req := authed(httptest.NewRequest(http.MethodGet, "/api/history?page=2&limit=2", nil), "user-1")
		rr := httptest.NewRecorder()
		h.HandleList(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)

		var page service.HistoryPage
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&page))
		assert.Len(t, page.Data, 1)
		assert.Equal(t, 2, page.Pagination.Page)
		assert.Equal(t, 2, page.Pagination.Limit)
		assert.Equal(t, 3, page.Pagination.Total)
		assert.Equal(t, 2, page.Pagination.TotalPages)
	})

	t.Run("defaults applied to missing query params", func(t *testing.T) {
		h, _ := newHistoryHandler()
		seed(t, h, "user-1", 1)

		req := authed(httptest.NewRequest(http.MethodGet, "/api/history", nil), "user-1")
		rr := httptest.NewRecorder()
		h.HandleList(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)

		var page service.HistoryPage
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&page))
		assert.Equal(t, 1, page.Pagination.Page)
		assert.Equal(t, service.DefaultPageLimit, page.Pagination.Limit)
	})

	t.Run("userId query mismatched with session is 403", func(t *testing.T) {
		h, _ := newHistoryHandler()

		req := authed(httptest.NewRequest(http.MethodGet, "/api/history?userId=someone-else", nil), "user-1")
		rr := httptest.NewRecorder()
		h.HandleList(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("no session is 401", func(t *testing.T) {
		h, _ := newHistoryHandler()

		req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
		rr := httptest.NewRecorder()
		h.HandleList(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.JSONEq(t, `{"error":"User not authenticated"}`, rr.Body.String())
	})
}

func TestHistoryHandler_HandleGet(t *testing.T) {
	t.Run("owner reads their record", func(t *testing.T) {
		h, repo := newHistoryHandler()

		createReq := authed(httptest.NewRequest(http.MethodPost, "/api/history", historyBody(t)), "user-1")
		createRR := httptest.NewRecorder()
		h.HandleCreate(createRR, createReq)
		require.Equal(t, http.StatusCreated, createRR.Code)
		id := repo.records[0].ID

		req := authed(httptest.NewRequest(http.MethodGet, "/api/history/"+id, nil), "user-1")
		req.SetPathValue("id", id)
		rr := httptest.NewRecorder()
		h.HandleGet(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("another user's record is 403", func(t *testing.T) {
		h, repo := newHistoryHandler()

		createReq := authed(httptest.NewRequest(http.MethodPost, "/api/history", historyBody(t)), "user-1")
		createRR := httptest.NewRecorder()
		h.HandleCreate(createRR, createReq)
		id := repo.records[0].ID

		req := authed(httptest.NewRequest(http.MethodGet, "/api/history/"+id, nil), "user-2")
		req.SetPathValue("id", id)
		rr := httptest.NewRecorder()
		h.HandleGet(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("unknown id is 404", func(t *testing.T) {
		h, _ := newHistoryHandler()

		req := authed(httptest.NewRequest(http.MethodGet, "/api/history/nope", nil), "user-1")
		req.SetPathValue("id", "nope")
		rr := httptest.NewRecorder()
		h.HandleGet(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

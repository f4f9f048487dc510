// Package quota tracks anonymous analysis attempts.
//
// Unauthenticated visitors get a small number of free analyses before being
// asked to sign in. The counter lives behind the Store interface so the
// business rule (the Gate) never touches storage directly — production wires
// the SQLite-backed store, tests wire MemoryStore.
//
// This is a soft limit, not a security control. A visitor who clears their
// cookie gets a fresh counter; concurrent requests from the same visitor may
// race and over- or under-count by one. Both are acceptable for a UX nudge.
package quota

import (
	"context"
	"fmt"
	"sync"

	"github.com/sakif/code-reviewer/internal/apperror"
)

// DefaultLimit is how many analyses an anonymous visitor gets for free.
const DefaultLimit = 3

// Store persists per-visitor attempt counters, keyed by an opaque token.
type Store interface {
	// Get returns the current attempt count for the token (0 if unseen).
	Get(ctx context.Context, token string) (int, error)
	// Increment adds one attempt and returns the new count.
	Increment(ctx context.Context, token string) (int, error)
	// Reset clears the counter for the token.
	Reset(ctx context.Context, token string) error
}

// Gate applies the attempt limit on top of a Store.
type Gate struct {
	store Store
	limit int
}

// NewGate creates a Gate. A non-positive limit falls back to DefaultLimit.
func NewGate(store Store, limit int) *Gate {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Gate{store: store, limit: limit}
}

// Check returns an error if the token has exhausted its free attempts.
// It does NOT consume an attempt — call Consume after the analysis actually
// completes, so a failed upstream call doesn't burn the visitor's quota.
func (g *Gate) Check(ctx context.Context, token string) error {
	count, err := g.store.Get(ctx, token)
	if err != nil {
		return fmt.Errorf("quota: reading counter: %w", err)
	}
	if count >= g.limit {
		return apperror.QuotaExceeded("Demo limit reached. Please sign in to continue.")
	}
	return nil
}

// Consume records one completed anonymous analysis.
func (g *Gate) Consume(ctx context.Context, token string) error {
	if _, err := g.store.Increment(ctx, token); err != nil {
		return fmt.Errorf("quota: incrementing counter: %w", err)
	}
	return nil
}

// Remaining reports how many free attempts the token has left (never negative).
func (g *Gate) Remaining(ctx context.Context, token string) (int, error) {
	count, err := g.store.Get(ctx, token)
	if err != nil {
		return 0, fmt.Errorf("quota: reading counter: %w", err)
	}
	if count >= g.limit {
		return 0, nil
	}
	return g.limit - count, nil
}

// MemoryStore is an in-process Store. Used in tests and as a fallback when
// no database-backed store is wired.
type MemoryStore struct {
	mu     sync.Mutex
	counts map[string]int
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counts: make(map[string]int)}
}

func (m *MemoryStore) Get(_ context.Context, token string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[token], nil
}

func (m *MemoryStore) Increment(_ context.Context, token string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[token]++
	return m.counts[token], nil
}

func (m *MemoryStore) Reset(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.counts, token)
	return nil
}

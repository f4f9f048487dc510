package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sakif/code-reviewer/internal/quota"
)

// compile-time check that *DB implements quota.Store
var _ quota.Store = (*DB)(nil)

// Get returns the attempt count for an anonymous visitor token.
// An unseen token counts as zero — not an error.
func (db *DB) Get(ctx context.Context, token string) (int, error) {
	var attempts int
	err := db.conn.QueryRowContext(ctx,
		`SELECT attempts FROM quota_counters WHERE token = ?`, token,
	).Scan(&attempts)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("sqlite: reading quota counter %s: %w", token, err)
	}
	return attempts, nil
}

// Increment adds one attempt, creating the counter row on first use, and
// returns the new count. The upsert is a single statement, so concurrent
// increments for the same token serialize at the database.
func (db *DB) Increment(ctx context.Context, token string) (int, error) {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO quota_counters (token, attempts, updated_at)
		 VALUES (?, 1, ?)
		 ON CONFLICT(token) DO UPDATE SET
			attempts = attempts + 1,
			updated_at = excluded.updated_at`,
		token,
		time.Now(),
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: incrementing quota counter %s: %w", token, err)
	}

	return db.Get(ctx, token)
}

// Reset clears the counter for a token. Deleting a row that doesn't exist
// is fine — reset of an unseen token is a no-op.
func (db *DB) Reset(ctx context.Context, token string) error {
	_, err := db.conn.ExecContext(ctx,
		`DELETE FROM quota_counters WHERE token = ?`, token,
	)
	if err != nil {
		return fmt.Errorf("sqlite: resetting quota counter %s: %w", token, err)
	}
	return nil
}

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/code-reviewer/internal/apperror"
	"github.com/sakif/code-reviewer/internal/model"
	"github.com/sakif/code-reviewer/internal/repository"
)

// compile-time check that *DB implements repository.HistoryRepository
var _ repository.HistoryRepository = (*DB)(nil)

// Create inserts a review-history record and fills in the generated ID and
// timestamp on the caller's struct.
//
// The AI review is serialized to JSON and stored in a single TEXT column.
// We never query inside the review — it's written once and read back whole,
// so a document-in-a-column beats fifteen normalized tables here.
func (db *DB) Create(ctx context.Context, record *model.HistoryRecord) error {
	record.ID = xid.New().String()
	record.CreatedAt = time.Now()

	response, err := json.Marshal(record.AIResponse)
	if err != nil {
		return fmt.Errorf("sqlite: encoding AI response: %w", err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO history (id, user_id, input_code, language, ai_response, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.UserID,
		record.InputCode,
		record.Language,
		string(response),
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating history record: %w", err)
	}

	return nil
}

// GetByID retrieves a single history record.
// Returns apperror.ErrNotFound if no record exists with that ID.
func (db *DB) GetByID(ctx context.Context, id string) (*model.HistoryRecord, error) {
	var (
		rec      model.HistoryRecord
		response string
	)

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, input_code, language, ai_response, created_at
		 FROM history
		 WHERE id = ?`,
		id,
	).Scan(
		&rec.ID,
		&rec.UserID,
		&rec.InputCode,
		&rec.Language,
		&response,
		&rec.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("history record", id)
		}
		return nil, fmt.Errorf("sqlite: getting history record %s: %w", id, err)
	}

	if err := json.Unmarshal([]byte(response), &rec.AIResponse); err != nil {
		return nil, fmt.Errorf("sqlite: decoding AI response for %s: %w", id, err)
	}

	return &rec, nil
}

// ListByUser returns one page of the user's records plus the total count.
//
// Ordering is created_at DESC with id DESC as tiebreak — xids are generated
// in creation order, so two records written in the same millisecond still
// come back newest-first deterministically.
//
// An unknown user isn't an error: it produces an empty page with total 0,
// same as a known user with no history.
func (db *DB) ListByUser(ctx context.Context, userID string, opts repository.ListOptions) ([]model.HistoryRecord, int, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	// Total first — the pagination envelope needs it even when the
	// requested page is past the end.
	var total int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM history WHERE user_id = ?`, userID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting history for user %s: %w", userID, err)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, input_code, language, ai_response, created_at
		 FROM history
		 WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ? OFFSET ?`,
		userID,
		limit,
		offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: listing history for user %s: %w", userID, err)
	}
	defer rows.Close()

	records := make([]model.HistoryRecord, 0, limit)
	for rows.Next() {
		var (
			rec      model.HistoryRecord
			response string
		)
		if err := rows.Scan(
			&rec.ID, &rec.UserID, &rec.InputCode, &rec.Language,
			&response, &rec.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("sqlite: scanning history row: %w", err)
		}
		if err := json.Unmarshal([]byte(response), &rec.AIResponse); err != nil {
			return nil, 0, fmt.Errorf("sqlite: decoding AI response for %s: %w", rec.ID, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("sqlite: iterating history rows: %w", err)
	}

	return records, total, nil
}

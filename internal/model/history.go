package model

import "time"

// HistoryRecord is one persisted code-review session: the code the user
// submitted, the language they declared, and the AI review that came back.
//
// Records are immutable once created — there is no update path, and no
// UpdatedAt field for the same reason. Each record belongs to exactly one
// user; listing is always scoped to the owner and ordered newest-first.
type HistoryRecord struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	InputCode  string    `json:"inputCode"`
	Language   string    `json:"language"`
	AIResponse AIReview  `json:"aiResponse"`
	CreatedAt  time.Time `json:"createdAt"`
}

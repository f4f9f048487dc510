// Package repository defines the storage interfaces the service layer
// depends on. Concrete implementations live in subpackages (sqlite);
// services only ever see these interfaces, so storage can be swapped —
// or mocked in tests — without touching business logic.
package repository

import (
	"context"

	"github.com/sakif/code-reviewer/internal/model"
)

// ListOptions carries pagination parameters down to the storage layer.
type ListOptions struct {
	Limit  int
	Offset int
}

// UserRepository persists user accounts. Method names carry the User
// prefix/suffix because the SQLite DB type implements this alongside
// HistoryRepository on the same receiver.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	// GetUserByEmail returns apperror.ErrNotFound when no user has that
	// email — the identity resolver turns that into "create a new account".
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	UpdateUser(ctx context.Context, user *model.User) error
	// DeleteUser is a hard delete; history records owned by the user go with it.
	DeleteUser(ctx context.Context, id string) error
}

// HistoryRepository persists code-review sessions. Records are immutable:
// there is deliberately no Update method.
type HistoryRepository interface {
	Create(ctx context.Context, record *model.HistoryRecord) error
	GetByID(ctx context.Context, id string) (*model.HistoryRecord, error)
	// ListByUser returns one page of the user's records, newest first,
	// plus the total number of records the user owns (for pagination).
	ListByUser(ctx context.Context, userID string, opts ListOptions) ([]model.HistoryRecord, int, error)
}

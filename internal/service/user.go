package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/sakif/code-reviewer/internal/apperror"
	"github.com/sakif/code-reviewer/internal/model"
	"github.com/sakif/code-reviewer/internal/repository"
)

const maxNameLength = 255

// UserService handles business logic for user accounts.
type UserService struct {
	repo   repository.UserRepository
	logger *slog.Logger
}

func NewUserService(repo repository.UserRepository, logger *slog.Logger) *UserService {
	return &UserService{
		repo:   repo,
		logger: logger,
	}
}

// CreateOrGet returns the user with the given email, creating one first if
// none exists. Email is the natural key: two calls with the same email
// always resolve to the same account, whatever name or avatar they carry.
// The returned bool reports whether a new account was created.
func (s *UserService) CreateOrGet(ctx context.Context, email, name, avatarURL, provider string) (*model.User, bool, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, false, apperror.ValidationFailed("email", "email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, false, apperror.ValidationFailed("email", "email is not a valid address")
	}
	name = strings.TrimSpace(name)
	if len(name) > maxNameLength {
		return nil, false, apperror.ValidationFailed("name",
			fmt.Sprintf("name must be %d characters or less", maxNameLength))
	}

	existing, err := s.repo.GetUserByEmail(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, false, fmt.Errorf("looking up user by email: %w", err)
	}

	user := &model.User{
		Email:     email,
		Name:      name,
		AvatarURL: avatarURL,
		Provider:  provider,
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		// Lost a race with a concurrent create for the same email.
		// The row exists now, so read it back and treat this call as a get.
		if errors.Is(err, apperror.ErrConflict) {
			existing, lookupErr := s.repo.GetUserByEmail(ctx, email)
			if lookupErr != nil {
				return nil, false, fmt.Errorf("re-reading user after conflict: %w", lookupErr)
			}
			return existing, false, nil
		}
		s.logger.Error("failed to create user",
			slog.String("email", email),
			slog.String("error", err.Error()),
		)
		return nil, false, fmt.Errorf("creating user: %w", err)
	}

	s.logger.Info("user created",
		slog.String("id", user.ID),
		slog.String("provider", provider),
	)

	return user, true, nil
}

// GetByID returns a single user.
func (s *UserService) GetByID(ctx context.Context, id string) (*model.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "user ID is required")
	}
	return s.repo.GetUserByID(ctx, id)
}

// List returns all users, oldest first.
func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

// Update changes a user's display name and avatar. Email and provider are
// fixed at account creation; actingUserID must match the target account.
func (s *UserService) Update(ctx context.Context, actingUserID, id, name, avatarURL string) (*model.User, error) {
	if actingUserID == "" {
		return nil, apperror.Unauthorized("User not authenticated")
	}
	if actingUserID != id {
		return nil, apperror.Forbidden("cannot modify another user's account")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "name is required")
	}
	if len(name) > maxNameLength {
		return nil, apperror.ValidationFailed("name",
			fmt.Sprintf("name must be %d characters or less", maxNameLength))
	}

	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	user.Name = name
	user.AvatarURL = avatarURL

	if err := s.repo.UpdateUser(ctx, user); err != nil {
		s.logger.Error("failed to update user",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	return user, nil
}

// Delete removes a user's account. History records go with it — the
// database cascades the delete.
func (s *UserService) Delete(ctx context.Context, actingUserID, id string) error {
	if actingUserID == "" {
		return apperror.Unauthorized("User not authenticated")
	}
	if actingUserID != id {
		return apperror.Forbidden("cannot delete another user's account")
	}

	if err := s.repo.DeleteUser(ctx, id); err != nil {
		return err
	}

	s.logger.Info("user deleted", slog.String("id", id))
	return nil
}

package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/code-reviewer/internal/auth"
	"github.com/sakif/code-reviewer/internal/model"
)

// AuthResult is what a completed sign-in hands back to the HTTP layer: the
// resolved account plus a signed session token for the cookie.
type AuthResult struct {
	User  *model.User
	Token string
}

// AuthService turns verified OAuth profiles into sessions.
//
// It owns none of the OAuth mechanics (auth.Provider does the flow) and none
// of the persistence (UserService does the account resolution) — it is the
// seam between "the provider says this is alice@example.com" and "alice has
// a session cookie".
type AuthService struct {
	users  *UserService
	tokens *auth.TokenService
	logger *slog.Logger
}

func NewAuthService(users *UserService, tokens *auth.TokenService, logger *slog.Logger) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		logger: logger,
	}
}

// ResolveOrCreateUser maps a verified provider profile onto a local account,
// creating one on first sign-in. Idempotent by email: signing in again — even
// through a different provider — lands on the same account.
func (s *AuthService) ResolveOrCreateUser(ctx context.Context, profile *auth.Profile) (*model.User, error) {
	user, created, err := s.users.CreateOrGet(ctx, profile.Email, profile.Name, profile.AvatarURL, profile.Provider)
	if err != nil {
		return nil, err
	}
	if created {
		s.logger.Info("first sign-in, account created",
			slog.String("userID", user.ID),
			slog.String("provider", profile.Provider),
		)
	}
	return user, nil
}

// LoginOrRegister resolves the profile to an account and issues a session
// token for it.
func (s *AuthService) LoginOrRegister(ctx context.Context, profile *auth.Profile) (*AuthResult, error) {
	user, err := s.ResolveOrCreateUser(ctx, profile)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issuing session token: %w", err)
	}

	return &AuthResult{User: user, Token: token}, nil
}

// GetUserByID loads the account behind a validated session, for /api/me.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return s.users.GetByID(ctx, id)
}

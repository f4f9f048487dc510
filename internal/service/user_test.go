package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"

	"github.com/sakif/code-reviewer/internal/apperror"
	"github.com/sakif/code-reviewer/internal/model"
)

// mockUserRepo implements repository.UserRepository in memory, keyed by ID
// with a unique-email constraint like the real table.
type mockUserRepo struct {
	users  map[string]*model.User
	nextID int
	// failNextCreate makes the next CreateUser return Conflict without
	// inserting, simulating losing a race to a concurrent create.
	failNextCreate bool
	// racedUser is inserted behind the failed create's back, so the
	// follow-up GetUserByEmail finds it.
	racedUser *model.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) CreateUser(_ context.Context, user *model.User) error {
	if m.failNextCreate {
		m.failNextCreate = false
		if m.racedUser != nil {
			m.users[m.racedUser.ID] = m.racedUser
		}
		return apperror.Conflict("user", user.Email)
	}
	for _, u := range m.users {
		if u.Email == user.Email {
			return apperror.Conflict("user", user.Email)
		}
	}
	m.nextID++
	user.ID = fmt.Sprintf("user-%d", m.nextID)
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *mockUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	result := *u
	return &result, nil
}

func (m *mockUserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			result := *u
			return &result, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (m *mockUserRepo) ListUsers(_ context.Context) ([]model.User, error) {
	result := make([]model.User, 0, len(m.users))
	for _, u := range m.users {
		result = append(result, *u)
	}
	return result, nil
}

func (m *mockUserRepo) UpdateUser(_ context.Context, user *model.User) error {
	if _, ok := m.users[user.ID]; !ok {
		return apperror.NotFound("user", user.ID)
	}
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *mockUserRepo) DeleteUser(_ context.Context, id string) error {
	if _, ok := m.users[id]; !ok {
		return apperror.NotFound("user", id)
	}
	delete(m.users, id)
	return nil
}

func newUserTestService(t *testing.T) (*UserService, *mockUserRepo) {
	t.Helper()
	repo := newMockUserRepo()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewUserService(repo, logger), repo
}

// =========================================================================
// CREATE-OR-GET TESTS
// =========================================================================

func TestCreateOrGet_CreatesNewUser(t *testing.T) {
	svc, _ := newUserTestService(t)

	user, created, err := svc.CreateOrGet(context.Background(), "alice@example.com", "Alice", "", model.ProviderGitHub)
	if err != nil {
		t.Fatalf("CreateOrGet() error = %v", err)
	}
	if !created {
		t.Error("created = false, want true on first call")
	}
	if user.ID == "" {
		t.Error("expected user to have an ID")
	}
	if user.Email != "alice@example.com" {
		t.Errorf("Email = %q, want %q", user.Email, "alice@example.com")
	}
}

func TestCreateOrGet_IdempotentByEmail(t *testing.T) {
	svc, _ := newUserTestService(t)

	first, _, err := svc.CreateOrGet(context.Background(), "alice@example.com", "Alice", "", model.ProviderGitHub)
	if err != nil {
		t.Fatalf("first CreateOrGet() error = %v", err)
	}

	// Same email through a different provider, with a different name:
	// must land on the existing account, untouched.
	second, created, err := svc.CreateOrGet(context.Background(), "alice@example.com", "Alice G", "http://pic", model.ProviderGoogle)
	if err != nil {
		t.Fatalf("second CreateOrGet() error = %v", err)
	}
	if created {
		t.Error("created = true, want false on repeat call")
	}
	if second.ID != first.ID {
		t.Errorf("ID = %q, want %q (same account)", second.ID, first.ID)
	}
	if second.Name != "Alice" {
		t.Errorf("Name = %q, want original %q", second.Name, "Alice")
	}
}

func TestCreateOrGet_NormalizesEmail(t *testing.T) {
	svc, _ := newUserTestService(t)

	first, _, _ := svc.CreateOrGet(context.Background(), "Alice@Example.COM", "Alice", "", model.ProviderGitHub)
	second, created, err := svc.CreateOrGet(context.Background(), "alice@example.com", "Alice", "", model.ProviderGitHub)
	if err != nil {
		t.Fatalf("CreateOrGet() error = %v", err)
	}
	if created {
		t.Error("case-folded email should resolve to the same account")
	}
	if second.ID != first.ID {
		t.Errorf("ID = %q, want %q", second.ID, first.ID)
	}
}

func TestCreateOrGet_InvalidEmail(t *testing.T) {
	svc, _ := newUserTestService(t)

	for _, email := range []string{"", "   ", "not-an-email"} {
		_, _, err := svc.CreateOrGet(context.Background(), email, "x", "", model.ProviderGitHub)
		if !errors.Is(err, apperror.ErrValidation) {
			t.Errorf("CreateOrGet(%q) error = %v, want ErrValidation", email, err)
		}
	}
}

func TestCreateOrGet_LosesCreateRace(t *testing.T) {
	svc, repo := newUserTestService(t)

	// Another request creates the account between our lookup and insert.
	repo.failNextCreate = true
	repo.racedUser = &model.User{ID: "user-race", Email: "alice@example.com", Name: "Alice"}

	user, created, err := svc.CreateOrGet(context.Background(), "alice@example.com", "Alice", "", model.ProviderGitHub)
	if err != nil {
		t.Fatalf("CreateOrGet() error = %v, want race resolved silently", err)
	}
	if created {
		t.Error("created = true, want false after losing the race")
	}
	if user.ID != "user-race" {
		t.Errorf("ID = %q, want the winner's %q", user.ID, "user-race")
	}
}

// =========================================================================
// UPDATE / DELETE TESTS
// =========================================================================

func TestUserUpdate_Success(t *testing.T) {
	svc, _ := newUserTestService(t)
	user, _, _ := svc.CreateOrGet(context.Background(), "alice@example.com", "Alice", "", model.ProviderGitHub)

	updated, err := svc.Update(context.Background(), user.ID, user.ID, "Alice Updated", "http://new-pic")
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Name != "Alice Updated" {
		t.Errorf("Name = %q, want %q", updated.Name, "Alice Updated")
	}
	if updated.Email != "alice@example.com" {
		t.Errorf("Email = %q, must not change on update", updated.Email)
	}
}

func TestUserUpdate_WrongActor(t *testing.T) {
	svc, _ := newUserTestService(t)
	user, _, _ := svc.CreateOrGet(context.Background(), "alice@example.com", "Alice", "", model.ProviderGitHub)

	_, err := svc.Update(context.Background(), "someone-else", user.ID, "Hacked", "")
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("error = %v, want ErrForbidden", err)
	}
}

func TestUserUpdate_NoSession(t *testing.T) {
	svc, _ := newUserTestService(t)

	_, err := svc.Update(context.Background(), "", "user-1", "x", "")
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("error = %v, want ErrUnauthorized", err)
	}
}

func TestUserDelete_Success(t *testing.T) {
	svc, _ := newUserTestService(t)
	user, _, _ := svc.CreateOrGet(context.Background(), "alice@example.com", "Alice", "", model.ProviderGitHub)

	if err := svc.Delete(context.Background(), user.ID, user.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	_, err := svc.GetByID(context.Background(), user.ID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("after delete: error = %v, want ErrNotFound", err)
	}
}

func TestUserDelete_WrongActor(t *testing.T) {
	svc, _ := newUserTestService(t)
	user, _, _ := svc.CreateOrGet(context.Background(), "alice@example.com", "Alice", "", model.ProviderGitHub)

	err := svc.Delete(context.Background(), "someone-else", user.ID)
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("error = %v, want ErrForbidden", err)
	}
}

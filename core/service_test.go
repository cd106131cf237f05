package core

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
)

// fakeUserRepo is an in-memory UserRepository with the same uniqueness
// behavior as the Postgres implementation.
type fakeUserRepo struct {
	mu        sync.Mutex
	nextID    int64
	users     map[string]*UserRecord // keyed by username
	creates   int
	findCalls int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*UserRecord{}}
}

func (r *fakeUserRepo) FindByUsername(ctx context.Context, username string) (*UserRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.findCalls++
	if u, ok := r.users[username]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*UserRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.findCalls++
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) Create(ctx context.Context, username, email, passwordHash string, role Role) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creates++
	if _, ok := r.users[username]; ok {
		return 0, ErrUserExists
	}
	for _, u := range r.users {
		if u.Email == email {
			return 0, ErrUserExists
		}
	}
	r.nextID++
	r.users[username] = &UserRecord{ID: r.nextID, Username: username, Email: email, PasswordHash: passwordHash, Role: role}
	return r.nextID, nil
}

func (r *fakeUserRepo) UpdateRole(ctx context.Context, username string, role Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[username]; ok {
		u.Role = role
	}
	return nil
}

func (r *fakeUserRepo) HasAdmin(ctx context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Role == RoleAdmin {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeUserRepo) List(ctx context.Context, page, perPage int) ([]UserListItem, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]UserListItem, 0, len(r.users))
	for _, u := range r.users {
		all = append(all, UserListItem{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role, CreatedAt: u.CreatedAt})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	start := (page - 1) * perPage
	if start > len(all) {
		start = len(all)
	}
	end := start + perPage
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], len(all), nil
}

func (r *fakeUserRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

func (r *fakeUserRepo) role(username string) Role {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[username]; ok {
		return u.Role
	}
	return ""
}

func newTestService() (*AuthService, *fakeUserRepo) {
	repo := newFakeUserRepo()
	return NewAuthService(repo, newPasswordHasherWithCost(4)), repo
}

func TestSignUpThenLogIn(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	u, err := svc.SignUp(ctx, "alice", "alice@example.com", "secret123")
	if err != nil {
		t.Fatalf("SignUp error: %v", err)
	}
	if u.Role != RoleUser {
		t.Fatalf("new users must default to role user, got %q", u.Role)
	}

	got, err := svc.LogIn(ctx, "alice@example.com", "secret123")
	if err != nil {
		t.Fatalf("LogIn error: %v", err)
	}
	if got.Username != "alice" {
		t.Fatalf("unexpected login user %q", got.Username)
	}
}

func TestSignUpDuplicateIsGeneric(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	if _, err := svc.SignUp(ctx, "alice", "alice@example.com", "secret123"); err != nil {
		t.Fatalf("SignUp error: %v", err)
	}
	_, err := svc.SignUp(ctx, "alice", "other@example.com", "secret123")
	if !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
	_, err = svc.SignUp(ctx, "bob", "alice@example.com", "secret123")
	if !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists for email collision, got %v", err)
	}
	if repo.count() != 1 {
		t.Fatalf("store gained records from failed signups: %d", repo.count())
	}
}

func TestSignUpValidationNeverReachesStorage(t *testing.T) {
	svc, repo := newTestService()

	_, err := svc.SignUp(context.Background(), "a!", "not-an-email", "pw")
	var ferrs FieldErrors
	if !errors.As(err, &ferrs) {
		t.Fatalf("expected FieldErrors, got %v", err)
	}
	if len(ferrs) != 3 {
		t.Fatalf("expected errors on all three fields, got %v", ferrs)
	}
	if repo.creates != 0 || repo.findCalls != 0 {
		t.Fatalf("storage was touched before validation passed")
	}
}

func TestLogInFailsUniformly(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.SignUp(ctx, "alice", "alice@example.com", "secret123"); err != nil {
		t.Fatalf("SignUp error: %v", err)
	}

	cases := []struct {
		name            string
		email, password string
	}{
		{"wrong password", "alice@example.com", "wrong-password"},
		{"unknown email", "nobody@example.com", "secret123"},
		{"malformed email", "not-an-email", "secret123"},
		{"empty password", "alice@example.com", ""},
	}
	for _, tc := range cases {
		if _, err := svc.LogIn(ctx, tc.email, tc.password); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("%s: expected ErrInvalidCredentials, got %v", tc.name, err)
		}
	}
}

func TestPromoteTakesEffectWithoutRelogin(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	mustSignUp(t, svc, "root", "root@example.com")
	mustSignUp(t, svc, "bob", "bob@example.com")
	mustMakeAdmin(t, svc, "root")

	if err := svc.Promote(ctx, "root", "bob"); err != nil {
		t.Fatalf("Promote error: %v", err)
	}
	isAdmin, err := svc.IsAdmin(ctx, "bob")
	if err != nil {
		t.Fatalf("IsAdmin error: %v", err)
	}
	if !isAdmin {
		t.Fatalf("promotion should be visible immediately")
	}

	if err := svc.Demote(ctx, "root", "bob"); err != nil {
		t.Fatalf("Demote error: %v", err)
	}
	isAdmin, err = svc.IsAdmin(ctx, "bob")
	if err != nil {
		t.Fatalf("IsAdmin error: %v", err)
	}
	if isAdmin {
		t.Fatalf("demotion should be visible immediately")
	}
}

func TestPromoteRequiresAdminActor(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	mustSignUp(t, svc, "alice", "alice@example.com")
	mustSignUp(t, svc, "bob", "bob@example.com")

	if err := svc.Promote(ctx, "alice", "bob"); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
	if repo.role("bob") != RoleUser {
		t.Fatalf("target role changed despite authorization failure")
	}
	// An unknown actor is not an admin either.
	if err := svc.Demote(ctx, "ghost", "bob"); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized for unknown actor, got %v", err)
	}
}

func mustSignUp(t *testing.T, svc *AuthService, username, email string) {
	t.Helper()
	if _, err := svc.SignUp(context.Background(), username, email, "secret123"); err != nil {
		t.Fatalf("SignUp %s: %v", username, err)
	}
}

func mustMakeAdmin(t *testing.T, svc *AuthService, username string) {
	t.Helper()
	if err := svc.users.UpdateRole(context.Background(), username, RoleAdmin); err != nil {
		t.Fatalf("UpdateRole %s: %v", username, err)
	}
}

package core

import (
	"context"
	"errors"
	"fmt"
)

// AuthService orchestrates signup, login, and the authorization
// predicates over the user repository and password hasher.
type AuthService struct {
	users  UserRepository
	hasher *PasswordHasher
}

func NewAuthService(users UserRepository, hasher *PasswordHasher) *AuthService {
	return &AuthService{users: users, hasher: hasher}
}

// SignUp validates the fields, hashes the password, and inserts a new
// user with the default role. A uniqueness collision comes back as
// ErrUserExists without naming the colliding field; validation failures
// come back as FieldErrors before any storage access.
func (s *AuthService) SignUp(ctx context.Context, username, email, password string) (User, error) {
	in := SignupInput{Username: username, Email: email, Password: password}
	if ferrs := ValidateStruct(in); ferrs != nil {
		return User{}, ferrs
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	id, err := s.users.Create(ctx, username, email, hash, RoleUser)
	if err != nil {
		if errors.Is(err, ErrUserExists) {
			return User{}, ErrUserExists
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return User{ID: id, Username: username, Email: email, Role: RoleUser}, nil
}

// LogIn resolves the email to exactly one record and verifies the
// password against the stored digest. Malformed email, unknown account,
// and wrong password all surface as the same ErrInvalidCredentials;
// only a storage failure is reported distinctly.
func (s *AuthService) LogIn(ctx context.Context, email, password string) (User, error) {
	if ferrs := ValidateStruct(LoginInput{Email: email, Password: password}); ferrs != nil {
		return User{}, ErrInvalidCredentials
	}

	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return User{}, fmt.Errorf("find user: %w", err)
	}
	if u == nil || !s.hasher.Verify(password, u.PasswordHash) {
		return User{}, ErrInvalidCredentials
	}
	return User{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role, CreatedAt: u.CreatedAt}, nil
}

// IsAdmin reads the user's current role from the store on every call.
// Roles are never cached in the session, so promotions and demotions
// take effect without re-login. An unknown user is not an admin.
func (s *AuthService) IsAdmin(ctx context.Context, username string) (bool, error) {
	u, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return false, err
	}
	return u != nil && u.Role == RoleAdmin, nil
}

// Promote grants the admin role to target. The actor must currently be
// an admin.
func (s *AuthService) Promote(ctx context.Context, actor, target string) error {
	return s.setRole(ctx, actor, target, RoleAdmin)
}

// Demote sets target back to the user role. The actor must currently be
// an admin; there is no guard against an admin demoting themselves.
func (s *AuthService) Demote(ctx context.Context, actor, target string) error {
	return s.setRole(ctx, actor, target, RoleUser)
}

func (s *AuthService) setRole(ctx context.Context, actor, target string, role Role) error {
	ok, err := s.IsAdmin(ctx, actor)
	if err != nil {
		return fmt.Errorf("check actor role: %w", err)
	}
	if !ok {
		return ErrNotAuthorized
	}
	return s.users.UpdateRole(ctx, target, role)
}

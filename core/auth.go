package core

import (
	"errors"
	"time"
)

// Role is the authorization tier of a user.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User represents an authenticated principal returned to handlers.
type User struct {
	ID        int64
	Username  string
	Email     string
	Role      Role
	CreatedAt time.Time
}

var (
	// ErrInvalidCredentials is returned when email/password is wrong or the
	// account does not exist. Both cases surface identically so login
	// failures never reveal whether an email is registered.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserExists is returned when signup collides with an existing
	// username or email. The colliding field is intentionally not named.
	ErrUserExists = errors.New("user already exists")

	// ErrNotAuthorized is returned when the acting user lacks the admin role.
	ErrNotAuthorized = errors.New("not authorized")
)

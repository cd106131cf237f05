package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRecord is the persistence projection of a user. The password hash
// never leaves this layer except for verification.
type UserRecord struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

// UserListItem is a projection for the admin user listing (no password hash).
type UserListItem struct {
	ID        int64
	Username  string
	Email     string
	Role      Role
	CreatedAt time.Time
}

// UserRepository defines persistence operations for users. Find methods
// return (nil, nil) when no record matches; an error always means a
// storage failure. Lookups compare their key as a scalar string via
// parameterized queries only.
type UserRepository interface {
	FindByUsername(ctx context.Context, username string) (*UserRecord, error)
	FindByEmail(ctx context.Context, email string) (*UserRecord, error)
	// Create inserts a new user and returns ErrUserExists when the
	// username or email collides with an existing record. The unique
	// constraints in the store are the sole guard against concurrent
	// duplicate signups.
	Create(ctx context.Context, username, email, passwordHash string, role Role) (int64, error)
	UpdateRole(ctx context.Context, username string, role Role) error
	HasAdmin(ctx context.Context) (bool, error)
	List(ctx context.Context, page, perPage int) ([]UserListItem, int, error)
}

// PgUserRepository implements UserRepository using pgxpool.
type PgUserRepository struct {
	db *pgxpool.Pool
}

func NewPgUserRepository(db *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{db: db}
}

func (r *PgUserRepository) FindByUsername(ctx context.Context, username string) (*UserRecord, error) {
	const q = `SELECT id, username, email, password_hash, role, created_at FROM users WHERE username=$1`
	return r.findOne(ctx, q, username)
}

func (r *PgUserRepository) FindByEmail(ctx context.Context, email string) (*UserRecord, error) {
	const q = `SELECT id, username, email, password_hash, role, created_at FROM users WHERE email=$1`
	return r.findOne(ctx, q, email)
}

func (r *PgUserRepository) findOne(ctx context.Context, query, key string) (*UserRecord, error) {
	var (
		u    UserRecord
		role string
	)
	err := r.db.QueryRow(ctx, query, key).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &role, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	u.Role = Role(role)
	return &u, nil
}

func (r *PgUserRepository) Create(ctx context.Context, username, email, passwordHash string, role Role) (int64, error) {
	const q = `INSERT INTO users (username, email, password_hash, role) VALUES ($1,$2,$3,$4) RETURNING id`
	var id int64
	if err := r.db.QueryRow(ctx, q, username, email, passwordHash, string(role)).Scan(&id); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, ErrUserExists
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}
	return id, nil
}

func (r *PgUserRepository) UpdateRole(ctx context.Context, username string, role Role) error {
	const q = `UPDATE users SET role=$1 WHERE username=$2`
	if _, err := r.db.Exec(ctx, q, string(role), username); err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	return nil
}

func (r *PgUserRepository) HasAdmin(ctx context.Context) (bool, error) {
	const q = `SELECT 1 FROM users WHERE role='admin' LIMIT 1`
	var one int
	if err := r.db.QueryRow(ctx, q).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("query admins: %w", err)
	}
	return true, nil
}

// List returns paginated users without password hashes.
func (r *PgUserRepository) List(ctx context.Context, page, perPage int) ([]UserListItem, int, error) {
	if page <= 0 || perPage <= 0 {
		return nil, 0, errors.New("invalid pagination")
	}
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	rows, err := r.db.Query(ctx, `SELECT id, username, email, role, created_at FROM users ORDER BY id LIMIT $1 OFFSET $2`, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()
	items := make([]UserListItem, 0, perPage)
	for rows.Next() {
		var (
			u    UserListItem
			role string
		)
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &role, &u.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan user: %w", err)
		}
		u.Role = Role(role)
		items = append(items, u)
	}
	return items, total, rows.Err()
}

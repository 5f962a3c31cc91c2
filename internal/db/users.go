package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/nick-dorsch/todolist/pkg/models"
)

// AnonymousUser owns the tasks of unauthenticated requests when the server
// allows them.
const AnonymousUser = "anonymous"

// CreateUser stores a user with an already hashed password.
func (db *DB) CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error) {
	res, err := db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash) VALUES (?, ?)`, username, passwordHash)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%q: %w", username, ErrDuplicateUser)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get user id: %w", err)
	}

	db.triggerChange(ctx)
	return db.getUser(ctx, `id = ?`, id)
}

// GetUserByUsername returns nil, nil when no such user exists.
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	u, err := db.getUser(ctx, `username = ?`, username)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return u, err
}

func (db *DB) getUser(ctx context.Context, where string, arg any) (*models.User, error) {
	u := &models.User{}
	err := db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE `+where, arg,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (db *DB) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

// EnsureUser returns the named user, creating it with an unusable password
// when missing.
func (db *DB) EnsureUser(ctx context.Context, username string) (*models.User, error) {
	u, err := db.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if u != nil {
		return u, nil
	}
	// "!" is never produced by bcrypt, so nobody can log in as this user.
	u, err = db.CreateUser(ctx, username, "!")
	if errors.Is(err, ErrDuplicateUser) {
		return db.GetUserByUsername(ctx, username)
	}
	return u, err
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

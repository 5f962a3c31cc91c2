package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nick-dorsch/todolist/pkg/models"
)

// CreateSession starts a session for the user that expires after ttl.
func (db *DB) CreateSession(ctx context.Context, userID int64, ttl time.Duration) (*models.Session, error) {
	s := &models.Session{
		Token:     uuid.New().String(),
		UserID:    userID,
		ExpiresAt: time.Now().Add(ttl).UTC().Truncate(time.Second),
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)`,
		s.Token, s.UserID, s.ExpiresAt.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return s, nil
}

// GetSession returns nil, nil for unknown or expired tokens. Expired
// sessions are removed on lookup.
func (db *DB) GetSession(ctx context.Context, token string) (*models.Session, error) {
	s := &models.Session{Token: token}
	var expires int64
	err := db.QueryRowContext(ctx,
		`SELECT user_id, expires_at FROM sessions WHERE token = ?`, token,
	).Scan(&s.UserID, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	s.ExpiresAt = time.Unix(expires, 0).UTC()
	if !time.Now().Before(s.ExpiresAt) {
		if err := db.DeleteSession(ctx, token); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return s, nil
}

func (db *DB) DeleteSession(ctx context.Context, token string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// PruneSessions deletes every expired session and returns how many were
// removed.
func (db *DB) PruneSessions(ctx context.Context) (int64, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to prune sessions: %w", err)
	}
	return res.RowsAffected()
}

package database

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

const userColumns = `id, username, email, password_hash, display_name, reset_token, reset_token_expires, last_active, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	u := &User{}
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.DisplayName,
		&u.ResetToken, &u.ResetTokenExpires, &u.LastActive, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// CreateUser inserts a user. Username and email are stored lower-cased.
func (q *Queries) CreateUser(ctx context.Context, username, email, passwordHash, displayName string, now time.Time) (*User, error) {
	var id int64
	err := q.q.QueryRowContext(ctx,
		`INSERT INTO users (username, email, password_hash, display_name, created_at)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		strings.ToLower(username), strings.ToLower(email), passwordHash, displayName, now.UTC(),
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return q.GetUserByID(ctx, id)
}

func (q *Queries) GetUserByID(ctx context.Context, id int64) (*User, error) {
	u, err := scanUser(q.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	u, err := scanUser(q.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, strings.ToLower(email)))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// GetUserByLogin looks a user up by username or email.
func (q *Queries) GetUserByLogin(ctx context.Context, login string) (*User, error) {
	u, err := scanUser(q.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1 OR email = $1`, strings.ToLower(login)))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// UsernameExists reports whether a username is taken.
func (q *Queries) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := q.q.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, strings.ToLower(username),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check username: %w", err)
	}
	return exists, nil
}

// GenerateToken returns a random hex token for password reset links.
func GenerateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func (q *Queries) SetResetToken(ctx context.Context, userID int64, token string, expires time.Time) error {
	_, err := q.q.ExecContext(ctx,
		`UPDATE users SET reset_token = $1, reset_token_expires = $2 WHERE id = $3`,
		token, expires.UTC(), userID,
	)
	if err != nil {
		return fmt.Errorf("failed to set reset token: %w", err)
	}
	return nil
}

// GetUserByResetToken returns the user owning an unexpired reset token.
func (q *Queries) GetUserByResetToken(ctx context.Context, token string, now time.Time) (*User, error) {
	u, err := scanUser(q.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE reset_token = $1 AND reset_token_expires > $2`,
		token, now.UTC()))
	if err != nil {
		return nil, fmt.Errorf("failed to get user by reset token: %w", err)
	}
	return u, nil
}

// UpdatePassword sets a new hash and clears any pending reset token.
func (q *Queries) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	_, err := q.q.ExecContext(ctx,
		`UPDATE users SET password_hash = $1, reset_token = NULL, reset_token_expires = NULL WHERE id = $2`,
		passwordHash, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

func (q *Queries) TouchLastActive(ctx context.Context, userID int64, now time.Time) error {
	_, err := q.q.ExecContext(ctx,
		`UPDATE users SET last_active = $1 WHERE id = $2`,
		now.UTC(), userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update last active: %w", err)
	}
	return nil
}

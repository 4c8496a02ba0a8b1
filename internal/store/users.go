package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/matheus3301/parley/internal/chat"
)

const userColumns = `id, name, email, image`

func scanUser(row interface{ Scan(...any) error }) (chat.User, error) {
	var u chat.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Image)
	return u, err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser registers a password user.
func (db *DB) CreateUser(ctx context.Context, name, email, passwordHash string) (*chat.User, error) {
	u := chat.User{ID: uuid.NewString(), Name: strings.TrimSpace(name), Email: normalizeEmail(email)}
	_, err := db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, passwordHash, now().UnixMilli())
	if isUniqueViolation(err) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return &u, nil
}

// UserByEmail returns the user registered for email and its password
// hash. OAuth-only users have an empty hash.
func (db *DB) UserByEmail(ctx context.Context, email string) (*chat.User, string, error) {
	var u chat.User
	var hash string
	err := db.QueryRowContext(ctx, `
		SELECT id, name, email, image, password_hash
		FROM users WHERE email = ?`, normalizeEmail(email)).
		Scan(&u.ID, &u.Name, &u.Email, &u.Image, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", fmt.Errorf("user %s: %w", email, chat.ErrNotFound)
	}
	if err != nil {
		return nil, "", fmt.Errorf("query user: %w", err)
	}
	return &u, hash, nil
}

// User returns a user by id.
func (db *DB) User(ctx context.Context, id string) (*chat.User, error) {
	u, err := scanUser(db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", id, chat.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &u, nil
}

// UpsertOAuthUser creates or refreshes the user signed in through provider.
// Users are matched by email; name and image are updated when non-empty.
// An email owned by a password account or by another provider is never
// linked and yields chat.ErrAccountLinked.
func (db *DB) UpsertOAuthUser(ctx context.Context, provider, email, name, image string) (*chat.User, error) {
	email = normalizeEmail(email)
	if name == "" {
		name = email
	}
	var u chat.User
	err := db.inTx(ctx, func(tx *sql.Tx) error {
		var hash, owner string
		err := tx.QueryRowContext(ctx, `SELECT password_hash, provider FROM users WHERE email = ?`, email).Scan(&hash, &owner)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO users (id, name, email, image, provider, created_at)
				VALUES (?, ?, ?, ?, ?, ?)`,
				uuid.NewString(), name, email, image, provider, now().UnixMilli()); err != nil {
				return fmt.Errorf("insert oauth user: %w", err)
			}
		case err != nil:
			return fmt.Errorf("query user: %w", err)
		case hash != "" || owner != provider:
			return fmt.Errorf("oauth %s for %s: %w", provider, email, chat.ErrAccountLinked)
		default:
			if _, err := tx.ExecContext(ctx, `
				UPDATE users SET
					name = CASE WHEN ? != '' THEN ? ELSE name END,
					image = CASE WHEN ? != '' THEN ? ELSE image END
				WHERE email = ?`, name, name, image, image, email); err != nil {
				return fmt.Errorf("update oauth user: %w", err)
			}
		}
		u, err = scanUser(tx.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
		if err != nil {
			return fmt.Errorf("query user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ListUsers returns every user except excludeID, newest first.
func (db *DB) ListUsers(ctx context.Context, excludeID string) ([]chat.User, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE id != ?
		ORDER BY created_at DESC, id`, excludeID)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var users []chat.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UserCount returns the total number of users.
func (db *DB) UserCount(ctx context.Context) (int64, error) {
	var count int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

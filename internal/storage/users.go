package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/moneywise-app/moneywise/internal/model"
)

// CreateUser inserts a new user. A zero ID is generated.
func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if user == nil {
		return errors.New("user cannot be nil")
	}
	if err := validateString(user.Email, "user.Email"); err != nil {
		return err
	}

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, avatar, password_hash, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID, user.Name, user.Email, user.Avatar, user.PasswordHash, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// GetUserByID returns the user with the given id, or ErrNotFound.
func (s *Store) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return getUser(ctx, s.db, `SELECT id, name, email, avatar, password_hash, created_at FROM users WHERE id = ?`, id)
}

// GetUserByEmail returns the user with the given email (exact match), or
// ErrNotFound. Used for login and recipient resolution.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return getUser(ctx, s.db, `SELECT id, name, email, avatar, password_hash, created_at FROM users WHERE email = ?`, email)
}

// GetUserByEmail resolves a recipient inside the transaction.
func (t *Tx) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return getUser(ctx, t.tx, `SELECT id, name, email, avatar, password_hash, created_at FROM users WHERE email = ?`, email)
}

// GetUserByID returns a user inside the transaction.
func (t *Tx) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return getUser(ctx, t.tx, `SELECT id, name, email, avatar, password_hash, created_at FROM users WHERE id = ?`, id)
}

func getUser(ctx context.Context, q querier, query, arg string) (*model.User, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(arg, "arg"); err != nil {
		return nil, err
	}

	var user model.User
	err := q.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Name, &user.Email, &user.Avatar, &user.PasswordHash, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &user, nil
}

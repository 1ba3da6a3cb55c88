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

// CreateChatSession inserts a new session. A zero ID is generated.
func (s *Store) CreateChatSession(ctx context.Context, session *model.ChatSession) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if session == nil {
		return errors.New("session cannot be nil")
	}
	if err := validateString(session.UserID, "session.UserID"); err != nil {
		return err
	}

	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	if session.UpdatedAt.IsZero() {
		session.UpdatedAt = session.CreatedAt
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_sessions (id, user_id, title, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		session.ID, session.UserID, session.Title, session.CreatedAt, session.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert chat session: %w", err)
	}
	return nil
}

// GetChatSession returns the session with the given id, or ErrNotFound.
func (s *Store) GetChatSession(ctx context.Context, id string) (*model.ChatSession, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	var session model.ChatSession
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, created_at, updated_at FROM chat_sessions WHERE id = ?`, id).
		Scan(&session.ID, &session.UserID, &session.Title, &session.CreatedAt, &session.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan chat session: %w", err)
	}
	return &session, nil
}

// TouchChatSession bumps the session's updated_at timestamp.
func (s *Store) TouchChatSession(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE chat_sessions SET updated_at = ? WHERE id = ?`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to touch chat session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check chat session update: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("chat session %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListChatSessionsByUser returns the user's sessions, most recently
// updated first.
func (s *Store) ListChatSessionsByUser(ctx context.Context, userID string) ([]model.ChatSession, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, title, created_at, updated_at
		 FROM chat_sessions WHERE user_id = ? ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sessions []model.ChatSession
	for rows.Next() {
		var session model.ChatSession
		if err := rows.Scan(&session.ID, &session.UserID, &session.Title,
			&session.CreatedAt, &session.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat session: %w", err)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// InsertChatMessage appends a message to a session's transcript.
func (s *Store) InsertChatMessage(ctx context.Context, message *model.ChatMessage) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if message == nil {
		return errors.New("message cannot be nil")
	}
	if err := validateString(message.SessionID, "message.SessionID"); err != nil {
		return err
	}
	if message.Role != "user" && message.Role != "assistant" {
		return fmt.Errorf("invalid message role %q", message.Role)
	}

	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_messages (id, session_id, role, content, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		message.ID, message.SessionID, message.Role, message.Content, message.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert chat message: %w", err)
	}
	return nil
}

// GetChatMessages returns a session's transcript in chronological order.
func (s *Store) GetChatMessages(ctx context.Context, sessionID string) ([]model.ChatMessage, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(sessionID, "sessionID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, role, content, created_at
		 FROM chat_messages WHERE session_id = ? ORDER BY created_at, id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var messages []model.ChatMessage
	for rows.Next() {
		var message model.ChatMessage
		if err := rows.Scan(&message.ID, &message.SessionID, &message.Role,
			&message.Content, &message.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		messages = append(messages, message)
	}
	return messages, rows.Err()
}

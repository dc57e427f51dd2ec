package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/vaccine-portal/internal/apperror"
	"github.com/sakif/vaccine-portal/internal/model"
)

func (db *DB) CreateChatSession(ctx context.Context, session *model.ChatSession) error {
	now := db.now()
	session.CreatedAt = now
	session.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO chat_sessions (user_id, id, title, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		session.UserID, session.ID, session.Title, formatTime(now), formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting chat session %s: %w", session.ID, err)
	}
	return nil
}

func scanSession(row rowScanner) (*model.ChatSession, error) {
	var (
		s                    model.ChatSession
		createdAt, updatedAt string
	)
	if err := row.Scan(&s.UserID, &s.ID, &s.Title, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	s.CreatedAt = parseTime(createdAt)
	s.UpdatedAt = parseTime(updatedAt)
	return &s, nil
}

func (db *DB) GetChatSession(ctx context.Context, userID, sessionID string) (*model.ChatSession, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT user_id, id, title, created_at, updated_at
		 FROM chat_sessions WHERE user_id = ? AND id = ?`,
		userID, sessionID)

	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("sqlite: getting chat session %s: %w", sessionID, err)
	}
	return s, nil
}

func (db *DB) ListChatSessions(ctx context.Context, userID string) ([]model.ChatSession, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT user_id, id, title, created_at, updated_at
		 FROM chat_sessions WHERE user_id = ? ORDER BY updated_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing chat sessions: %w", err)
	}
	defer rows.Close()

	sessions := []model.ChatSession{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning chat session: %w", err)
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

func (db *DB) TouchChatSession(ctx context.Context, userID, sessionID string, at time.Time) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE chat_sessions SET updated_at = ? WHERE user_id = ? AND id = ?`,
		formatTime(at), userID, sessionID)
	if err != nil {
		return fmt.Errorf("sqlite: touching chat session %s: %w", sessionID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("Chat session")
	}
	return nil
}

func (db *DB) CreateChatMessage(ctx context.Context, message *model.ChatMessage) error {
	if message.CreatedAt.IsZero() {
		message.CreatedAt = db.now()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO chat_messages (session_id, id, role, content, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		message.SessionID, message.ID, string(message.Role), message.Content, formatTime(message.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting chat message %s: %w", message.ID, err)
	}
	return nil
}

// ListChatMessages orders by created_at then id; ids are xids, so messages
// written in the same instant still come back in write order.
func (db *DB) ListChatMessages(ctx context.Context, sessionID string) ([]model.ChatMessage, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT session_id, id, role, content, created_at
		 FROM chat_messages WHERE session_id = ? ORDER BY created_at, id`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing chat messages: %w", err)
	}
	defer rows.Close()

	messages := []model.ChatMessage{}
	for rows.Next() {
		var (
			m         model.ChatMessage
			role      string
			createdAt string
		)
		if err := rows.Scan(&m.SessionID, &m.ID, &role, &m.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning chat message: %w", err)
		}
		m.Role = model.MessageRole(role)
		m.CreatedAt = parseTime(createdAt)
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

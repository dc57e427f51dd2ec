// Package repository defines the data access contract and the single-table
// key scheme shared by every storage backend.
//
// Two implementations exist:
//   - repository/dynamodb: the production store (one DynamoDB table plus the
//     analytics table written by the tagging service)
//   - repository/sqlite:   a local development store with the same semantics
//
// Services depend only on these interfaces, so tests inject in-memory fakes.
package repository

import (
	"context"
	"time"

	"github.com/sakif/vaccine-portal/internal/model"
)

// UserRepository manages user profile records.
//
// Lookups that miss return (nil, nil) rather than an error: "no such user"
// is an expected answer during registration and login, not a failure.
type UserRepository interface {
	// CreateUser writes the profile unconditionally. Callers that need
	// uniqueness must probe with GetUserByEmail first.
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	// UpdateUser applies the whitelisted fields and refreshes updatedAt.
	// It returns apperror.ErrNotFound if the profile does not exist.
	UpdateUser(ctx context.Context, email string, update model.ProfileUpdate) (*model.User, error)
	// DeleteUser is idempotent.
	DeleteUser(ctx context.Context, email string) error
	// ListUsers returns every non-admin profile.
	ListUsers(ctx context.Context) ([]model.User, error)
}

// OAuthRepository manages (email, provider) link records.
type OAuthRepository interface {
	CreateOAuthLink(ctx context.Context, link *model.OAuthLink) error
	GetOAuthLink(ctx context.Context, email string, provider model.Provider) (*model.OAuthLink, error)
}

// ChatRepository manages chat sessions and their messages.
type ChatRepository interface {
	CreateChatSession(ctx context.Context, session *model.ChatSession) error
	GetChatSession(ctx context.Context, userID, sessionID string) (*model.ChatSession, error)
	ListChatSessions(ctx context.Context, userID string) ([]model.ChatSession, error)
	// TouchChatSession sets the session's updatedAt. Missing sessions are
	// reported as apperror.ErrNotFound.
	TouchChatSession(ctx context.Context, userID, sessionID string, at time.Time) error
	CreateChatMessage(ctx context.Context, message *model.ChatMessage) error
	// ListChatMessages returns messages ordered by CreatedAt ascending.
	ListChatMessages(ctx context.Context, sessionID string) ([]model.ChatMessage, error)
}

// QuestionRepository reads the analytics table.
type QuestionRepository interface {
	ListQuestions(ctx context.Context) ([]model.Question, error)
}

// Store is everything the application needs from a backend.
type Store interface {
	UserRepository
	OAuthRepository
	ChatRepository
	QuestionRepository
	Close() error
}

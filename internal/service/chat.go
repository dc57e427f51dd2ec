package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/xid"

	"github.com/sakif/vaccine-portal/internal/apperror"
	"github.com/sakif/vaccine-portal/internal/inference"
	"github.com/sakif/vaccine-portal/internal/model"
	"github.com/sakif/vaccine-portal/internal/repository"
)

const (
	DefaultSessionTitle = "New Chat"
	sessionTitleRunes   = 50
	defaultTagTimeout   = 10 * time.Second
)

// Assistant is the upstream question-answering service.
// *inference.Client satisfies it.
type Assistant interface {
	Ask(ctx context.Context, query string) (json.RawMessage, error)
	Answer(ctx context.Context, query string) (*inference.Answer, error)
	Tag(ctx context.Context, question string) error
}

// ChatService proxies questions to the assistant and keeps chat history.
//
// Every question is also sent to the tagging service in the background.
// Tagging feeds the admin analytics only, so its outcome never reaches the
// caller; Drain lets shutdown wait for calls still in flight.
type ChatService struct {
	chats      repository.ChatRepository
	assistant  Assistant
	logger     *slog.Logger
	tagTimeout time.Duration
	wg         sync.WaitGroup

	now          func() time.Time
	newSessionID func() string
	newMessageID func() string
}

func NewChatService(chats repository.ChatRepository, assistant Assistant, tagTimeout time.Duration, logger *slog.Logger) *ChatService {
	if tagTimeout <= 0 {
		tagTimeout = defaultTagTimeout
	}
	return &ChatService{
		chats:        chats,
		assistant:    assistant,
		logger:       logger,
		tagTimeout:   tagTimeout,
		now:          func() time.Time { return time.Now().UTC() },
		newSessionID: uuid.NewString,
		newMessageID: func() string { return xid.New().String() },
	}
}

// Ask forwards a one-off question and returns the assistant's JSON reply
// untouched.
func (s *ChatService) Ask(ctx context.Context, query string) (json.RawMessage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperror.ValidationFailed("user_query", "user_query is required")
	}

	s.tagAsync(ctx, query)

	body, err := s.assistant.Ask(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("service/chat: asking: %w", err)
	}
	return body, nil
}

// tagAsync sends question to the tagging service without blocking. The
// call outlives the request, so it runs on a detached context with its
// own deadline.
func (s *ChatService) tagAsync(ctx context.Context, question string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.tagTimeout)
		defer cancel()

		if err := s.assistant.Tag(ctx, question); err != nil {
			s.logger.Warn("question tagging failed", slog.Any("error", err))
		}
	}()
}

// Drain blocks until background tagging calls finish or ctx is done.
func (s *ChatService) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *ChatService) ListSessions(ctx context.Context, userID string) ([]model.ChatSession, error) {
	sessions, err := s.chats.ListChatSessions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/chat: listing sessions for %s: %w", userID, err)
	}
	return sessions, nil
}

// CreateSession starts an empty session. A blank title becomes "New Chat".
func (s *ChatService) CreateSession(ctx context.Context, userID, title string) (*model.ChatSession, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultSessionTitle
	}

	now := s.now()
	session := &model.ChatSession{
		ID:        s.newSessionID(),
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.chats.CreateChatSession(ctx, session); err != nil {
		return nil, fmt.Errorf("service/chat: creating session: %w", err)
	}
	return session, nil
}

// ListMessages returns a session's history. Sessions belonging to another
// user are reported as not found.
func (s *ChatService) ListMessages(ctx context.Context, userID, sessionID string) ([]model.ChatMessage, error) {
	if sessionID == "" {
		return nil, apperror.ValidationFailed("sessionId", "Session ID is required")
	}
	if _, err := s.ownedSession(ctx, userID, sessionID); err != nil {
		return nil, err
	}

	messages, err := s.chats.ListChatMessages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("service/chat: listing messages of %s: %w", sessionID, err)
	}
	return messages, nil
}

// SendResult is the assistant's reply and the session it was stored in.
type SendResult struct {
	Message   *model.ChatMessage `json:"message"`
	SessionID string             `json:"sessionId"`
}

// SendMessage stores the user's message, asks the assistant and stores the
// reply. With an empty sessionID a session is created and titled after
// the message.
//
// If the assistant fails the user's message stays stored and the session
// is left untouched.
func (s *ChatService) SendMessage(ctx context.Context, userID, sessionID, content string) (*SendResult, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperror.ValidationFailed("content", "content is required")
	}

	if sessionID == "" {
		session, err := s.CreateSession(ctx, userID, SessionTitle(content))
		if err != nil {
			return nil, err
		}
		sessionID = session.ID
	} else if _, err := s.ownedSession(ctx, userID, sessionID); err != nil {
		return nil, err
	}

	question := &model.ChatMessage{
		ID:        s.newMessageID(),
		SessionID: sessionID,
		Role:      model.MessageRoleUser,
		Content:   content,
		CreatedAt: s.now(),
	}
	if err := s.chats.CreateChatMessage(ctx, question); err != nil {
		return nil, fmt.Errorf("service/chat: storing question: %w", err)
	}

	s.tagAsync(ctx, content)

	answer, err := s.assistant.Answer(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("service/chat: answering: %w", err)
	}

	reply := &model.ChatMessage{
		ID:        s.newMessageID(),
		SessionID: sessionID,
		Role:      model.MessageRoleAssistant,
		Content:   answer.GeneratedResponse,
		CreatedAt: s.now(),
	}
	if !reply.CreatedAt.After(question.CreatedAt) {
		reply.CreatedAt = question.CreatedAt.Add(time.Millisecond)
	}
	if err := s.chats.CreateChatMessage(ctx, reply); err != nil {
		return nil, fmt.Errorf("service/chat: storing answer: %w", err)
	}

	if err := s.chats.TouchChatSession(ctx, userID, sessionID, reply.CreatedAt); err != nil {
		return nil, fmt.Errorf("service/chat: touching session %s: %w", sessionID, err)
	}

	return &SendResult{Message: reply, SessionID: sessionID}, nil
}

func (s *ChatService) ownedSession(ctx context.Context, userID, sessionID string) (*model.ChatSession, error) {
	session, err := s.chats.GetChatSession(ctx, userID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("service/chat: fetching session %s: %w", sessionID, err)
	}
	if session == nil {
		return nil, apperror.NotFound("Chat session")
	}
	return session, nil
}

// SessionTitle is the first 50 characters of a message.
func SessionTitle(content string) string {
	r := []rune(strings.TrimSpace(content))
	if len(r) > sessionTitleRunes {
		r = r[:sessionTitleRunes]
	}
	return strings.TrimSpace(string(r))
}

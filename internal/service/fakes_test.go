package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/sakif/vaccine-portal/internal/apperror"
	"github.com/sakif/vaccine-portal/internal/inference"
	"github.com/sakif/vaccine-portal/internal/model"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// fakeStore is an in-memory implementation of every repository interface.
// Set an *Err field to simulate a storage failure for that operation.
type fakeStore struct {
	mu        sync.Mutex
	users     map[string]model.User
	links     map[string]model.OAuthLink
	sessions  map[string]model.ChatSession // keyed by userID + "/" + sessionID
	messages  []model.ChatMessage
	questions []model.Question

	getUserErr   error
	createErr    error
	listUsersErr error
	questionsErr error
	messageErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    make(map[string]model.User),
		links:    make(map[string]model.OAuthLink),
		sessions: make(map[string]model.ChatSession),
	}
}

func (f *fakeStore) CreateUser(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.users[u.Email] = *u
	return nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getUserErr != nil {
		return nil, f.getUserErr
	}
	u, ok := f.users[email]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (f *fakeStore) UpdateUser(_ context.Context, email string, update model.ProfileUpdate) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok {
		return nil, apperror.NotFound("User")
	}
	update.Apply(&u)
	f.users[email] = u
	return &u, nil
}

func (f *fakeStore) DeleteUser(_ context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.users, email)
	return nil
}

func (f *fakeStore) ListUsers(_ context.Context) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listUsersErr != nil {
		return nil, f.listUsersErr
	}
	var out []model.User
	for _, u := range f.users {
		if !u.IsAdmin() {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateOAuthLink(_ context.Context, l *model.OAuthLink) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.links[l.Email+"/"+string(l.Provider)] = *l
	return nil
}

func (f *fakeStore) GetOAuthLink(_ context.Context, email string, p model.Provider) (*model.OAuthLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.links[email+"/"+string(p)]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

func (f *fakeStore) CreateChatSession(_ context.Context, s *model.ChatSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[s.UserID+"/"+s.ID] = *s
	return nil
}

func (f *fakeStore) GetChatSession(_ context.Context, userID, sessionID string) (*model.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[userID+"/"+sessionID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (f *fakeStore) ListChatSessions(_ context.Context, userID string) ([]model.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ChatSession
	for _, s := range f.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (f *fakeStore) TouchChatSession(_ context.Context, userID, sessionID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := userID + "/" + sessionID
	s, ok := f.sessions[key]
	if !ok {
		return apperror.NotFound("Chat session")
	}
	s.UpdatedAt = at
	f.sessions[key] = s
	return nil
}

func (f *fakeStore) CreateChatMessage(_ context.Context, m *model.ChatMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.messageErr != nil {
		return f.messageErr
	}
	f.messages = append(f.messages, *m)
	return nil
}

func (f *fakeStore) ListChatMessages(_ context.Context, sessionID string) ([]model.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ChatMessage
	for _, m := range f.messages {
		if m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeStore) ListQuestions(_ context.Context) ([]model.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.questionsErr != nil {
		return nil, f.questionsErr
	}
	return f.questions, nil
}

// fakeAssistant records tagging calls so tests can assert on them after
// ChatService.Drain.
type fakeAssistant struct {
	mu     sync.Mutex
	tagged []string

	askBody   json.RawMessage
	askErr    error
	answer    string
	answerErr error
	tagErr    error
	// tagBlock, when set, holds Tag until it is closed.
	tagBlock chan struct{}
}

func (a *fakeAssistant) Ask(_ context.Context, _ string) (json.RawMessage, error) {
	if a.askErr != nil {
		return nil, a.askErr
	}
	return a.askBody, nil
}

func (a *fakeAssistant) Answer(_ context.Context, _ string) (*inference.Answer, error) {
	if a.answerErr != nil {
		return nil, a.answerErr
	}
	return &inference.Answer{GeneratedResponse: a.answer}, nil
}

func (a *fakeAssistant) Tag(ctx context.Context, q string) error {
	if a.tagBlock != nil {
		select {
		case <-a.tagBlock:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	a.mu.Lock()
	a.tagged = append(a.tagged, q)
	a.mu.Unlock()
	return a.tagErr
}

func (a *fakeAssistant) taggedQuestions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.tagged...)
}

var errStoreDown = errors.New("store unavailable")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/vaccine-portal/internal/auth"
	"github.com/sakif/vaccine-portal/internal/model"
	"github.com/sakif/vaccine-portal/internal/service"
)

// ChatHandler serves the assistant proxy and chat history. All routes sit
// behind RequireAuth and act on the signed-in user's sessions only.
type ChatHandler struct {
	chat   *service.ChatService
	logger *slog.Logger
}

func NewChatHandler(chat *service.ChatService, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{chat: chat, logger: logger}
}

type askRequest struct {
	UserQuery string `json:"user_query"`
}

// HandleAsk forwards one question and relays the assistant's JSON as is.
//
// HTTP: POST /api/chat
// REQUEST BODY: {"user_query": "..."}
func (h *ChatHandler) HandleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeMessage(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	body, err := h.chat.Ask(r.Context(), req.UserQuery)
	if err != nil {
		writeError(w, r, h.logger, err, "Error processing request")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		h.logger.Warn("writing chat response", slog.String("error", err.Error()))
	}
}

// HandleListSessions returns the user's sessions, most recent first.
//
// HTTP: GET /api/chat/sessions
func (h *ChatHandler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	sessions, err := h.chat.ListSessions(r.Context(), user.Email)
	if err != nil {
		writeError(w, r, h.logger, err, "Failed to fetch chat sessions")
		return
	}
	if sessions == nil {
		sessions = []model.ChatSession{}
	}
	writeJSON(w, http.StatusOK, map[string][]model.ChatSession{"sessions": sessions})
}

type createSessionRequest struct {
	Title string `json:"title"`
}

// HandleCreateSession starts an empty session. The body is optional.
//
// HTTP: POST /api/chat/sessions
func (h *ChatHandler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	var req createSessionRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req, false); err != nil {
			writeMessage(w, http.StatusBadRequest, msgInvalidBody)
			return
		}
	}

	session, err := h.chat.CreateSession(r.Context(), user.Email, req.Title)
	if err != nil {
		writeError(w, r, h.logger, err, "Failed to create chat session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]*model.ChatSession{"session": session})
}

// HandleListMessages returns one session's messages, oldest first.
//
// HTTP: GET /api/chat/messages?sessionId=...
func (h *ChatHandler) HandleListMessages(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	messages, err := h.chat.ListMessages(r.Context(), user.Email, r.URL.Query().Get("sessionId"))
	if err != nil {
		writeError(w, r, h.logger, err, "Failed to fetch chat messages")
		return
	}
	if messages == nil {
		messages = []model.ChatMessage{}
	}
	writeJSON(w, http.StatusOK, map[string][]model.ChatMessage{"messages": messages})
}

type sendMessageRequest struct {
	SessionID string `json:"sessionId"`
	Content   string `json:"content"`
}

// HandleSendMessage stores a question and the assistant's answer.
//
// HTTP: POST /api/chat/messages
// REQUEST BODY: {"sessionId": "..." (optional), "content": "..."}
func (h *ChatHandler) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	var req sendMessageRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeMessage(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	res, err := h.chat.SendMessage(r.Context(), user.Email, req.SessionID, req.Content)
	if err != nil {
		writeError(w, r, h.logger, err, "Failed to create chat message")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

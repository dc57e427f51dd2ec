package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/vaccine-portal/internal/auth"
	"github.com/sakif/vaccine-portal/internal/model"
	"github.com/sakif/vaccine-portal/internal/service"
)

// AdminHandler serves /api/admin/*. Every route sits behind RequireAdmin.
type AdminHandler struct {
	admin  *service.AdminService
	logger *slog.Logger
}

func NewAdminHandler(admin *service.AdminService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{admin: admin, logger: logger}
}

// HandleListUsers returns every non-admin profile.
//
// HTTP: GET /api/admin/users
func (h *AdminHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.admin.ListUsers(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err, "Failed to fetch users")
		return
	}
	if users == nil {
		users = []model.User{}
	}
	writeJSON(w, http.StatusOK, map[string][]model.User{"users": users})
}

// HandleDeleteUser removes a profile.
//
// HTTP: DELETE /api/admin/users/{email}
func (h *AdminHandler) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.UserFromContext(r.Context())

	if err := h.admin.DeleteUser(r.Context(), actor.Email, chi.URLParam(r, "email")); err != nil {
		writeError(w, r, h.logger, err, "Failed to delete user")
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "User deleted successfully"})
}

// HandleListQuestions returns the tagged questions.
//
// HTTP: GET /api/admin/questions
func (h *AdminHandler) HandleListQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := h.admin.ListQuestions(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err, "Failed to fetch questions")
		return
	}
	if questions == nil {
		questions = []model.Question{}
	}
	writeJSON(w, http.StatusOK, map[string][]model.Question{"questions": questions})
}

// HandleStats returns the dashboard summary.
//
// HTTP: GET /api/admin/stats
func (h *AdminHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.admin.Stats(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err, "Failed to fetch stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

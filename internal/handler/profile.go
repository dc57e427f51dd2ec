package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/vaccine-portal/internal/auth"
	"github.com/sakif/vaccine-portal/internal/model"
	"github.com/sakif/vaccine-portal/internal/service"
)

// ProfileHandler serves /api/user/profile. Both routes sit behind
// RequireAuth; the user is only ever allowed to see and edit their own
// record.
type ProfileHandler struct {
	profiles *service.ProfileService
	logger   *slog.Logger
}

func NewProfileHandler(profiles *service.ProfileService, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, logger: logger}
}

// HandleGet returns the editable profile fields.
func (h *ProfileHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	p, err := h.profiles.Get(r.Context(), user.Email)
	if err != nil {
		writeError(w, r, h.logger, err, "Failed to fetch profile")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleUpdate applies a partial update.
//
// The body is decoded strictly into model.ProfileUpdate, so "email",
// "role" or "password" in the body is a 400, not a silent no-op.
func (h *ProfileHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	var update model.ProfileUpdate
	if err := decodeJSON(w, r, &update, true); err != nil {
		writeMessage(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	updated, err := h.profiles.Update(r.Context(), user.Email, update)
	if err != nil {
		writeError(w, r, h.logger, err, "Failed to update profile")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

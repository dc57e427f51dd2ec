package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/vaccine-portal/internal/auth"
	"github.com/sakif/vaccine-portal/internal/model"
	"github.com/sakif/vaccine-portal/internal/service"
)

// AuthHandler serves local registration and login, logout, and the two
// "who am I" endpoints.
//
// HANDLER RESPONSIBILITIES:
//   - HandleRegister  → create an account and sign it in
//   - HandleLogin     → check credentials and set the session cookies
//   - HandleLogout    → clear the session cookies
//   - HandleMe        → full profile of the signed-in user (RequireAuth)
//   - HandleCheckAuth → cheap logged-in probe used by the navigation bar
type AuthHandler struct {
	auth    *service.AuthService
	authn   *auth.Authenticator
	cookies *auth.Cookies
	logger  *slog.Logger
}

func NewAuthHandler(
	authService *service.AuthService,
	authn *auth.Authenticator,
	cookies *auth.Cookies,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		auth:    authService,
		authn:   authn,
		cookies: cookies,
		logger:  logger,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by login and registration.
type AuthResponse struct {
	Message    string      `json:"message"`
	User       *model.User `json:"user"`
	RedirectTo string      `json:"redirectTo,omitempty"`
}

// HandleRegister creates a local account.
//
// HTTP: POST /api/auth/register
// REQUEST BODY: {"email","password","firstName","lastName","dateOfBirth","gender","phone","address"}
//
// The new user is signed in straight away: the response carries the
// session cookies.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(w, r, &in, false); err != nil {
		writeMessage(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	res, err := h.auth.Register(r.Context(), in)
	if err != nil {
		writeError(w, r, h.logger, err, "Registration failed")
		return
	}

	h.cookies.SetSession(w, res.Token, auth.AuthLocal)
	writeJSON(w, http.StatusOK, AuthResponse{Message: "Registration successful", User: res.User})
}

// HandleLogin checks email and password.
//
// HTTP: POST /api/auth/login
// REQUEST BODY: {"email": "...", "password": "..."}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeMessage(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	res, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, h.logger, err, "Login failed")
		return
	}

	h.cookies.SetSession(w, res.Token, auth.AuthLocal)
	writeJSON(w, http.StatusOK, AuthResponse{
		Message:    "Login successful",
		User:       res.User,
		RedirectTo: res.RedirectTo,
	})
}

// HandleLogout deletes the session cookies. The token itself stays valid
// until it expires, but the browser no longer has it.
//
// HTTP: POST /api/auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.cookies.ClearSession(w)
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Logged out successfully"})
}

// HandleMe returns the signed-in user.
//
// HTTP: GET /api/auth/me
// Auth: Required (RequireAuth puts the user in the context)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, map[string]*model.User{"user": user})
}

type checkAuthUser struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type checkAuthResponse struct {
	IsLoggedIn bool           `json:"isLoggedIn"`
	User       *checkAuthUser `json:"user,omitempty"`
}

// HandleCheckAuth reports whether the request carries a valid session.
//
// HTTP: GET /api/auth/check-auth
// Anonymous callers get 401 {"isLoggedIn": false} rather than an error body.
func (h *AuthHandler) HandleCheckAuth(w http.ResponseWriter, r *http.Request) {
	user, err := h.authn.CurrentUser(r)
	if err != nil {
		writeError(w, r, h.logger, err, "Failed to check authentication status")
		return
	}
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, checkAuthResponse{IsLoggedIn: false})
		return
	}

	writeJSON(w, http.StatusOK, checkAuthResponse{
		IsLoggedIn: true,
		User: &checkAuthUser{
			Email:     user.Email,
			FirstName: user.FirstName,
			LastName:  user.LastName,
		},
	})
}

package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/vaccine-portal/internal/model"
)

// contextKey is unexported so no other package can read or shadow the
// values this package stores in a request context.
type contextKey string

const userKey contextKey = "user"

// UserLookup is the one store method the guards need.
type UserLookup interface {
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}

// Authenticator resolves the session cookie to a user and guards routes.
//
// A request is:
//   - anonymous:     no cookie, bad token, or the account no longer exists
//   - authenticated: valid token AND the user record exists
//   - admin:         authenticated AND role == admin
type Authenticator struct {
	tokens *TokenService
	users  UserLookup
	logger *slog.Logger
}

func NewAuthenticator(tokens *TokenService, users UserLookup, logger *slog.Logger) *Authenticator {
	return &Authenticator{tokens: tokens, users: users, logger: logger}
}

// CurrentUser returns the signed-in user, or (nil, nil) for an anonymous
// request. An error means the store lookup itself failed.
func (a *Authenticator) CurrentUser(r *http.Request) (*model.User, error) {
	cookie, err := r.Cookie(TokenCookie)
	if err != nil || cookie.Value == "" {
		return nil, nil
	}

	email, err := a.tokens.Validate(cookie.Value)
	if err != nil {
		return nil, nil
	}

	return a.users.GetUserByEmail(r.Context(), email)
}

// RequireAuth rejects anonymous requests with 401 and puts the user in the
// request context for the handler.
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return a.require(false, "Not authenticated", next)
}

// RequireAdmin is RequireAuth plus a role check. Anonymous and non-admin
// requests get the same 401 so the endpoint doesn't reveal which one failed.
func (a *Authenticator) RequireAdmin(next http.Handler) http.Handler {
	return a.require(true, "Unauthorized", next)
}

func (a *Authenticator) require(admin bool, message string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := a.CurrentUser(r)
		if err != nil {
			a.logger.Error("session lookup failed", "path", r.URL.Path, "error", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		if user == nil || (admin && !user.IsAdmin()) {
			writeError(w, http.StatusUnauthorized, message)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// PAGE ROUTES:
// PageGuard protects the static pages (not the API, which has its own
// guards). Anonymous visitors to a protected page are sent to /login;
// signed-in non-admins who try /admin are sent home.
var protectedPrefixes = []string{"/dashboard", "/profile", "/chat", "/admin"}

func isProtectedPage(path string) bool {
	if strings.HasPrefix(path, "/api/") || strings.HasPrefix(path, "/news") {
		return false
	}
	for _, p := range protectedPrefixes {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

func isAdminPage(path string) bool {
	return path == "/admin" || strings.HasPrefix(path, "/admin/")
}

func (a *Authenticator) PageGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isProtectedPage(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		user, err := a.CurrentUser(r)
		if err != nil {
			a.logger.Error("session lookup failed", "path", r.URL.Path, "error", err)
		}
		if user == nil {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		if isAdminPage(r.URL.Path) && !user.IsAdmin() {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the user stored by RequireAuth, RequireAdmin or
// PageGuard.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey).(*model.User)
	return u, ok && u != nil
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

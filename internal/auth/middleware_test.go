package auth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sakif/vaccine-portal/internal/model"
)

type fakeUsers struct {
	users map[string]*model.User
	err   error
}

func (f *fakeUsers) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.users[email], nil
}

func newTestAuthenticator(t *testing.T) (*Authenticator, *TokenService, *fakeUsers) {
	t.Helper()
	ts := newTestTokenService(t)
	users := &fakeUsers{users: map[string]*model.User{
		"user@example.com":  {Email: "user@example.com", Role: model.RoleUser},
		"admin@example.com": {Email: "admin@example.com", Role: model.RoleAdmin},
	}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewAuthenticator(ts, users, logger), ts, users
}

func requestAs(t *testing.T, ts *TokenService, method, path, email string) *http.Request {
	t.Helper()
	r := httptest.NewRequest(method, path, nil)
	if email != "" {
		token, err := ts.Generate(email)
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		r.AddCookie(&http.Cookie{Name: TokenCookie, Value: token})
	}
	return r
}

// echoUser writes the email of the user found in the context.
var echoUser = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	u, ok := UserFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusTeapot)
		return
	}
	io.WriteString(w, u.Email)
})

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	return body["error"]
}

func TestRequireAuth(t *testing.T) {
	a, ts, _ := newTestAuthenticator(t)
	h := a.RequireAuth(echoUser)

	tests := []struct {
		name       string
		email      string
		wantStatus int
	}{
		{"anonymous", "", http.StatusUnauthorized},
		{"valid session", "user@example.com", http.StatusOK},
		{"deleted account", "ghost@example.com", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, requestAs(t, ts, http.MethodGet, "/api/auth/me", tt.email))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusUnauthorized {
				if got := errorBody(t, rec); got != "Not authenticated" {
					t.Errorf("error = %q, want %q", got, "Not authenticated")
				}
			} else if rec.Body.String() != tt.email {
				t.Errorf("context user = %q, want %q", rec.Body.String(), tt.email)
			}
		})
	}
}

// A cookie holding a plain email must not authenticate.
func TestRequireAuth_ForgedCookie(t *testing.T) {
	a, _, _ := newTestAuthenticator(t)

	r := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	r.AddCookie(&http.Cookie{Name: TokenCookie, Value: "admin@example.com"})
	rec := httptest.NewRecorder()
	a.RequireAuth(echoUser).ServeHTTP(rec, r)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestRequireAuth_StoreError(t *testing.T) {
	a, ts, users := newTestAuthenticator(t)
	users.err = errors.New("table unavailable")

	rec := httptest.NewRecorder()
	a.RequireAuth(echoUser).ServeHTTP(rec, requestAs(t, ts, http.MethodGet, "/api/auth/me", "user@example.com"))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestRequireAdmin(t *testing.T) {
	a, ts, _ := newTestAuthenticator(t)
	h := a.RequireAdmin(echoUser)

	tests := []struct {
		name       string
		email      string
		wantStatus int
	}{
		{"anonymous", "", http.StatusUnauthorized},
		{"regular user", "user@example.com", http.StatusUnauthorized},
		{"admin", "admin@example.com", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, requestAs(t, ts, http.MethodGet, "/api/admin/users", tt.email))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusUnauthorized {
				if got := errorBody(t, rec); got != "Unauthorized" {
					t.Errorf("error = %q, want %q", got, "Unauthorized")
				}
			}
		})
	}
}

func TestPageGuard(t *testing.T) {
	a, ts, _ := newTestAuthenticator(t)
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	h := a.PageGuard(ok)

	tests := []struct {
		name         string
		path         string
		email        string
		wantStatus   int
		wantLocation string
	}{
		{"home is public", "/", "", http.StatusOK, ""},
		{"login is public", "/login", "", http.StatusOK, ""},
		{"register is public", "/register", "", http.StatusOK, ""},
		{"news is public", "/news", "", http.StatusOK, ""},
		{"news article is public", "/news/some-article", "", http.StatusOK, ""},
		{"assets pass", "/assets/app.js", "", http.StatusOK, ""},
		{"api is left to api guards", "/api/user/profile", "", http.StatusOK, ""},
		{"dashboard needs login", "/dashboard", "", http.StatusSeeOther, "/login"},
		{"profile needs login", "/profile", "", http.StatusSeeOther, "/login"},
		{"chat subpage needs login", "/chat/abc", "", http.StatusSeeOther, "/login"},
		{"admin needs login", "/admin", "", http.StatusSeeOther, "/login"},
		{"signed in user sees dashboard", "/dashboard", "user@example.com", http.StatusOK, ""},
		{"non-admin sent home from admin", "/admin/users", "user@example.com", http.StatusSeeOther, "/"},
		{"admin sees admin", "/admin", "admin@example.com", http.StatusOK, ""},
		{"prefix match is per segment", "/chatter", "", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, requestAs(t, ts, http.MethodGet, tt.path, tt.email))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if loc := rec.Header().Get("Location"); loc != tt.wantLocation {
				t.Errorf("Location = %q, want %q", loc, tt.wantLocation)
			}
		})
	}
}

func TestCookies_SessionFlags(t *testing.T) {
	c := NewCookies(true, time.Hour)
	rec := httptest.NewRecorder()
	c.SetSession(rec, "tok", AuthOAuth)

	cookies := rec.Result().Cookies()
	if len(cookies) != 2 {
		t.Fatalf("got %d cookies, want 2", len(cookies))
	}
	for _, ck := range cookies {
		if !ck.HttpOnly || !ck.Secure || ck.SameSite != http.SameSiteLaxMode || ck.Path != "/" {
			t.Errorf("cookie %s has wrong flags: %+v", ck.Name, ck)
		}
		if ck.MaxAge != 3600 {
			t.Errorf("cookie %s MaxAge = %d, want 3600", ck.Name, ck.MaxAge)
		}
	}
	if cookies[1].Name != TypeCookie || cookies[1].Value != "oauth" {
		t.Errorf("auth_type cookie = %+v", cookies[1])
	}
}

func TestCookies_ConsumeState(t *testing.T) {
	c := NewCookies(false, time.Hour)

	tests := []struct {
		name   string
		cookie string
		got    string
		want   bool
	}{
		{"match", "abc", "abc", true},
		{"mismatch", "abc", "xyz", false},
		{"no cookie", "", "abc", false},
		{"empty state", "abc", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/auth/github/callback", nil)
			if tt.cookie != "" {
				r.AddCookie(&http.Cookie{Name: StateCookie, Value: tt.cookie})
			}
			rec := httptest.NewRecorder()

			if got := c.ConsumeState(rec, r, tt.got); got != tt.want {
				t.Errorf("ConsumeState() = %v, want %v", got, tt.want)
			}

			cleared := rec.Result().Cookies()
			if len(cleared) != 1 || cleared[0].MaxAge >= 0 {
				t.Errorf("state cookie not cleared: %+v", cleared)
			}
		})
	}
}

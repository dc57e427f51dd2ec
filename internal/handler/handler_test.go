package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/sakif/vaccine-portal/internal/auth"
	"github.com/sakif/vaccine-portal/internal/handler"
	"github.com/sakif/vaccine-portal/internal/inference"
	"github.com/sakif/vaccine-portal/internal/model"
	"github.com/sakif/vaccine-portal/internal/repository/sqlite"
	"github.com/sakif/vaccine-portal/internal/service"
)

// upstream fakes the inference and tagging endpoints.
type upstream struct {
	srv       *httptest.Server
	reply     string
	askStatus int
	tagFail   bool
	tagged    int32
}

func newUpstream(t *testing.T) *upstream {
	t.Helper()
	u := &upstream{
		reply:     `{"generated_response":"Vaccines are safe.","source_url":"https://who.int"}`,
		askStatus: http.StatusOK,
	}
	u.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ask":
			w.WriteHeader(u.askStatus)
			io.WriteString(w, u.reply)
		case "/tag":
			atomic.AddInt32(&u.tagged, 1)
			if u.tagFail {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			io.WriteString(w, `{}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(u.srv.Close)
	return u
}

type fakeArticles struct {
	articles []model.Article
}

func (f *fakeArticles) Articles(context.Context, string) ([]model.Article, error) {
	return f.articles, nil
}

// fakeProvider is an OAuth provider that accepts the code "good".
type fakeProvider struct {
	identity *auth.Identity
}

func (p *fakeProvider) Name() model.Provider { return model.ProviderGitHub }

func (p *fakeProvider) AuthURL(state string) string {
	return "https://github.example/authorize?state=" + state
}

func (p *fakeProvider) Exchange(_ context.Context, code string) (*auth.Identity, error) {
	if code != "good" {
		return nil, fmt.Errorf("bad code %q", code)
	}
	return p.identity, nil
}

// testApp is the full handler graph over an in-memory SQLite store,
// mounted on a chi router with the same paths as production.
type testApp struct {
	router   http.Handler
	store    *sqlite.DB
	tokens   *auth.TokenService
	upstream *upstream
	chat     *service.ChatService
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	tokens, err := auth.NewTokenService("handler-test-secret-0123456789", time.Hour)
	require.NoError(t, err)
	passwords := auth.NewPasswordServiceWithCost(4)
	cookies := auth.NewCookies(false, time.Hour)
	authn := auth.NewAuthenticator(tokens, store, logger)

	up := newUpstream(t)
	assistant := inference.NewClient(up.srv.URL+"/ask", up.srv.URL+"/tag", 5*time.Second)

	authService := service.NewAuthService(store, store, tokens, passwords, logger)
	chatService := service.NewChatService(store, assistant, time.Second, logger)
	articles := make([]model.Article, 12)
	for i := range articles {
		articles[i] = model.Article{ID: fmt.Sprintf("a%d", i+1)}
	}

	authH := handler.NewAuthHandler(authService, authn, cookies, logger)
	oauthH := handler.NewOAuthHandler(authService, cookies, "http://app.test", logger, &fakeProvider{
		identity: &auth.Identity{Provider: model.ProviderGitHub, ProviderID: "7", Email: "octo@example.com", FirstName: "Octo"},
	})
	profileH := handler.NewProfileHandler(service.NewProfileService(store, logger), logger)
	adminH := handler.NewAdminHandler(service.NewAdminService(store, store, logger), logger)
	chatH := handler.NewChatHandler(chatService, logger)
	newsH := handler.NewNewsHandler(service.NewNewsService(&fakeArticles{articles: articles}), logger)

	r := chi.NewRouter()
	r.Get("/healthz", handler.HandleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", authH.HandleRegister)
		r.Post("/auth/login", authH.HandleLogin)
		r.Post("/auth/logout", authH.HandleLogout)
		r.Get("/auth/check-auth", authH.HandleCheckAuth)
		r.With(authn.RequireAuth).Get("/auth/me", authH.HandleMe)
		r.Get("/auth/{provider}", oauthH.HandleStart)
		r.Get("/auth/{provider}/callback", oauthH.HandleCallback)
		r.Get("/news", newsH.HandleList)

		r.Group(func(r chi.Router) {
			r.Use(authn.RequireAuth)
			r.Get("/user/profile", profileH.HandleGet)
			r.Put("/user/profile", profileH.HandleUpdate)
			r.Post("/chat", chatH.HandleAsk)
			r.Get("/chat/sessions", chatH.HandleListSessions)
			r.Post("/chat/sessions", chatH.HandleCreateSession)
			r.Get("/chat/messages", chatH.HandleListMessages)
			r.Post("/chat/messages", chatH.HandleSendMessage)
		})
		r.Route("/admin", func(r chi.Router) {
			r.Use(authn.RequireAdmin)
			r.Get("/users", adminH.HandleListUsers)
			r.Delete("/users/{email}", adminH.HandleDeleteUser)
			r.Get("/questions", adminH.HandleListQuestions)
			r.Get("/stats", adminH.HandleStats)
		})
	})

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		chatService.Drain(ctx)
	})

	return &testApp{router: r, store: store, tokens: tokens, upstream: up, chat: chatService}
}

// do sends a request; body may be nil, a string, or a value to encode.
func (a *testApp) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)
	return rr
}

// sessionFor creates a user directly in the store and returns its cookie.
func (a *testApp) sessionFor(t *testing.T, email string, role model.Role) *http.Cookie {
	t.Helper()
	require.NoError(t, a.store.CreateUser(context.Background(), &model.User{
		Email: email, FirstName: "Test", LastName: "User", Gender: model.GenderOther, Role: role,
	}))
	token, err := a.tokens.Generate(email)
	require.NoError(t, err)
	return &http.Cookie{Name: auth.TokenCookie, Value: token}
}

func cookieNamed(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v))
	return v
}

func errorMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[handler.ErrorResponse](t, rr).Error
}

var registration = map[string]string{
	"email":       "ada@example.com",
	"password":    "correct horse",
	"firstName":   "Ada",
	"lastName":    "Lovelace",
	"dateOfBirth": "1990-12-10",
	"gender":      "female",
}

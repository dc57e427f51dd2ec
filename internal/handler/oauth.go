package handler

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/xid"

	"github.com/sakif/vaccine-portal/internal/auth"
	"github.com/sakif/vaccine-portal/internal/model"
	"github.com/sakif/vaccine-portal/internal/service"
)

// OAuthHandler runs the provider sign-in round trip:
//
//	GET /api/auth/{provider}          → {"url": "<provider consent page>"}
//	GET /api/auth/{provider}/callback → set session, redirect to the app
//
// Callback failures never render an error page: the browser is sent back
// to /login?error=... so the login form can show the message.
type OAuthHandler struct {
	auth      *service.AuthService
	cookies   *auth.Cookies
	providers map[model.Provider]auth.OAuthProvider
	baseURL   string
	logger    *slog.Logger
}

// NewOAuthHandler registers the configured providers. Unconfigured ones
// answer 404.
func NewOAuthHandler(
	authService *service.AuthService,
	cookies *auth.Cookies,
	baseURL string,
	logger *slog.Logger,
	providers ...auth.OAuthProvider,
) *OAuthHandler {
	byName := make(map[model.Provider]auth.OAuthProvider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	return &OAuthHandler{
		auth:      authService,
		cookies:   cookies,
		providers: byName,
		baseURL:   strings.TrimRight(baseURL, "/"),
		logger:    logger,
	}
}

func (h *OAuthHandler) provider(r *http.Request) (auth.OAuthProvider, bool) {
	p, ok := h.providers[model.Provider(chi.URLParam(r, "provider"))]
	return p, ok
}

// HandleStart returns the provider's authorization URL.
//
// CSRF PROTECTION VIA STATE:
// A random state goes into a short-lived cookie and into the URL. The
// callback only proceeds when the two match.
func (h *OAuthHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	p, ok := h.provider(r)
	if !ok {
		writeMessage(w, http.StatusNotFound, "Unknown sign-in provider")
		return
	}

	state := xid.New().String()
	h.cookies.SetState(w, state)
	writeJSON(w, http.StatusOK, map[string]string{"url": p.AuthURL(state)})
}

// HandleCallback completes the sign-in.
//
// FLOW:
//  1. Validate the state parameter (CSRF check)
//  2. Bail out if the provider reported an error (user denied access)
//  3. Exchange the code for a verified identity
//  4. Create the profile and provider link if needed, issue the session
//  5. Redirect to the app home page
func (h *OAuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	p, ok := h.provider(r)
	if !ok {
		writeMessage(w, http.StatusNotFound, "Unknown sign-in provider")
		return
	}
	q := r.URL.Query()

	if !h.cookies.ConsumeState(w, r, q.Get("state")) {
		h.logger.Warn("oauth callback: state mismatch", slog.String("provider", string(p.Name())))
		h.fail(w, r, "Invalid OAuth state")
		return
	}

	if errParam := q.Get("error"); errParam != "" {
		h.logger.Info("oauth callback: authorization denied",
			slog.String("provider", string(p.Name())),
			slog.String("error", errParam),
		)
		h.fail(w, r, "Authorization was denied")
		return
	}

	code := q.Get("code")
	if code == "" {
		h.fail(w, r, "Missing authorization code")
		return
	}

	id, err := p.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("oauth callback: exchange failed",
			slog.String("provider", string(p.Name())),
			slog.String("error", err.Error()),
		)
		h.fail(w, r, "Authentication failed")
		return
	}

	res, err := h.auth.LoginWithOAuth(r.Context(), id)
	if err != nil {
		h.logger.Error("oauth callback: sign-in failed",
			slog.String("provider", string(p.Name())),
			slog.String("error", err.Error()),
		)
		h.fail(w, r, "Authentication failed")
		return
	}

	h.cookies.SetSession(w, res.Token, auth.AuthOAuth)
	target := "/"
	if res.RedirectTo != "" {
		target = res.RedirectTo
	}
	http.Redirect(w, r, h.baseURL+target, http.StatusSeeOther)
}

func (h *OAuthHandler) fail(w http.ResponseWriter, r *http.Request, message string) {
	http.Redirect(w, r, h.baseURL+"/login?error="+url.QueryEscape(message), http.StatusSeeOther)
}

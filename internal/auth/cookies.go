package auth

import (
	"net/http"
	"time"
)

// Cookie names shared with the frontend.
const (
	TokenCookie = "auth_token"
	TypeCookie  = "auth_type"
	StateCookie = "oauth_state"
)

// AuthType records how the current session was established.
type AuthType string

const (
	AuthLocal AuthType = "local"
	AuthOAuth AuthType = "oauth"
)

// stateTTL bounds how long an OAuth round trip may take.
const stateTTL = 10 * time.Minute

// Cookies writes and clears the session and OAuth state cookies.
//
// COOKIE FLAGS:
//   - HttpOnly: page JavaScript cannot read the token (XSS can't steal it)
//   - SameSite=Lax: sent on top-level navigations (the OAuth redirect back
//     to us) but not on cross-site subrequests
//   - Secure: HTTPS only, everywhere except APP_ENV=development
type Cookies struct {
	secure bool
	ttl    time.Duration
}

func NewCookies(secure bool, ttl time.Duration) *Cookies {
	return &Cookies{secure: secure, ttl: ttl}
}

func (c *Cookies) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// SetSession issues the session token and its companion auth_type cookie.
func (c *Cookies) SetSession(w http.ResponseWriter, token string, typ AuthType) {
	maxAge := int(c.ttl.Seconds())
	http.SetCookie(w, c.cookie(TokenCookie, token, maxAge))
	http.SetCookie(w, c.cookie(TypeCookie, string(typ), maxAge))
}

// ClearSession deletes both session cookies.
func (c *Cookies) ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, c.cookie(TokenCookie, "", -1))
	http.SetCookie(w, c.cookie(TypeCookie, "", -1))
}

func (c *Cookies) SetState(w http.ResponseWriter, state string) {
	http.SetCookie(w, c.cookie(StateCookie, state, int(stateTTL.Seconds())))
}

// ConsumeState reports whether got matches the state cookie, and clears the
// cookie either way so a state value is good for one callback only.
func (c *Cookies) ConsumeState(w http.ResponseWriter, r *http.Request, got string) bool {
	http.SetCookie(w, c.cookie(StateCookie, "", -1))

	cookie, err := r.Cookie(StateCookie)
	if err != nil || cookie.Value == "" {
		return false
	}
	return got != "" && cookie.Value == got
}

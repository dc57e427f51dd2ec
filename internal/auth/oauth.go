package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"

	"github.com/sakif/vaccine-portal/internal/model"
)

// ErrNoVerifiedEmail means the provider account has no email we can trust
// as an identity key.
var ErrNoVerifiedEmail = errors.New("auth: provider account has no verified email")

// Identity is what a provider tells us about the person signing in,
// normalised across providers.
type Identity struct {
	Provider   model.Provider
	ProviderID string
	Email      string
	FirstName  string
	LastName   string
}

// OAuthProvider runs the Authorization Code flow against one provider.
//
// OAUTH 2.0 AUTHORIZATION CODE FLOW:
//  1. AuthURL sends the browser to the provider with our client ID and a
//     random state value (also stored in a cookie)
//  2. The provider redirects back to the callback with a short-lived code
//  3. Exchange trades the code for an access token server-to-server and
//     reads the user's profile with it
type OAuthProvider interface {
	Name() model.Provider
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*Identity, error)
}

// =========================================================================
// GITHUB
// =========================================================================

type gitHubUser struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Name  string `json:"name"`
}

type gitHubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// GitHubProvider signs users in with GitHub.
type GitHubProvider struct {
	config  *oauth2.Config
	apiBase string
}

// NewGitHubProvider creates a GitHubProvider. callbackURL must match the
// "Authorization callback URL" registered for the OAuth App exactly.
//
// Scopes: "read:user" for the profile, "user:email" for /user/emails, which
// is the only place GitHub reports whether an address is verified.
func NewGitHubProvider(clientID, clientSecret, callbackURL string) *GitHubProvider {
	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		},
		apiBase: "https://api.github.com",
	}
}

func (p *GitHubProvider) Name() model.Provider { return model.ProviderGitHub }

func (p *GitHubProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange returns the identity behind code, keyed by the account's primary
// verified email. The public profile email is ignored: it can be any
// address the user typed, verified or not.
func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*Identity, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging GitHub code: %w", err)
	}
	client := p.config.Client(ctx, token)

	var u gitHubUser
	if err := getJSON(ctx, client, p.apiBase+"/user", &u); err != nil {
		return nil, fmt.Errorf("auth: GitHub /user: %w", err)
	}
	if u.ID == 0 {
		return nil, errors.New("auth: GitHub returned an invalid user (ID = 0)")
	}

	var emails []gitHubEmail
	if err := getJSON(ctx, client, p.apiBase+"/user/emails", &emails); err != nil {
		return nil, fmt.Errorf("auth: GitHub /user/emails: %w", err)
	}

	email := ""
	for _, e := range emails {
		if e.Primary && e.Verified {
			email = e.Email
			break
		}
	}
	if email == "" {
		return nil, ErrNoVerifiedEmail
	}

	name := u.Name
	if name == "" {
		name = u.Login
	}
	first, last := model.SplitName(name)

	return &Identity{
		Provider:   model.ProviderGitHub,
		ProviderID: fmt.Sprintf("%d", u.ID),
		Email:      email,
		FirstName:  first,
		LastName:   last,
	}, nil
}

// =========================================================================
// GOOGLE
// =========================================================================

type googleUserInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
}

// GoogleProvider signs users in with Google via the OpenID Connect
// userinfo endpoint.
type GoogleProvider struct {
	config      *oauth2.Config
	userInfoURL string
}

func NewGoogleProvider(clientID, clientSecret, callbackURL string) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		userInfoURL: "https://openidconnect.googleapis.com/v1/userinfo",
	}
}

func (p *GoogleProvider) Name() model.Provider { return model.ProviderGoogle }

func (p *GoogleProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*Identity, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging Google code: %w", err)
	}

	var info googleUserInfo
	if err := getJSON(ctx, p.config.Client(ctx, token), p.userInfoURL, &info); err != nil {
		return nil, fmt.Errorf("auth: Google userinfo: %w", err)
	}
	if info.Email == "" || !info.EmailVerified {
		return nil, ErrNoVerifiedEmail
	}

	first, last := info.GivenName, info.FamilyName
	if first == "" && last == "" {
		first, last = model.SplitName(info.Name)
	}

	return &Identity{
		Provider:   model.ProviderGoogle,
		ProviderID: info.Sub,
		Email:      info.Email,
		FirstName:  first,
		LastName:   last,
	}, nil
}

// getJSON GETs url with the token-bearing client and decodes a 200 body.
func getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Package service contains the business rules of the portal.
//
//	Handler (HTTP) → Service (rules, orchestration) → Repository (storage)
//
// Services accept and return domain types, never HTTP ones, and report
// failures as apperror kinds that the handler layer maps to status codes.
// Every dependency is injected through a constructor; nothing here reaches
// for a global client.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/vaccine-portal/internal/apperror"
	"github.com/sakif/vaccine-portal/internal/auth"
	"github.com/sakif/vaccine-portal/internal/model"
	"github.com/sakif/vaccine-portal/internal/repository"
)

// Client-facing auth messages. Login uses one message for every failure so
// the response does not reveal which emails are registered.
const (
	msgMissingFields     = "Missing required fields"
	msgEmailRegistered   = "Email already registered"
	msgInvalidCredential = "Invalid email or password"
)

// AuthService registers users, checks credentials and completes OAuth
// sign-ins. It issues session tokens but never touches cookies; that is
// the handler's job.
type AuthService struct {
	users     repository.UserRepository
	links     repository.OAuthRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	links repository.OAuthRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		links:     links,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the signed-in user with the session token so the
// handler can set the cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
	// RedirectTo is "/admin" for administrators, empty otherwise.
	RedirectTo string
}

// RegisterInput is the registration form.
type RegisterInput struct {
	Email       string       `json:"email"`
	Password    string       `json:"password"`
	FirstName   string       `json:"firstName"`
	LastName    string       `json:"lastName"`
	DateOfBirth string       `json:"dateOfBirth"`
	Gender      model.Gender `json:"gender"`
	Phone       string       `json:"phone"`
	Address     string       `json:"address"`
}

// Register creates a local account and signs it in.
//
// A duplicate email is rejected before anything is written, so the
// existing record is left exactly as it was.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		return nil, apperror.ValidationFailed("email", msgMissingFields)
	}
	if in.Gender != "" && !in.Gender.Valid() {
		return nil, apperror.ValidationFailed("gender", "gender must be male, female or other")
	}
	if err := validateDate(in.DateOfBirth); err != nil {
		return nil, err
	}

	existing, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("service/auth: checking %s: %w", email, err)
	}
	if existing != nil {
		return nil, apperror.Conflict(msgEmailRegistered)
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", "password must be 72 bytes or fewer")
	}

	user := &model.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		DateOfBirth:  in.DateOfBirth,
		Gender:       in.Gender,
		Phone:        strings.TrimSpace(in.Phone),
		Address:      strings.TrimSpace(in.Address),
		Role:         model.RoleUser,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: creating user %s: %w", email, err)
	}

	s.logger.Info("user registered", slog.String("email", email))
	return s.issue(user)
}

// Login verifies an email and password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperror.Unauthorized(msgInvalidCredential)
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("service/auth: looking up %s: %w", email, err)
	}
	if user == nil {
		return nil, apperror.Unauthorized(msgInvalidCredential)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Warn("stored password hash unreadable", slog.String("email", email), slog.Any("error", err))
		}
		return nil, apperror.Unauthorized(msgInvalidCredential)
	}

	s.logger.Info("user logged in", slog.String("email", email))
	return s.issue(user)
}

// LoginWithOAuth signs in a provider identity, creating the profile and
// the provider link on first use.
//
// Accounts are matched by verified email, so someone who registered
// locally and later uses GitHub with the same address lands on the same
// profile. The OAuth profile gets no password and gender "other"; the
// user can fill the rest in on the profile page.
func (s *AuthService) LoginWithOAuth(ctx context.Context, id *auth.Identity) (*AuthResult, error) {
	if id == nil || id.Email == "" {
		return nil, apperror.Unauthorized("OAuth account has no verified email")
	}

	user, err := s.users.GetUserByEmail(ctx, id.Email)
	if err != nil {
		return nil, fmt.Errorf("service/auth: looking up %s: %w", id.Email, err)
	}
	if user == nil {
		user = &model.User{
			Email:     id.Email,
			FirstName: id.FirstName,
			LastName:  id.LastName,
			Gender:    model.GenderOther,
			Role:      model.RoleUser,
		}
		if err := s.users.CreateUser(ctx, user); err != nil {
			return nil, fmt.Errorf("service/auth: creating OAuth user %s: %w", id.Email, err)
		}
		s.logger.Info("user registered via OAuth",
			slog.String("email", id.Email),
			slog.String("provider", string(id.Provider)),
		)
	}

	link, err := s.links.GetOAuthLink(ctx, id.Email, id.Provider)
	if err != nil {
		return nil, fmt.Errorf("service/auth: looking up %s link: %w", id.Provider, err)
	}
	if link == nil {
		link = &model.OAuthLink{
			Email:      id.Email,
			Provider:   id.Provider,
			ProviderID: id.ProviderID,
			FirstName:  id.FirstName,
			LastName:   id.LastName,
		}
		if err := s.links.CreateOAuthLink(ctx, link); err != nil {
			return nil, fmt.Errorf("service/auth: creating %s link: %w", id.Provider, err)
		}
	}

	s.logger.Info("user authenticated via OAuth",
		slog.String("email", id.Email),
		slog.String("provider", string(id.Provider)),
	)
	return s.issue(user)
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.Email)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for %s: %w", user.Email, err)
	}

	res := &AuthResult{User: user, Token: token}
	if user.IsAdmin() {
		res.RedirectTo = "/admin"
	}
	return res, nil
}

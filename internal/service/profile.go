package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/vaccine-portal/internal/apperror"
	"github.com/sakif/vaccine-portal/internal/model"
	"github.com/sakif/vaccine-portal/internal/repository"
)

// ProfileService reads and edits the signed-in user's own profile.
type ProfileService struct {
	users  repository.UserRepository
	logger *slog.Logger
}

func NewProfileService(users repository.UserRepository, logger *slog.Logger) *ProfileService {
	return &ProfileService{users: users, logger: logger}
}

// Get returns the editable profile fields. The record can vanish between
// authentication and this call (an admin deleted it), hence the NotFound.
func (s *ProfileService) Get(ctx context.Context, email string) (*model.Profile, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("service/profile: fetching %s: %w", email, err)
	}
	if user == nil {
		return nil, apperror.NotFound("User")
	}
	p := user.Profile()
	return &p, nil
}

// Update applies the whitelisted fields. Email, role and password cannot be
// changed here: ProfileUpdate has no fields for them.
func (s *ProfileService) Update(ctx context.Context, email string, update model.ProfileUpdate) (*model.User, error) {
	if update.Gender != nil && !update.Gender.Valid() {
		return nil, apperror.ValidationFailed("gender", "gender must be male, female or other")
	}
	if update.DateOfBirth != nil {
		if err := validateDate(*update.DateOfBirth); err != nil {
			return nil, err
		}
	}
	trim(update.FirstName)
	trim(update.LastName)
	trim(update.Phone)
	trim(update.Address)

	user, err := s.users.UpdateUser(ctx, email, update)
	if err != nil {
		return nil, fmt.Errorf("service/profile: updating %s: %w", email, err)
	}

	s.logger.Info("profile updated", slog.String("email", email))
	return user, nil
}

func trim(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}

// validateDate accepts "" (not provided) or a YYYY-MM-DD date.
func validateDate(s string) error {
	if s == "" {
		return nil
	}
	if _, err := time.Parse(time.DateOnly, s); err != nil {
		return apperror.ValidationFailed("dateOfBirth", "dateOfBirth must be YYYY-MM-DD")
	}
	return nil
}

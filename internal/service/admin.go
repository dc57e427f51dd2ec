package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/sakif/vaccine-portal/internal/apperror"
	"github.com/sakif/vaccine-portal/internal/model"
	"github.com/sakif/vaccine-portal/internal/repository"
)

// TopTagLimit is how many tags the dashboard stats return.
const TopTagLimit = 10

// AdminService backs the admin dashboard. Callers are expected to have
// passed the admin guard already.
type AdminService struct {
	users     repository.UserRepository
	questions repository.QuestionRepository
	logger    *slog.Logger
}

func NewAdminService(users repository.UserRepository, questions repository.QuestionRepository, logger *slog.Logger) *AdminService {
	return &AdminService{users: users, questions: questions, logger: logger}
}

// Stats is the dashboard summary.
type Stats struct {
	TotalUsers     int              `json:"totalUsers"`
	TotalQuestions int              `json:"totalQuestions"`
	TopTags        []model.TagCount `json:"topTags"`
}

func (s *AdminService) ListUsers(ctx context.Context) ([]model.User, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/admin: listing users: %w", err)
	}
	return users, nil
}

// DeleteUser removes a profile. Deleting an absent user succeeds.
// Sessions and messages of the user are kept.
func (s *AdminService) DeleteUser(ctx context.Context, actor, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return apperror.ValidationFailed("email", "email is required")
	}

	if err := s.users.DeleteUser(ctx, email); err != nil {
		return fmt.Errorf("service/admin: deleting %s: %w", email, err)
	}

	s.logger.Info("user deleted", slog.String("email", email), slog.String("by", actor))
	return nil
}

func (s *AdminService) ListQuestions(ctx context.Context) ([]model.Question, error) {
	questions, err := s.questions.ListQuestions(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/admin: listing questions: %w", err)
	}
	return questions, nil
}

// Stats scans users and questions concurrently and aggregates tag counts.
func (s *AdminService) Stats(ctx context.Context) (*Stats, error) {
	var (
		users     []model.User
		questions []model.Question
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		users, err = s.users.ListUsers(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		questions, err = s.questions.ListQuestions(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("service/admin: computing stats: %w", err)
	}

	return &Stats{
		TotalUsers:     len(users),
		TotalQuestions: len(questions),
		TopTags:        TopTags(questions, TopTagLimit),
	}, nil
}

// TopTags counts tag occurrences across questions and returns the n most
// frequent, ties broken alphabetically. Blank tags are ignored.
func TopTags(questions []model.Question, n int) []model.TagCount {
	counts := make(map[string]int)
	for _, q := range questions {
		for _, tag := range q.Tags {
			if tag = strings.TrimSpace(tag); tag != "" {
				counts[tag]++
			}
		}
	}

	out := make([]model.TagCount, 0, len(counts))
	for tag, c := range counts {
		out = append(out, model.TagCount{Tag: tag, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})

	if len(out) > n {
		out = out[:n]
	}
	return out
}

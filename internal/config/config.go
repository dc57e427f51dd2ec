// Package config loads the server configuration from the environment,
// optionally seeded from a .env file in the working directory.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// Upstream endpoints used when INFERENCE_URL and TAGGING_URL are unset.
	DefaultInferenceURL = "https://0z9q93nzo4.execute-api.ap-southeast-2.amazonaws.com/try/triggerLambda"
	DefaultTaggingURL   = "https://i5elyiivui.execute-api.ap-southeast-2.amazonaws.com/try/questionTag"
	DefaultNewsFeedURL  = "https://news.google.com/rss/search?q="

	minSecretLen = 16
)

// Store backends.
const (
	BackendDynamoDB = "dynamodb"
	BackendSQLite   = "sqlite"
)

// Config is everything main needs to assemble the server.
type Config struct {
	Port        int
	Env         string // "development" turns off Secure cookies
	LogLevel    slog.Level
	BaseURL     string // public URL of this server, used for OAuth redirects
	FrontendURL string // CORS origin
	StaticDir   string

	StoreBackend   string
	DBPath         string
	AWSRegion      string
	DynamoTable    string
	QuestionsTable string
	DynamoEndpoint string // set for DynamoDB Local

	SessionSecret string
	SessionTTL    time.Duration

	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string
	GoogleClientID     string
	GoogleClientSecret string
	GoogleCallbackURL  string

	InferenceURL    string
	TaggingURL      string
	UpstreamTimeout time.Duration

	NewsFeedURL   string
	RedisAddr     string
	RedisUsername string
	RedisPassword string
	NewsCacheTTL  time.Duration

	AuthRateLimit int // requests per minute per client IP
}

// IsDevelopment reports whether the server runs locally over plain HTTP.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// GitHubEnabled reports whether GitHub sign-in is configured.
func (c *Config) GitHubEnabled() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

// GoogleEnabled reports whether Google sign-in is configured.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// Load reads .env (if present) and then the process environment. Variables
// already set in the environment win over .env.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: reading .env: %w", err)
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from lookup and validates it.
func FromEnv(lookup func(string) (string, bool)) (*Config, error) {
	e := env{lookup: lookup}

	cfg := &Config{
		Port:        e.getInt("PORT", 8080),
		Env:         e.get("APP_ENV", "production"),
		LogLevel:    e.getLevel("LOG_LEVEL", slog.LevelInfo),
		FrontendURL: e.get("FRONTEND_URL", ""),
		StaticDir:   e.get("STATIC_DIR", "web/static"),

		StoreBackend:   strings.ToLower(e.get("STORE_BACKEND", BackendDynamoDB)),
		DBPath:         e.get("DB_PATH", "data/portal.db"),
		AWSRegion:      e.get("AWS_REGION", "ap-southeast-2"),
		DynamoTable:    e.get("DYNAMODB_TABLE", "vaccine-users"),
		QuestionsTable: e.get("DYNAMODB_QUESTIONS_TABLE", "user-questions"),
		DynamoEndpoint: e.get("DYNAMODB_ENDPOINT", ""),

		SessionSecret: e.get("SESSION_SECRET", ""),
		SessionTTL:    e.getDuration("SESSION_TTL", 7*24*time.Hour),

		GitHubClientID:     e.get("GITHUB_CLIENT_ID", ""),
		GitHubClientSecret: e.get("GITHUB_CLIENT_SECRET", ""),
		GoogleClientID:     e.get("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: e.get("GOOGLE_CLIENT_SECRET", ""),

		InferenceURL:    e.get("INFERENCE_URL", DefaultInferenceURL),
		TaggingURL:      e.get("TAGGING_URL", DefaultTaggingURL),
		UpstreamTimeout: e.getDuration("UPSTREAM_TIMEOUT", 30*time.Second),

		NewsFeedURL:   e.get("NEWS_FEED_URL", DefaultNewsFeedURL),
		RedisAddr:     e.get("REDIS_ADDR", ""),
		RedisUsername: e.get("REDIS_USERNAME", ""),
		RedisPassword: e.get("REDIS_PASSWORD", ""),
		NewsCacheTTL:  e.getDuration("NEWS_CACHE_TTL", 10*time.Minute),

		AuthRateLimit: e.getInt("AUTH_RATE_LIMIT", 20),
	}

	cfg.BaseURL = strings.TrimRight(e.get("BASE_URL", fmt.Sprintf("http://localhost:%d", cfg.Port)), "/")
	if cfg.FrontendURL == "" {
		cfg.FrontendURL = cfg.BaseURL
	}
	cfg.GitHubCallbackURL = e.get("GITHUB_CALLBACK_URL", cfg.BaseURL+"/api/auth/github/callback")
	cfg.GoogleCallbackURL = e.get("GOOGLE_CALLBACK_URL", cfg.BaseURL+"/api/auth/google/callback")

	if len(e.errs) > 0 {
		return nil, fmt.Errorf("config: %w", errors.Join(e.errs...))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required values and value ranges.
func (c *Config) Validate() error {
	var problems []string

	if c.SessionSecret == "" {
		problems = append(problems, "SESSION_SECRET is required")
	} else if len(c.SessionSecret) < minSecretLen {
		problems = append(problems, fmt.Sprintf("SESSION_SECRET must be at least %d characters", minSecretLen))
	}

	if c.Port < 1 || c.Port > 65535 {
		problems = append(problems, fmt.Sprintf("PORT %d is out of range", c.Port))
	}

	switch c.StoreBackend {
	case BackendDynamoDB:
		if c.DynamoTable == "" || c.QuestionsTable == "" {
			problems = append(problems, "DYNAMODB_TABLE and DYNAMODB_QUESTIONS_TABLE must not be empty")
		}
	case BackendSQLite:
		if c.DBPath == "" {
			problems = append(problems, "DB_PATH must not be empty")
		}
	default:
		problems = append(problems, fmt.Sprintf("STORE_BACKEND %q must be %q or %q", c.StoreBackend, BackendDynamoDB, BackendSQLite))
	}

	for name, raw := range map[string]string{
		"BASE_URL":      c.BaseURL,
		"INFERENCE_URL": c.InferenceURL,
		"TAGGING_URL":   c.TaggingURL,
		"NEWS_FEED_URL": c.NewsFeedURL,
	} {
		if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
			problems = append(problems, fmt.Sprintf("%s %q is not an absolute URL", name, raw))
		}
	}

	if c.SessionTTL <= 0 || c.UpstreamTimeout <= 0 {
		problems = append(problems, "SESSION_TTL and UPSTREAM_TIMEOUT must be positive")
	}
	if c.AuthRateLimit < 1 {
		problems = append(problems, "AUTH_RATE_LIMIT must be at least 1")
	}

	if len(problems) > 0 {
		// Map iteration above is unordered; keep messages stable.
		sort.Strings(problems)
		return fmt.Errorf("config: invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// env reads typed values and collects parse errors instead of failing on
// the first one, so a bad deploy reports every broken variable at once.
type env struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (e *env) get(key, fallback string) string {
	if v, ok := e.lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func (e *env) getInt(key string, fallback int) int {
	raw := e.get(key, "")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %q is not an integer", key, raw))
		return fallback
	}
	return n
}

func (e *env) getDuration(key string, fallback time.Duration) time.Duration {
	raw := e.get(key, "")
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %q is not a duration", key, raw))
		return fallback
	}
	return d
}

func (e *env) getLevel(key string, fallback slog.Level) slog.Level {
	raw := e.get(key, "")
	if raw == "" {
		return fallback
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(raw)); err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %q is not a log level", key, raw))
		return fallback
	}
	return l
}

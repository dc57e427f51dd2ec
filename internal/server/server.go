// Package server is the composition root: it opens the store, builds the
// services and handlers, and mounts them on a chi router.
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config → repository.Store (DynamoDB or SQLite)
//	             → auth (tokens, passwords, cookies, guards)
//	             → service.* (business rules)
//	             → handler.* (HTTP)
//
// Nothing below this package reads the environment or constructs its own
// clients; every dependency arrives through a constructor.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-redis/redis/v8"

	"github.com/sakif/vaccine-portal/internal/auth"
	"github.com/sakif/vaccine-portal/internal/config"
	"github.com/sakif/vaccine-portal/internal/handler"
	"github.com/sakif/vaccine-portal/internal/inference"
	"github.com/sakif/vaccine-portal/internal/middleware"
	"github.com/sakif/vaccine-portal/internal/news"
	"github.com/sakif/vaccine-portal/internal/repository"
	"github.com/sakif/vaccine-portal/internal/repository/dynamodb"
	"github.com/sakif/vaccine-portal/internal/repository/sqlite"
	"github.com/sakif/vaccine-portal/internal/service"
)

const (
	shutdownTimeout = 30 * time.Second
	sweepInterval   = 5 * time.Minute
)

// Server owns the router and every resource that must be released on
// shutdown: the store, the Redis client and in-flight tagging calls.
type Server struct {
	router  *chi.Mux
	config  *config.Config
	logger  *slog.Logger
	store   repository.Store
	redis   *redis.Client
	chat    *service.ChatService
	limiter *middleware.RateLimiter
}

// New opens the configured store and wires the application.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Username: cfg.RedisUsername,
			Password: cfg.RedisPassword,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			// The cache is optional; news still works without it.
			logger.Warn("redis unavailable, news cache disabled",
				slog.String("addr", cfg.RedisAddr),
				slog.String("error", err.Error()),
			)
			rdb.Close()
			rdb = nil
		}
	}

	s, err := newServer(cfg, store, rdb, logger)
	if err != nil {
		store.Close()
		if rdb != nil {
			rdb.Close()
		}
		return nil, err
	}
	return s, nil
}

func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendSQLite:
		if dir := filepath.Dir(cfg.DBPath); dir != "." && cfg.DBPath != ":memory:" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("server: creating database directory: %w", err)
			}
		}
		db, err := sqlite.New(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("server: opening sqlite: %w", err)
		}
		return db, nil
	default:
		store, err := dynamodb.Open(ctx, dynamodb.Config{
			Region:         cfg.AWSRegion,
			Table:          cfg.DynamoTable,
			QuestionsTable: cfg.QuestionsTable,
			Endpoint:       cfg.DynamoEndpoint,
		})
		if err != nil {
			return nil, fmt.Errorf("server: opening dynamodb: %w", err)
		}
		return store, nil
	}
}

func newServer(cfg *config.Config, store repository.Store, rdb *redis.Client, logger *slog.Logger) (*Server, error) {
	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		store:   store,
		redis:   rdb,
		limiter: middleware.NewRateLimiter(cfg.AuthRateLimit),
	}
	if err := s.setupRoutes(); err != nil {
		return nil, fmt.Errorf("server: setting up routes: %w", err)
	}
	return s, nil
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes builds the dependency graph and mounts it.
//
// ROUTE STRUCTURE:
//
//	GET  /healthz                      liveness
//	     /api/auth/*                   register, login, logout, me, check-auth, OAuth
//	     /api/user/profile             RequireAuth
//	     /api/chat, /api/chat/*        RequireAuth
//	     /api/admin/*                  RequireAdmin
//	GET  /api/news                     public
//	     /*                            static pages behind PageGuard
//
// MIDDLEWARE ORDER MATTERS:
// RequestID first so the logger can print it, RealIP before anything that
// keys on the client address (the auth rate limiter), Recoverer innermost
// of the globals so a panicking handler still gets a logged 500.
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	// === Auth ===
	tokens, err := auth.NewTokenService(s.config.SessionSecret, s.config.SessionTTL)
	if err != nil {
		return err
	}
	passwords := auth.NewPasswordService()
	cookies := auth.NewCookies(!s.config.IsDevelopment(), s.config.SessionTTL)
	authn := auth.NewAuthenticator(tokens, s.store, s.logger)

	var providers []auth.OAuthProvider
	if s.config.GitHubEnabled() {
		providers = append(providers, auth.NewGitHubProvider(
			s.config.GitHubClientID, s.config.GitHubClientSecret, s.config.GitHubCallbackURL))
	}
	if s.config.GoogleEnabled() {
		providers = append(providers, auth.NewGoogleProvider(
			s.config.GoogleClientID, s.config.GoogleClientSecret, s.config.GoogleCallbackURL))
	}

	// === Upstreams ===
	assistant := inference.NewClient(s.config.InferenceURL, s.config.TaggingURL, s.config.UpstreamTimeout)

	var cache news.Cache
	if s.redis != nil {
		cache = news.NewRedisCache(s.redis)
	}
	fetcher := news.NewFetcher(s.config.NewsFeedURL, &http.Client{Timeout: s.config.UpstreamTimeout},
		cache, s.config.NewsCacheTTL, s.logger)

	// === Services ===
	authService := service.NewAuthService(s.store, s.store, tokens, passwords, s.logger)
	s.chat = service.NewChatService(s.store, assistant, s.config.UpstreamTimeout, s.logger)

	// === Handlers ===
	authH := handler.NewAuthHandler(authService, authn, cookies, s.logger)
	oauthH := handler.NewOAuthHandler(authService, cookies, s.config.BaseURL, s.logger, providers...)
	profileH := handler.NewProfileHandler(service.NewProfileService(s.store, s.logger), s.logger)
	adminH := handler.NewAdminHandler(service.NewAdminService(s.store, s.store, s.logger), s.logger)
	chatH := handler.NewChatHandler(s.chat, s.logger)
	newsH := handler.NewNewsHandler(service.NewNewsService(fetcher), s.logger)

	s.router.Get("/healthz", handler.HandleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{s.config.FrontendURL},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
			AllowCredentials: true,
			MaxAge:           300,
		}))

		r.Route("/auth", func(r chi.Router) {
			r.With(s.limiter.Middleware).Post("/register", authH.HandleRegister)
			r.With(s.limiter.Middleware).Post("/login", authH.HandleLogin)
			r.Post("/logout", authH.HandleLogout)
			r.Get("/check-auth", authH.HandleCheckAuth)
			r.With(authn.RequireAuth).Get("/me", authH.HandleMe)
			r.Get("/{provider}", oauthH.HandleStart)
			r.Get("/{provider}/callback", oauthH.HandleCallback)
		})

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

	// === Pages ===
	s.router.Handle("/*", authn.PageGuard(staticPages(s.config.StaticDir)))

	return nil
}

// staticPages serves StaticDir with clean URLs: /login serves login.html
// when there is no file or directory named "login".
func staticPages(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := path.Clean(r.URL.Path)
		if p != "/" && path.Ext(p) == "" {
			if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(p))); errors.Is(err, os.ErrNotExist) {
				if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(p)+".html")); err == nil {
					r2 := r.Clone(r.Context())
					r2.URL.Path = p + ".html"
					files.ServeHTTP(w, r2)
					return
				}
			}
		}
		files.ServeHTTP(w, r)
	})
}

// Start serves until SIGINT/SIGTERM, then shuts down gracefully:
//  1. stop accepting connections and let in-flight requests finish
//  2. wait for background tagging calls
//  3. close Redis and the store
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Chat calls wait on the upstream for up to UpstreamTimeout.
		WriteTimeout: s.config.UpstreamTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go s.sweepLimiter(sweepCtx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", s.config.BaseURL),
			slog.String("store", s.config.StoreBackend),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		if err := s.chat.Drain(ctx); err != nil {
			s.logger.Warn("abandoning in-flight tagging calls", slog.String("error", err.Error()))
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

func (s *Server) sweepLimiter(ctx context.Context) {
	t := time.NewTicker(sweepInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.limiter.Sweep(sweepInterval)
		}
	}
}

// Close releases the Redis client and the store.
func (s *Server) Close() error {
	var errs []error
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
	}
	errs = append(errs, s.store.Close())
	return errors.Join(errs...)
}

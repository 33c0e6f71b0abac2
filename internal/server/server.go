// Package server is the composition root: it wires config, the Record Store,
// services, handlers and middleware into one chi router and runs it.
//
// Route map:
//
//	GET  /healthz               store ping
//	GET  /metrics               Prometheus
//	POST /auth/signup           register
//	POST /auth/login            password sign-in, sets the session cookie
//	POST /auth/logout           clears the session cookie
//	GET  /auth/github/login     only when GitHub sign-in is configured
//	GET  /auth/github/callback  ditto
//	GET  /auth/me               session required
//	GET  /sick-leaves           session required
//	POST /sick-leaves           session required
//	POST /sick-leaves/preview   session required
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	sentryhttp "github.com/getsentry/sentry-go/http"

	"github.com/sakif/krankmeldung/internal/auth"
	"github.com/sakif/krankmeldung/internal/config"
	"github.com/sakif/krankmeldung/internal/handler"
	"github.com/sakif/krankmeldung/internal/metrics"
	"github.com/sakif/krankmeldung/internal/middleware"
	"github.com/sakif/krankmeldung/internal/notify"
	sqliteRepo "github.com/sakif/krankmeldung/internal/repository/sqlite"
	"github.com/sakif/krankmeldung/internal/service"
)

// shutdownTimeout is how long in-flight requests get after a stop signal.
const shutdownTimeout = 30 * time.Second

// Server owns the router. The database is opened and closed by the caller;
// the server only borrows it.
type Server struct {
	router  *chi.Mux
	config  *config.Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	metrics *metrics.Metrics
}

// New wires every dependency and registers the routes.
func New(cfg *config.Config, db *sqliteRepo.DB, m *metrics.Metrics, logger *slog.Logger) (*Server, error) {
	if db == nil {
		return nil, errors.New("server: database is required")
	}
	if m == nil {
		m = metrics.New()
	}

	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		db:      db,
		metrics: m,
	}

	if err := s.setupRoutes(); err != nil {
		return nil, fmt.Errorf("server: setting up routes: %w", err)
	}
	return s, nil
}

func (s *Server) setupRoutes() error {
	tokens, err := auth.NewTokenService(s.config.Auth.JWTSecret, s.config.Auth.SessionTTL)
	if err != nil {
		return err
	}
	passwords := auth.NewPasswordService(s.config.Auth.BcryptCost)

	var github *auth.GitHubProvider
	if gh := s.config.Auth.GitHub; gh.Enabled() {
		github = auth.NewGitHubProvider(gh.ClientID, gh.ClientSecret, gh.CallbackURL)
	}

	authService := service.NewAuthService(s.db, tokens, passwords, s.logger)
	leaveService := service.NewSickLeaveService(s.db, notify.NewComposer(s.config.Notify.Inbox), s.logger)

	authHandler := handler.NewAuthHandler(authService, github, s.metrics, handler.AuthHandlerConfig{
		SessionTTL:   tokens.TTL(),
		CookieSecure: s.config.Server.CookieSecure || s.config.IsProduction(),
	}, s.logger)
	leaveHandler := handler.NewSickLeaveHandler(leaveService, s.metrics, s.logger)
	healthHandler := handler.NewHealthHandler(s.db, s.logger)

	// Order matters: Recoverer must sit outside the Sentry middleware so a
	// re-panicked request still ends in a 500.
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	if s.config.Sentry.DSN != "" {
		s.router.Use(sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle)
	}
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.Metrics(s.metrics))

	s.router.Get("/healthz", healthHandler.HandleHealth)
	s.router.Handle("/metrics", s.metrics.Handler())

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/signup", authHandler.HandleSignup)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)

		if github != nil {
			r.Get("/github/login", authHandler.HandleGitHubLogin)
			r.Get("/github/callback", authHandler.HandleGitHubCallback)
		}

		r.With(auth.RequireAuth(tokens)).Get("/me", authHandler.HandleMe)
	})

	s.router.Route("/sick-leaves", func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))
		r.Get("/", leaveHandler.HandleList)
		r.Post("/", leaveHandler.HandleCreate)
		r.Post("/preview", leaveHandler.HandlePreview)
	})

	s.logger.Debug("routes registered", slog.Bool("github", github != nil))
	return nil
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Server.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Server.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Server.Port)),
			slog.String("database", s.config.Database.Path),
			slog.String("env", s.config.Server.Env),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

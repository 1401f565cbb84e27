// Package server sets up the HTTP server, router, and all route definitions.
//
// This is the composition root: every dependency is built once in New and
// handed down by reference.
//
//	config → sqlite.DB → repositories → services → handlers → routes
//
// Handlers never touch the database, and services never touch HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sakif/treatment-companion/internal/auth"
	"github.com/sakif/treatment-companion/internal/config"
	"github.com/sakif/treatment-companion/internal/handler"
	"github.com/sakif/treatment-companion/internal/metrics"
	"github.com/sakif/treatment-companion/internal/middleware"
	sqliteRepo "github.com/sakif/treatment-companion/internal/repository/sqlite"
	"github.com/sakif/treatment-companion/internal/service"
)

// shutdownTimeout is how long in-flight requests get to finish.
const shutdownTimeout = 30 * time.Second

// Server represents the HTTP server and all its dependencies.
//
// The Server owns the database connection and closes it on shutdown, after
// the background workers have stopped.
type Server struct {
	router  *chi.Mux
	config  *config.Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	limiter *middleware.RateLimiter
}

// New opens the database and wires every layer onto a fresh router.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		db:      db,
		limiter: middleware.NewRateLimiter(cfg.Login.Rate, cfg.Login.Burst),
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTES:
//
//	GET    /healthz                 database ping
//	GET    /metrics                 Prometheus exposition
//	GET    /api/login               start login            (rate limited)
//	GET    /api/callback            finish login           (rate limited)
//	GET    /api/logout              end the session
//	GET    /api/auth/user           caller's profile       (gated)
//	PATCH  /api/auth/user           update profile         (gated)
//	POST   /api/auth/token          mint a bearer token    (gated)
//	GET    /api/symptoms            caller's symptom log   (gated)
//	POST   /api/symptoms            log a symptom          (gated)
//	GET    /api/appointments        caller's appointments  (gated)
//	POST   /api/appointments        schedule one           (gated)
//	PATCH  /api/appointments/{id}   update one             (gated)
//	DELETE /api/appointments/{id}   delete one             (gated)
//	GET    /*                       SPA, when STATIC_DIR is set
func (s *Server) setupRoutes() error {
	keys, err := auth.DeriveKeys(s.config.Session.Secret)
	if err != nil {
		return fmt.Errorf("deriving keys: %w", err)
	}

	tokens, err := auth.NewTokenService(keys.Token, s.config.TokenTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	store := auth.NewSessionStore(s.db.Sessions(), keys, s.config.Session.MaxAge, s.config.CookieSecure)

	// A nil interface, not a typed nil pointer, tells the handler login is off.
	var provider handler.IdentityProvider
	if s.config.ProviderConfigured() {
		provider = auth.NewProvider(auth.ProviderConfig{
			ClientID:     s.config.Auth.ClientID,
			ClientSecret: s.config.Auth.ClientSecret,
			AuthorizeURL: s.config.Auth.AuthorizeURL,
			TokenURL:     s.config.Auth.TokenURL,
			UserInfoURL:  s.config.Auth.UserInfoURL,
			CallbackURL:  s.config.Auth.CallbackURL,
			Scopes:       s.config.Auth.Scopes,
		})
	} else {
		s.logger.Warn("no identity provider configured, /api/login is disabled")
	}

	// === Services and handlers ===
	authService := service.NewAuthService(s.db.Users(), tokens, s.logger)
	symptomService := service.NewSymptomService(s.db.Symptoms(), s.logger)
	appointmentService := service.NewAppointmentService(s.db.Appointments(), s.logger)

	authHandler := handler.NewAuthHandler(provider, store, authService, s.config.CookieSecure, s.logger)
	symptomHandler := handler.NewSymptomHandler(symptomService, s.logger)
	appointmentHandler := handler.NewAppointmentHandler(appointmentService, s.logger)
	healthHandler := handler.NewHealthHandler(s.db, s.logger)

	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.Metrics())
	s.router.Use(middleware.CORS(s.config.CORSAllowedOrigins))

	// === Public routes ===
	s.router.Get("/healthz", healthHandler.HandleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(s.limiter.Limit)
			r.Get("/login", authHandler.HandleLogin)
			r.Get("/callback", authHandler.HandleCallback)
		})
		r.Get("/logout", authHandler.HandleLogout)

		// === Gated routes ===
		r.Group(func(r chi.Router) {
			r.Use(auth.Gate(store, tokens, s.logger))

			r.Get("/auth/user", authHandler.HandleMe)
			r.Patch("/auth/user", authHandler.HandleUpdateProfile)
			r.Post("/auth/token", authHandler.HandleIssueToken)

			r.Get("/symptoms", symptomHandler.HandleList)
			r.Post("/symptoms", symptomHandler.HandleCreate)

			r.Get("/appointments", appointmentHandler.HandleList)
			r.Post("/appointments", appointmentHandler.HandleCreate)
			r.Patch("/appointments/{id}", appointmentHandler.HandleUpdate)
			r.Delete("/appointments/{id}", appointmentHandler.HandleDelete)
		})
	})

	// === Static SPA ===
	if s.config.StaticDir != "" {
		spa := handler.NewSPAHandler(s.config.StaticDir)
		s.router.NotFound(spa.ServeHTTP)
	}

	return nil
}

// runWorkers starts the background goroutines. They stop when ctx is done;
// the returned channel closes once all of them have returned.
func (s *Server) runWorkers(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		limiterDone := make(chan struct{})
		go func() {
			defer close(limiterDone)
			s.limiter.Run(ctx)
		}()

		s.pruneSessions(ctx, s.config.Session.PruneInterval)
		<-limiterDone
	}()
	return done
}

// pruneSessions deletes expired sessions every interval until ctx is done.
func (s *Server) pruneSessions(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.pruneOnce(ctx)
		}
	}
}

func (s *Server) pruneOnce(ctx context.Context) {
	n, err := s.db.Sessions().PruneExpiredSessions(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("pruning sessions failed", slog.String("error", err.Error()))
		}
		return
	}
	if n > 0 {
		metrics.SessionsPrunedTotal.Add(float64(n))
		s.logger.Info("pruned expired sessions", slog.Int64("count", n))
	}
}

// Start starts the HTTP server and blocks until it stops.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new connections and let in-flight requests finish
//  2. Stop the background workers
//  3. Close the database
func (s *Server) Start() error {
	defer s.db.Close()

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	workersDone := s.runWorkers(workerCtx)
	defer func() {
		stopWorkers()
		<-workersDone
	}()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
			slog.Bool("login", s.config.ProviderConfigured()),
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
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

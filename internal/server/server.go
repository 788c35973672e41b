// Package server wires the sync service's routes, middleware and handlers,
// and owns the HTTP listener's lifecycle.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/raducm/tourism-app/internal/auth"
	"github.com/raducm/tourism-app/internal/handler"
	"github.com/raducm/tourism-app/internal/middleware"
	sqliteRepo "github.com/raducm/tourism-app/internal/repository/sqlite"
)

// Config holds everything the server needs to start.
type Config struct {
	Port      int
	DBPath    string
	JWTSecret string
}

// Server owns the router and the database connection; the connection is
// closed during graceful shutdown so the WAL is flushed before exit.
type Server struct {
	router *chi.Mux
	config Config
	logger zerolog.Logger
	db     *sqliteRepo.DB
}

// New builds the full dependency chain: database, token/password services,
// handlers, routes. This is the composition root for the sync service.
func New(cfg Config, logger zerolog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("server: opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("server: setting up routes: %w", err)
	}

	return s, nil
}

func (s *Server) setupRoutes() error {
	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return err
	}
	passwords := auth.NewPasswordService()

	authHandler := handler.NewAuthHandler(s.db.Accounts(), passwords, tokens, s.logger)
	locationHandler := handler.NewLocationHandler(s.db.Locations(), s.logger)
	reviewHandler := handler.NewReviewHandler(s.db.Visits(), s.logger)
	syncHandler := handler.NewSyncHandler(s.db.Accounts(), s.db.Locations(), s.db.Visits(), tokens, s.logger)

	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.RequestLogger(s.logger))

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", syncHandler.HandleHealth)

		r.Post("/auth/signup", authHandler.HandleSignUp)
		r.Post("/auth/signin", authHandler.HandleSignIn)

		r.Get("/locations", locationHandler.HandleList)
		r.Get("/locations/{id}", locationHandler.HandleGet)
		r.Post("/locations", locationHandler.HandleCreate)

		r.Get("/locations/{id}/reviews", reviewHandler.HandleListForLocation)
		r.Get("/accounts/{id}/reviews", reviewHandler.HandleListForAccount)

		// The account push is deliberately open: it is how a fresh device
		// obtains its first token.
		r.Post("/sync/account", syncHandler.HandleAccount)

		r.Group(func(r chi.Router) {
			r.Use(handler.RequireToken(tokens))
			r.Post("/reviews", reviewHandler.HandleCreate)
			r.Post("/sync/location", syncHandler.HandleLocation)
			r.Post("/sync/review", syncHandler.HandleReview)
		})
	})

	return nil
}

// Start runs the listener until SIGINT/SIGTERM, then drains in-flight
// requests and closes the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info().
			Int("port", s.config.Port).
			Str("database", s.config.DBPath).
			Msg("server starting")
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server: %w", err)
		}

	case sig := <-quit:
		s.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("server: graceful shutdown: %w", err)
		}
		s.logger.Info().Msg("server stopped")
	}

	return nil
}

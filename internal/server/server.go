package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/taskwise-ai/taskwise/internal/db"
	"github.com/taskwise-ai/taskwise/internal/sources"
)

// Config holds server configuration.
type Config struct {
	Port     int
	DataDir  string // directory for SQLite DB and data files
	AllowAll bool   // allow all CORS origins (dev mode)
}

// Server is the taskwise HTTP server. Feature packages register their
// own routes on Router.
type Server struct {
	cfg        Config
	db         *db.DB
	health     *sources.Tracker
	logger     *zap.Logger
	router     chi.Router
	httpServer *http.Server
}

// New creates a server with its shared dependencies.
func New(cfg Config, database *db.DB, health *sources.Tracker, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:    cfg,
		db:     database,
		health: health,
		logger: logger,
	}

	s.router = s.buildRouter()
	return s
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Per-user integration health.
	r.Get("/api/integrations/{userID}", s.handleIntegrations)

	// API routes are registered by feature packages via RegisterRoutes.
	return r
}

func (s *Server) handleIntegrations(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	type status struct {
		Source      string    `json:"source"`
		DisplayName string    `json:"display_name"`
		Available   bool      `json:"available"`
		AuthExpired bool      `json:"auth_expired,omitempty"`
		RateLimited bool      `json:"rate_limited,omitempty"`
		LastChecked time.Time `json:"last_checked"`
	}

	var statuses []status
	for _, name := range sources.Names() {
		h := s.health.Status(r.Context(), userID, name)
		statuses = append(statuses, status{
			Source:      name,
			DisplayName: sources.DisplayName(name),
			Available:   h.Available,
			AuthExpired: h.AuthExpired,
			RateLimited: h.RateLimited,
			LastChecked: h.LastChecked,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(statuses)
}

// Router returns the chi router for registering additional routes.
func (s *Server) Router() chi.Router { return s.router }

// Database returns the database connection.
func (s *Server) Database() *db.DB { return s.db }

// Start begins listening on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("taskwise server listening", zap.String("addr", addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

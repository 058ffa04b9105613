// Package web provides the HTTP surface of the importer: documents posted to
// the import endpoint go through the same pipeline as the batch command.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/tblimport/internal/config"
	"github.com/JonMunkholm/tblimport/internal/core"
	reqlog "github.com/JonMunkholm/tblimport/internal/web/middleware"
)

// Server is the HTTP server for document imports.
type Server struct {
	importer *core.Importer
	cfg      config.ServerConfig
	encoding string
	router   *chi.Mux
	server   *http.Server
}

// NewServer creates a Server. encoding is the store encoding used when a
// request names none.
func NewServer(importer *core.Importer, cfg config.ServerConfig, encoding string) *Server {
	s := &Server{
		importer: importer,
		cfg:      cfg,
		encoding: encoding,
		router:   chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(reqlog.TrustedRealIP(s.cfg.Proxies()))
	s.router.Use(reqlog.Logger)
	s.router.Use(middleware.Recoverer)
	if s.cfg.RequestTimeout > 0 {
		s.router.Use(middleware.Timeout(s.cfg.RequestTimeout))
	}
	s.router.Use(securityHeaders)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	// Pages
	s.router.Get("/tables/{library}/{table}", s.handleTablePage)

	// API routes
	s.router.Route("/api", func(r chi.Router) {
		r.With(reqlog.APIKey(s.cfg.RequireAPIKey, s.cfg.Keys())).Post("/import", s.handleImport)
		r.Get("/tables/{library}/{table}", s.handleDescribe)
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v as JSON and writes it to w.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}

// Package server exposes drift reports over HTTP.
package server

import (
	"context"
	"encoding/json"
	"expvar"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	// register drift counters on the expvar handler
	_ "github.com/karstlabs/platform-infra/internal/metrics"
)

// Server serves the drift report API.
type Server struct {
	store  *Store
	router chi.Router
	addr   string
	logger *slog.Logger
	srv    *http.Server
}

// New creates the HTTP server over a report store. An empty apiKey disables
// authentication; maxBody <= 0 disables the body limit; a nil logger falls
// back to the default.
func New(addr string, store *Store, apiKey string, maxBody int64, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		store:  store,
		addr:   addr,
		logger: logger,
	}

	r := chi.NewRouter()
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(APIKeyMiddleware(apiKey))
	if maxBody > 0 {
		r.Use(MaxBodyMiddleware(maxBody))
	}

	s.router = r
	s.registerRoutes(r)
	return s
}

func (s *Server) registerRoutes(r chi.Router) {
	r.Get("/healthz", s.handleHealth)
	r.Get("/reports", s.handleLatest)
	r.Get("/reports/{environment}", s.handleHistory)
	r.Handle("/debug/vars", expvar.Handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Latest())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	environment := chi.URLParam(r, "environment")
	history, ok := s.store.History(environment)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no reports for environment " + environment})
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.srv = &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s.srv.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv != nil {
		return s.srv.Shutdown(ctx)
	}
	return nil
}

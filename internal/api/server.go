package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nextstage/discovery/internal/brief"
	"github.com/nextstage/discovery/internal/events"
	"github.com/nextstage/discovery/internal/session"
	"github.com/nextstage/discovery/internal/store"
)

type Server struct {
	router   *chi.Mux
	port     int
	sessions *session.Registry
	briefs   *brief.Generator
	db       *store.Store      // optional, nil disables persistence
	events   *events.Publisher // optional, nil disables event publishing
	logger   *slog.Logger
	http     *http.Server
}

func NewServer(port int, apiToken string, sessions *session.Registry, briefs *brief.Generator, db *store.Store, pub *events.Publisher, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:   router,
		port:     port,
		sessions: sessions,
		briefs:   briefs,
		db:       db,
		events:   pub,
		logger:   logger,
	}

	router.Get("/health", s.health)

	router.Route("/api/v1/discovery", func(r chi.Router) {
		if apiToken != "" {
			r.Use(BearerAuthMiddleware(apiToken))
		}
		r.Get("/status", s.status)
		r.Post("/chat", s.chat)
		r.Get("/sessions/{sessionID}", s.sessionStatus)
		r.Post("/sessions/{sessionID}/reset", s.resetSession)
		r.Get("/sessions/{sessionID}/brief", s.sessionBrief)
	})

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("API server starting", "addr", addr)
	s.http = &http.Server{Addr: addr, Handler: s.router}
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"agent":         "discovery",
		"status":        "ok",
		"live_sessions": s.sessions.Len(),
		"persistence":   s.db != nil,
		"events":        s.events != nil,
	})
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// writeTimeout bounds the fire-and-forget persistence and event goroutines.
const writeTimeout = 5 * time.Second

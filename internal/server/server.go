package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/recallmem/recall/internal/config"
	"github.com/recallmem/recall/internal/engine"
	"github.com/recallmem/recall/internal/store"
)

// Server is the recall HTTP API server. It fronts one store and one
// engine; hooks and the CLI talk to it over loopback.
type Server struct {
	db       *store.DB
	engine   *engine.Engine
	detector *engine.ActionPatternDetector
	cfg      *config.Config
	router   chi.Router
	version  string
	started  time.Time
}

// New creates a Server over the given store and engine.
func New(db *store.DB, eng *engine.Engine, cfg *config.Config, version string) *Server {
	s := &Server{
		db:       db,
		engine:   eng,
		detector: engine.NewActionPatternDetector(2),
		cfg:      cfg,
		version:  version,
		started:  time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Post("/events", s.handleAddEvent)
		r.Get("/retrieve", s.handleRetrieve)
		r.Get("/context", s.handleGetContext)
		r.Get("/preferences", s.handlePreferences)
		r.Post("/compact", s.handleCompact)
		r.Get("/stats", s.handleStats)

		r.Post("/sessions/init", s.handleSessionInit)
		r.Get("/sessions/{sessionID}", s.handleSessionState)
		r.Post("/sessions/{sessionID}/prompts", s.handlePrompt)
		r.Post("/sessions/{sessionID}/complete", s.handleCompleteSession)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if err := s.db.Ping(); err != nil {
		dbOK = false
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
		"db":      dbOK,
		"db_path": s.db.Path,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/ent0n29/scheherazade/internal/config"
	"github.com/ent0n29/scheherazade/internal/engine"
	"github.com/ent0n29/scheherazade/internal/extract"
	"github.com/ent0n29/scheherazade/internal/observability"
)

type Server struct {
	cfg       config.Config
	engine    *engine.Engine
	extractor *extract.Registry
	metrics   *observability.Metrics
	upgrader  websocket.Upgrader
}

func New(cfg config.Config, eng *engine.Engine, extractor *extract.Registry, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:       cfg,
		engine:    eng,
		extractor: extractor,
		metrics:   metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Default: only allow browser websocket connections from the
				// same origin, so other sites cannot watch a user's projects
				// if the service is ever exposed beyond localhost.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/api/projects", s.handleCreateProject)
	r.Get("/api/projects", s.handleListProjects)
	r.Get("/api/projects/{id}", s.handleGetProject)
	r.Post("/api/projects/{id}/rename", s.handleRenameProject)
	r.Delete("/api/projects/{id}", s.handleDeleteProject)
	r.Post("/api/projects/{id}/cursor", s.handleSetCursor)
	r.Get("/api/projects/{id}/chunks/{n}/audio", s.handleChunkAudio)
	r.Post("/api/projects/{id}/process_next", s.handleProcessNext)
	r.Get("/api/projects/{id}/audio", s.handleFinalAudio)
	r.Get("/api/projects/{id}/events", s.handleProjectEvents)
	r.Get("/api/voices", s.handleListVoices)
	r.Post("/api/extract", s.handleExtract)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

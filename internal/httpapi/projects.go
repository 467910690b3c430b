package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ent0n29/scheherazade/internal/engine"
	"github.com/ent0n29/scheherazade/internal/project"
	"github.com/ent0n29/scheherazade/internal/synth"
)

type createProjectRequest struct {
	Name   string   `json:"name"`
	Text   string   `json:"text"`
	Chunks []string `json:"chunks"`
	Voice  string   `json:"voice"`
	Speed  float64  `json:"speed"`
	Lang   string   `json:"lang"`
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	p, err := s.engine.CreateProject(r.Context(), engine.CreateInput{
		Name:   req.Name,
		Text:   req.Text,
		Chunks: req.Chunks,
		Voice:  req.Voice,
		Speed:  req.Speed,
		Lang:   req.Lang,
	})
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.engine.ListProjects(r.Context())
	if err != nil {
		respondEngineError(w, err)
		return
	}
	if projects == nil {
		projects = []project.Project{}
	}
	respondJSON(w, http.StatusOK, projects)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	p, err := s.engine.GetProject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (s *Server) handleRenameProject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	p, err := s.engine.RenameProject(r.Context(), chi.URLParam(r, "id"), req.Name)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.DeleteProject(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func (s *Server) handleSetCursor(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LastChunk int `json:"last_chunk"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	p, err := s.engine.SetLastChunk(r.Context(), chi.URLParam(r, "id"), req.LastChunk)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// handleChunkAudio serves one chunk's WAV, generating it on demand. Requesting
// a chunk ahead of the background loop is the normal read-along fast path.
func (s *Server) handleChunkAudio(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_chunk_id", "chunk index must be an integer")
		return
	}

	path, err := s.engine.ChunkArtifact(r.Context(), id, n)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	w.Header().Set("Content-Type", "audio/wav")
	http.ServeFile(w, r, path)
}

func (s *Server) handleProcessNext(w http.ResponseWriter, r *http.Request) {
	chunkID, done, err := s.engine.ProcessNextChunk(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondEngineError(w, err)
		return
	}
	resp := map[string]any{"done": done}
	if !done {
		resp["chunk_id"] = chunkID
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFinalAudio(w http.ResponseWriter, r *http.Request) {
	path, err := s.engine.FinalArtifact(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondEngineError(w, err)
		return
	}
	w.Header().Set("Content-Type", "audio/wav")
	http.ServeFile(w, r, path)
}

func (s *Server) handleListVoices(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, synth.ListVoices())
}

// respondEngineError maps the engine error taxonomy onto HTTP statuses. 409
// for not-ready keeps "still processing" distinguishable from failure.
func respondEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, project.ErrNotFound):
		respondError(w, http.StatusNotFound, "project_not_found", err.Error())
	case errors.Is(err, engine.ErrChunkNotFound):
		respondError(w, http.StatusNotFound, "chunk_not_found", err.Error())
	case errors.Is(err, engine.ErrNotReady):
		respondError(w, http.StatusConflict, "not_ready", err.Error())
	case errors.Is(err, engine.ErrEmptyText):
		respondError(w, http.StatusBadRequest, "empty_text", err.Error())
	case errors.Is(err, engine.ErrSynthesis):
		respondError(w, http.StatusBadGateway, "synthesis_error", err.Error())
	case errors.Is(err, project.ErrCorruptState):
		respondError(w, http.StatusInternalServerError, "corrupt_state", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

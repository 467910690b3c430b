package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/ent0n29/scheherazade/internal/project"
)

const (
	progressPollInterval = 1 * time.Second
	wsWriteTimeout       = 10 * time.Second
)

// progressSnapshot is one websocket frame of project progress.
type progressSnapshot struct {
	ID              string `json:"id"`
	TotalChunks     int    `json:"total_chunks"`
	CompletedChunks int    `json:"completed_chunks"`
	LastChunk       int    `json:"last_chunk"`
	IsFinished      bool   `json:"is_finished"`
	IsOptimized     bool   `json:"is_optimized"`
}

func snapshotOf(p project.Project) progressSnapshot {
	return progressSnapshot{
		ID:              p.ID,
		TotalChunks:     p.TotalChunks,
		CompletedChunks: p.CompletedChunks,
		LastChunk:       p.LastChunk,
		IsFinished:      p.IsFinished,
		IsOptimized:     p.IsOptimized,
	}
}

// handleProjectEvents streams progress snapshots over a websocket until the
// project finishes or the client goes away. Snapshots are sent on change and
// the connection closes itself once the project is optimized.
func (s *Server) handleProjectEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := s.engine.GetProject(r.Context(), id)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	// Drain client frames so pings and close frames are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	last := snapshotOf(p)
	if err := writeSnapshot(conn, last); err != nil {
		return
	}

	ticker := time.NewTicker(progressPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		p, err := s.engine.GetProject(r.Context(), id)
		if err != nil {
			// Deleted mid-stream; nothing more to report.
			return
		}
		snap := snapshotOf(p)
		if snap == last {
			continue
		}
		last = snap
		if err := writeSnapshot(conn, snap); err != nil {
			return
		}
		if snap.IsOptimized {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "finished"),
				time.Now().Add(wsWriteTimeout))
			return
		}
	}
}

func writeSnapshot(conn *websocket.Conn, snap progressSnapshot) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(snap)
}

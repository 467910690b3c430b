package engine

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/ent0n29/scheherazade/internal/project"
)

// RunBackground drives generation without client requests: every interval it
// picks one unfinished project and processes its next pending chunk. One
// chunk per tick keeps the loop interruptible and lets on-demand requests
// interleave on the synthesis lock.
func (e *Engine) RunBackground(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		projects, err := e.store.List(ctx)
		if err != nil {
			log.Printf("background: list projects: %v", err)
			continue
		}
		for _, p := range projects {
			if p.IsFinished {
				continue
			}
			chunkID, done, err := e.ProcessNextChunk(ctx, p.ID)
			switch {
			case errors.Is(err, project.ErrNotFound):
				// Deleted between list and process.
			case err != nil:
				log.Printf("background: project %s chunk %d: %v", p.ID, chunkID, err)
			case !done:
				log.Printf("background: project %s chunk %d done", p.ID, chunkID)
			}
			break
		}
	}
}

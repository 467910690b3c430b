package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/ent0n29/scheherazade/internal/audio"
	"github.com/ent0n29/scheherazade/internal/project"
)

// Assemble concatenates all available chunk artifacts, in chunk-index order,
// into the project's final WAV. Missing artifacts are skipped with a warning
// so partial assembly works. If the project is fully complete, success also
// marks it optimized and only then reclaims the per-chunk artifact directory.
// Any failure leaves state and chunk artifacts untouched.
func (e *Engine) Assemble(ctx context.Context, projectID string) error {
	p, err := e.store.Load(ctx, projectID)
	if err != nil {
		return err
	}

	finalPath := e.finalWAVPath(projectID)
	tmpPath := finalPath + ".tmp"
	w, err := audio.NewConcatWriter(tmpPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAssembly, err)
	}

	appended := 0
	for i := range p.Chunks {
		chunkPath := e.chunkWAVPath(projectID, p.Chunks[i].ID)
		if _, err := os.Stat(chunkPath); err != nil {
			log.Printf("project %s: skipping missing chunk %d artifact", projectID, p.Chunks[i].ID)
			continue
		}
		if err := w.AppendFile(chunkPath); err != nil {
			w.Abort()
			e.countAssembly("error")
			return fmt.Errorf("%w: %v", ErrAssembly, err)
		}
		appended++
	}
	if appended == 0 {
		w.Abort()
		e.countAssembly("error")
		return fmt.Errorf("%w: no chunk artifacts to assemble", ErrAssembly)
	}
	if err := w.Close(); err != nil {
		e.countAssembly("error")
		return fmt.Errorf("%w: %v", ErrAssembly, err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		e.countAssembly("error")
		return fmt.Errorf("%w: %v", ErrAssembly, err)
	}
	e.countAssembly("ok")

	if !p.AllCompleted() {
		return nil
	}

	// Optimization pass. The is_optimized write must be durable before the
	// chunk directory goes away; a crash in between leaves harmless extra
	// files, never a truncated project.
	if _, err := e.updateProject(ctx, projectID, func(p *project.Project) error {
		p.IsFinished = true
		p.IsOptimized = true
		return nil
	}); err != nil {
		return err
	}
	if err := os.RemoveAll(e.chunkDir(projectID)); err != nil {
		log.Printf("project %s: reclaim chunk artifacts: %v", projectID, err)
	}
	return nil
}

// FinalArtifact returns the path to the assembled WAV, triggering assembly
// when the project is complete but the artifact is missing. Incomplete
// projects get ErrNotReady rather than a generic failure.
func (e *Engine) FinalArtifact(ctx context.Context, projectID string) (string, error) {
	p, err := e.store.Load(ctx, projectID)
	if err != nil {
		return "", err
	}

	finalPath := e.finalWAVPath(projectID)
	if _, err := os.Stat(finalPath); err == nil {
		return finalPath, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	if !p.AllCompleted() {
		return "", fmt.Errorf("%w: %d/%d chunks completed", ErrNotReady, p.CompletedChunks, p.TotalChunks)
	}
	if err := e.Assemble(ctx, projectID); err != nil {
		return "", err
	}
	return finalPath, nil
}

func (e *Engine) countAssembly(result string) {
	if e.metrics != nil {
		e.metrics.Assemblies.WithLabelValues(result).Inc()
	}
}

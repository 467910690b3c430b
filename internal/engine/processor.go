package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	json "github.com/goccy/go-json"

	"github.com/ent0n29/scheherazade/internal/audio"
	"github.com/ent0n29/scheherazade/internal/project"
	"github.com/ent0n29/scheherazade/internal/synth"
	"github.com/ent0n29/scheherazade/internal/textproc"
)

// SubPart records one synthesized slice of a chunk, enough for downstream
// text highlighting against the audio timeline.
type SubPart struct {
	Text    string `json:"text"`
	Samples int    `json:"samples"`
}

type chunkMeta struct {
	ChunkID    int       `json:"chunk_id"`
	SampleRate int       `json:"sample_rate"`
	Parts      []SubPart `json:"parts"`
}

// ProcessChunk synthesizes one chunk's audio artifact. Safe to re-issue at
// any time: an existing artifact, a completed chunk or an optimized project
// all short-circuit to success.
func (e *Engine) ProcessChunk(ctx context.Context, projectID string, chunkID int) error {
	wavPath := e.chunkWAVPath(projectID, chunkID)
	if _, err := os.Stat(wavPath); err == nil {
		return nil
	}

	start := time.Now()
	generated, err := e.generateArtifact(ctx, projectID, chunkID, wavPath)
	if err != nil {
		if errors.Is(err, project.ErrNotFound) || errors.Is(err, project.ErrCorruptState) ||
			errors.Is(err, ErrChunkNotFound) {
			return err
		}
		if _, uerr := e.updateProject(ctx, projectID, func(p *project.Project) error {
			c, ok := p.ChunkByID(chunkID)
			if !ok {
				return fmt.Errorf("%w: chunk %d", ErrChunkNotFound, chunkID)
			}
			c.Status = project.ChunkError
			return nil
		}); uerr != nil {
			log.Printf("project %s: record chunk %d error: %v", projectID, chunkID, uerr)
		}
		if e.metrics != nil {
			e.metrics.ChunksProcessed.WithLabelValues("error").Inc()
		}
		return fmt.Errorf("%w: project %s chunk %d: %v", ErrSynthesis, projectID, chunkID, err)
	}
	if !generated {
		return nil
	}

	updated, err := e.updateProject(ctx, projectID, func(p *project.Project) error {
		c, ok := p.ChunkByID(chunkID)
		if !ok {
			return fmt.Errorf("%w: chunk %d", ErrChunkNotFound, chunkID)
		}
		c.Status = project.ChunkCompleted
		return nil
	})
	if err != nil {
		return err
	}
	if e.metrics != nil {
		e.metrics.ChunksProcessed.WithLabelValues("completed").Inc()
		e.metrics.ObserveChunkSynthesis(time.Since(start))
	}

	if updated.AllCompleted() && !updated.IsFinished {
		if _, err := e.updateProject(ctx, projectID, func(p *project.Project) error {
			p.IsFinished = true
			return nil
		}); err != nil {
			return err
		}
		if err := e.Assemble(ctx, projectID); err != nil {
			// The chunk itself is durably completed; assembly retries on the
			// next final-artifact request.
			log.Printf("project %s: assembly after last chunk: %v", projectID, err)
		}
	}
	return nil
}

// generateArtifact produces the chunk WAV under the synthesis lock and
// releases it before returning, so durable-state writes and assembly never
// run while other projects' synthesis is blocked. generated is false when the
// artifact already existed or the chunk needed no work.
func (e *Engine) generateArtifact(ctx context.Context, projectID string, chunkID int, wavPath string) (generated bool, err error) {
	e.synthMu.Lock()
	defer e.synthMu.Unlock()

	// Re-check under the lock: another caller may have produced the artifact
	// between the fast path and the acquire.
	if _, err := os.Stat(wavPath); err == nil {
		return false, nil
	}

	p, err := e.store.Load(ctx, projectID)
	if err != nil {
		return false, err
	}
	chunk, ok := p.ChunkByID(chunkID)
	if !ok {
		return false, fmt.Errorf("%w: chunk %d in project %s", ErrChunkNotFound, chunkID, projectID)
	}
	if p.IsOptimized || chunk.Status == project.ChunkCompleted {
		return false, nil
	}

	if err := e.synthesizeChunk(ctx, p, chunk.ID, chunk.Text, wavPath); err != nil {
		return false, err
	}
	return true, nil
}

// synthesizeChunk runs the safe splitter, resolves the voice style once,
// synthesizes each sub-part in order and writes the artifact plus its
// metadata record. Caller holds synthMu.
func (e *Engine) synthesizeChunk(ctx context.Context, p project.Project, chunkID int, text, wavPath string) error {
	parts := textproc.SplitSafe(text, e.cfg.MaxSynthChars)
	if len(parts) == 0 {
		return ErrEmptyText
	}
	if e.metrics != nil {
		e.metrics.SubPartsPerChunk.Observe(float64(len(parts)))
	}

	style, err := synth.ResolveStyle(ctx, e.styles, p.Voice)
	if err != nil {
		log.Printf("project %s: voice %q did not resolve, falling back to %s: %v",
			p.ID, p.Voice, e.cfg.DefaultVoice, err)
		style = synth.Style{Name: e.cfg.DefaultVoice}
	}

	var (
		pcm        []byte
		sampleRate int
		meta       = chunkMeta{ChunkID: chunkID}
	)
	for _, part := range parts {
		res, err := e.synthesizePart(ctx, synth.Request{
			Text:  part,
			Style: style,
			Speed: p.Speed,
			Lang:  p.Lang,
		})
		if err != nil {
			return fmt.Errorf("sub-part %q: %w", truncate(part, 40), err)
		}
		if sampleRate == 0 {
			sampleRate = res.SampleRate
		} else if res.SampleRate != sampleRate {
			return fmt.Errorf("sample rate changed mid-chunk: %d then %d", sampleRate, res.SampleRate)
		}
		pcm = append(pcm, res.PCM...)
		meta.Parts = append(meta.Parts, SubPart{Text: part, Samples: len(res.PCM) / 2})
	}
	meta.SampleRate = sampleRate

	if err := os.MkdirAll(e.chunkDir(p.ID), 0o755); err != nil {
		return err
	}
	tmp := wavPath + ".tmp"
	if err := audio.WriteWAVPCM16LEFile(tmp, pcm, sampleRate); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, wavPath); err != nil {
		os.Remove(tmp)
		return err
	}

	if b, err := json.MarshalIndent(meta, "", "  "); err == nil {
		if werr := os.WriteFile(e.chunkMetaPath(p.ID, chunkID), b, 0o644); werr != nil {
			log.Printf("project %s: write chunk %d metadata: %v", p.ID, chunkID, werr)
		}
	}
	return nil
}

func (e *Engine) synthesizePart(ctx context.Context, req synth.Request) (synth.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.SynthTimeout)
	defer cancel()
	return e.synth.Synthesize(ctx, req)
}

// ProcessNextChunk picks the first pending chunk and processes it. Returns
// the processed chunk ID, or done=true when nothing is left to do.
func (e *Engine) ProcessNextChunk(ctx context.Context, projectID string) (chunkID int, done bool, err error) {
	p, err := e.store.Load(ctx, projectID)
	if err != nil {
		return 0, false, err
	}
	if p.IsFinished {
		return 0, true, nil
	}

	next := -1
	for i := range p.Chunks {
		if p.Chunks[i].Status == project.ChunkPending {
			next = p.Chunks[i].ID
			break
		}
	}
	if next < 0 {
		// Nothing pending; remaining chunks are completed or errored. Only an
		// all-completed project is finished.
		if p.AllCompleted() {
			if _, err := e.updateProject(ctx, projectID, func(p *project.Project) error {
				p.IsFinished = true
				return nil
			}); err != nil {
				return 0, false, err
			}
			if err := e.Assemble(ctx, projectID); err != nil {
				log.Printf("project %s: assembly: %v", projectID, err)
			}
		}
		return 0, true, nil
	}

	return next, false, e.ProcessChunk(ctx, projectID, next)
}

// ChunkArtifact returns the path to a chunk's WAV, generating it on demand.
func (e *Engine) ChunkArtifact(ctx context.Context, projectID string, chunkID int) (string, error) {
	if err := e.ProcessChunk(ctx, projectID, chunkID); err != nil {
		return "", err
	}
	path := e.chunkWAVPath(projectID, chunkID)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// Completed per state but the artifact is gone: reclaimed by the
			// optimization pass. The final artifact is the answer now.
			return "", fmt.Errorf("%w: chunk %d artifact reclaimed", ErrChunkNotFound, chunkID)
		}
		return "", err
	}
	return path, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

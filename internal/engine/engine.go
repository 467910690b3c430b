// Package engine owns the conversion pipeline: project registry, chunk
// processing state machine, and final audio assembly. All durable-state
// mutations funnel through updateProject, which re-reads from the store under
// a process-wide lock so concurrent writers touching disjoint fields never
// clobber each other.
package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/ent0n29/scheherazade/internal/observability"
	"github.com/ent0n29/scheherazade/internal/project"
	"github.com/ent0n29/scheherazade/internal/synth"
	"github.com/ent0n29/scheherazade/internal/textproc"
)

var (
	ErrChunkNotFound = errors.New("chunk not found")
	ErrEmptyText     = errors.New("no synthesizable text")
	// ErrSynthesis marks retryable backend failures. The failed chunk is
	// recorded with status error; reprocessing retries from scratch.
	ErrSynthesis = errors.New("synthesis failed")
	// ErrAssembly marks a failed concatenation. Project state and chunk
	// artifacts are left untouched so assembly can be retried.
	ErrAssembly = errors.New("assembly failed")
	// ErrNotReady means the final artifact was requested before every chunk
	// completed. Distinct from failure: the project is still processing.
	ErrNotReady = errors.New("project not ready")
)

type Config struct {
	ProjectsDir      string
	DefaultVoice     string
	ChunkTarget      int
	FirstChunkTarget int
	MaxSynthChars    int
	SynthTimeout     time.Duration
}

// Engine coordinates the store, the synthesizer and the filesystem artifacts.
//
// Two locks, never held together: statusMu serializes brief read-modify-write
// cycles on durable project state; synthMu covers exactly one chunk's full
// generation (all its sub-parts) because the backend supports at most one
// in-flight request per process. Completion writes and assembly run after
// synthMu is released.
type Engine struct {
	store   project.Store
	synth   synth.Synthesizer
	styles  synth.StyleProvider
	metrics *observability.Metrics
	cfg     Config

	statusMu sync.Mutex
	synthMu  sync.Mutex
}

func New(store project.Store, s synth.Synthesizer, styles synth.StyleProvider, metrics *observability.Metrics, cfg Config) *Engine {
	if cfg.DefaultVoice == "" {
		cfg.DefaultVoice = synth.DefaultVoice
	}
	if cfg.ChunkTarget <= 0 {
		cfg.ChunkTarget = textproc.DefaultChunkTarget
	}
	if cfg.FirstChunkTarget <= 0 {
		cfg.FirstChunkTarget = textproc.DefaultFirstChunkTarget
	}
	if cfg.MaxSynthChars <= 0 {
		cfg.MaxSynthChars = textproc.DefaultMaxSynthChars
	}
	if cfg.SynthTimeout <= 0 {
		cfg.SynthTimeout = 2 * time.Minute
	}
	return &Engine{store: store, synth: s, styles: styles, metrics: metrics, cfg: cfg}
}

// Artifact layout under ProjectsDir.

func (e *Engine) projectDir(id string) string {
	return filepath.Join(e.cfg.ProjectsDir, id)
}

func (e *Engine) chunkDir(id string) string {
	return filepath.Join(e.projectDir(id), "audio_chunks")
}

func (e *Engine) chunkWAVPath(id string, chunkID int) string {
	return filepath.Join(e.chunkDir(id), fmt.Sprintf("chunk_%d.wav", chunkID))
}

func (e *Engine) chunkMetaPath(id string, chunkID int) string {
	return filepath.Join(e.chunkDir(id), fmt.Sprintf("chunk_%d.json", chunkID))
}

func (e *Engine) finalWAVPath(id string) string {
	return filepath.Join(e.projectDir(id), "final_output.wav")
}

// updateProject is the atomic read-modify-write primitive. It always loads
// fresh state from the store before applying mutate, so a caller's stale view
// of the project can never be written back.
func (e *Engine) updateProject(ctx context.Context, id string, mutate func(*project.Project) error) (project.Project, error) {
	e.statusMu.Lock()
	defer e.statusMu.Unlock()

	p, err := e.store.Load(ctx, id)
	if err != nil {
		return project.Project{}, err
	}
	if err := mutate(&p); err != nil {
		return project.Project{}, err
	}
	p.RecomputeCompleted()
	if err := e.store.Save(ctx, p); err != nil {
		return project.Project{}, err
	}
	return p, nil
}

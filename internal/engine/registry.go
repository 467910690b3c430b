package engine

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/ent0n29/scheherazade/internal/project"
	"github.com/ent0n29/scheherazade/internal/synth"
	"github.com/ent0n29/scheherazade/internal/textproc"
)

type CreateInput struct {
	Name   string
	Text   string
	Chunks []string
	Voice  string
	Speed  float64
	Lang   string
}

// CreateProject registers a new conversion job. Raw text is chunked
// server-side; pre-chunked input is taken as-is. Every chunk starts pending.
func (e *Engine) CreateProject(ctx context.Context, in CreateInput) (project.Project, error) {
	chunks := in.Chunks
	if len(chunks) == 0 {
		chunks = textproc.SplitIntoChunks(in.Text, e.cfg.ChunkTarget, e.cfg.FirstChunkTarget)
	}
	if len(chunks) == 0 {
		return project.Project{}, fmt.Errorf("%w: empty project text", ErrEmptyText)
	}

	voice := strings.TrimSpace(in.Voice)
	if voice == "" {
		voice = e.cfg.DefaultVoice
	}
	speed := in.Speed
	if speed <= 0 {
		speed = 1.0
	}
	lang := strings.TrimSpace(in.Lang)
	if lang == "" {
		lang = synth.LangForVoice(voice)
	}

	p := project.Project{
		ID:          newProjectID(in.Name),
		Name:        strings.TrimSpace(in.Name),
		Voice:       voice,
		Speed:       speed,
		Lang:        lang,
		TotalChunks: len(chunks),
		Chunks:      make([]project.Chunk, len(chunks)),
	}
	if p.Name == "" {
		p.Name = "untitled"
	}
	for i, text := range chunks {
		p.Chunks[i] = project.Chunk{ID: i, Text: text, Status: project.ChunkPending}
	}

	if err := os.MkdirAll(e.chunkDir(p.ID), 0o755); err != nil {
		return project.Project{}, err
	}
	if err := e.store.Save(ctx, p); err != nil {
		return project.Project{}, err
	}
	if e.metrics != nil {
		e.metrics.ProjectsCreated.Inc()
	}
	return p, nil
}

// newProjectID builds "<unix-seconds>_<slug>_<uuid8>". The uuid suffix keeps
// two same-named projects created within one second distinct.
func newProjectID(name string) string {
	slug := slugify(name)
	if slug == "" {
		slug = "project"
	}
	return fmt.Sprintf("%d_%s_%s", time.Now().Unix(), slug, uuid.NewString()[:8])
}

func slugify(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case unicode.IsSpace(r):
			b.WriteByte('_')
		case strings.ContainsRune(`\/:*?"<>|`, r), unicode.IsControl(r):
			// dropped: unsafe in a directory name
		default:
			b.WriteRune(r)
		}
	}
	s := b.String()
	if len(s) > 60 {
		// Cap on a rune boundary so the ID stays valid UTF-8.
		cut := 60
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}
	return s
}

func (e *Engine) ListProjects(ctx context.Context) ([]project.Project, error) {
	return e.store.List(ctx)
}

func (e *Engine) GetProject(ctx context.Context, id string) (project.Project, error) {
	return e.store.Load(ctx, id)
}

// RenameProject changes the display name only; the project ID and its
// directory are immutable.
func (e *Engine) RenameProject(ctx context.Context, id, name string) (project.Project, error) {
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if name == "" {
		return project.Project{}, fmt.Errorf("%w: empty project name", ErrEmptyText)
	}
	return e.updateProject(ctx, id, func(p *project.Project) error {
		p.Name = name
		return nil
	})
}

// DeleteProject removes the durable record and every on-disk artifact.
func (e *Engine) DeleteProject(ctx context.Context, id string) error {
	existed, err := e.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if rmErr := os.RemoveAll(e.projectDir(id)); rmErr != nil {
		return rmErr
	}
	if !existed {
		return project.ErrNotFound
	}
	return nil
}

// SetLastChunk updates the reader cursor. It goes through the atomic update
// primitive so it never races with generation-side writes to other fields.
func (e *Engine) SetLastChunk(ctx context.Context, id string, lastChunk int) (project.Project, error) {
	return e.updateProject(ctx, id, func(p *project.Project) error {
		if lastChunk < 0 || lastChunk >= p.TotalChunks {
			return fmt.Errorf("%w: chunk %d of %d", ErrChunkNotFound, lastChunk, p.TotalChunks)
		}
		p.LastChunk = lastChunk
		return nil
	})
}

package project

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func testProject(id string) Project {
	return Project{
		ID:          id,
		Name:        "A Book",
		Voice:       "af_heart",
		Speed:       1.0,
		Lang:        "en-us",
		TotalChunks: 2,
		Chunks: []Chunk{
			{ID: 0, Text: "first", Status: ChunkPending},
			{ID: 1, Text: "second", Status: ChunkPending},
		},
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx := context.Background()

	want := testProject("123_a_book")
	if err := s.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load(ctx, want.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Name != want.Name || got.Voice != want.Voice || len(got.Chunks) != 2 {
		t.Fatalf("Load = %+v, want %+v", got, want)
	}
	if got.Chunks[1].Text != "second" {
		t.Fatalf("chunk 1 text = %q, want %q", got.Chunks[1].Text, "second")
	}
}

func TestFileStoreLoadMissing(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if _, err := s.Load(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load(missing) error = %v, want ErrNotFound", err)
	}
}

func TestFileStoreCorruptIsNotAbsent(t *testing.T) {
	root := t.TempDir()
	s, err := NewFileStore(root)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	dir := filepath.Join(root, "bad")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "status.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, err = s.Load(context.Background(), "bad")
	if !errors.Is(err, ErrCorruptState) {
		t.Fatalf("Load(corrupt) error = %v, want ErrCorruptState", err)
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatalf("corrupt state reported as absent")
	}

	// Listing must surface the corruption, not drop the project.
	if _, err := s.List(context.Background()); !errors.Is(err, ErrCorruptState) {
		t.Fatalf("List error = %v, want ErrCorruptState", err)
	}
}

func TestFileStoreSaveLeavesNoTempFile(t *testing.T) {
	root := t.TempDir()
	s, err := NewFileStore(root)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	p := testProject("42_x")
	if err := s.Save(context.Background(), p); err != nil {
		t.Fatalf("Save: %v", err)
	}
	entries, err := os.ReadDir(filepath.Join(root, p.ID))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	for _, e := range entries {
		if e.Name() != "status.json" {
			t.Fatalf("unexpected file after Save: %s", e.Name())
		}
	}
}

func TestFileStoreListSkipsNonProjects(t *testing.T) {
	root := t.TempDir()
	s, err := NewFileStore(root)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx := context.Background()
	if err := s.Save(ctx, testProject("1_a")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(root, "stray"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "loose.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].ID != "1_a" {
		t.Fatalf("List = %+v, want only 1_a", got)
	}
}

func TestFileStoreDelete(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx := context.Background()
	p := testProject("7_gone")
	if err := s.Save(ctx, p); err != nil {
		t.Fatalf("Save: %v", err)
	}

	existed, err := s.Delete(ctx, p.ID)
	if err != nil || !existed {
		t.Fatalf("Delete = (%v, %v), want (true, nil)", existed, err)
	}
	if _, err := s.Load(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load after delete = %v, want ErrNotFound", err)
	}

	existed, err = s.Delete(ctx, p.ID)
	if err != nil || existed {
		t.Fatalf("second Delete = (%v, %v), want (false, nil)", existed, err)
	}
}

func TestRecomputeCompleted(t *testing.T) {
	p := testProject("x")
	p.Chunks[0].Status = ChunkCompleted
	if n := p.RecomputeCompleted(); n != 1 || p.CompletedChunks != 1 {
		t.Fatalf("RecomputeCompleted = %d (field %d), want 1", n, p.CompletedChunks)
	}
	p.Chunks[1].Status = ChunkCompleted
	p.RecomputeCompleted()
	if !p.AllCompleted() {
		t.Fatalf("AllCompleted = false with all chunks completed")
	}
}

func TestChunkByID(t *testing.T) {
	p := testProject("x")
	c, ok := p.ChunkByID(1)
	if !ok || c.Text != "second" {
		t.Fatalf("ChunkByID(1) = (%+v, %v)", c, ok)
	}
	if _, ok := p.ChunkByID(5); ok {
		t.Fatalf("ChunkByID(5) found a chunk that does not exist")
	}
	c.Status = ChunkCompleted
	if p.Chunks[1].Status != ChunkCompleted {
		t.Fatalf("ChunkByID did not return a pointer into Chunks")
	}
}

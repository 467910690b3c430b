package project

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	json "github.com/goccy/go-json"
)

const statusFileName = "status.json"

// FileStore keeps one directory per project under root, with the project
// record in status.json. Writes go through a temp file plus rename so a crash
// mid-write never leaves a half-written record behind.
type FileStore struct {
	root string
}

func NewFileStore(root string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create projects dir: %w", err)
	}
	return &FileStore{root: root}, nil
}

func (s *FileStore) Root() string { return s.root }

func (s *FileStore) statusPath(id string) string {
	return filepath.Join(s.root, id, statusFileName)
}

func (s *FileStore) Load(_ context.Context, id string) (Project, error) {
	data, err := os.ReadFile(s.statusPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return Project{}, ErrNotFound
		}
		return Project{}, fmt.Errorf("read project %s: %w", id, err)
	}
	var p Project
	if err := json.Unmarshal(data, &p); err != nil {
		return Project{}, fmt.Errorf("%w: %s: %v", ErrCorruptState, id, err)
	}
	p.ID = id
	return p, nil
}

func (s *FileStore) Save(_ context.Context, p Project) error {
	dir := filepath.Join(s.root, p.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create project dir: %w", err)
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encode project %s: %w", p.ID, err)
	}
	tmp := filepath.Join(dir, statusFileName+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write project %s: %w", p.ID, err)
	}
	if err := os.Rename(tmp, s.statusPath(p.ID)); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace project %s: %w", p.ID, err)
	}
	return nil
}

func (s *FileStore) List(ctx context.Context) ([]Project, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("list projects dir: %w", err)
	}
	out := make([]Project, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		p, err := s.Load(ctx, entry.Name())
		if err != nil {
			if isMissingStatus(err) {
				// A project dir without status.json is not a project (e.g. a
				// half-deleted directory); a corrupt one still is, and must
				// surface rather than vanish from the listing.
				continue
			}
			return nil, err
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func isMissingStatus(err error) bool {
	return err == ErrNotFound || os.IsNotExist(err)
}

func (s *FileStore) Delete(_ context.Context, id string) (bool, error) {
	dir := filepath.Join(s.root, id)
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat project %s: %w", id, err)
	}
	if err := os.RemoveAll(dir); err != nil {
		return false, fmt.Errorf("delete project %s: %w", id, err)
	}
	return true, nil
}

func (s *FileStore) Close() error { return nil }

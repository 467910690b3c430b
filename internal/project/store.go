package project

import (
	"context"
	"errors"
)

var (
	// ErrNotFound means no durable state exists for the project ID.
	ErrNotFound = errors.New("project not found")
	// ErrCorruptState means durable state exists but cannot be decoded. It is
	// deliberately distinct from ErrNotFound: a corrupt project must never be
	// treated as an absent one.
	ErrCorruptState = errors.New("project state corrupt")
)

// Store persists project records. Callers must not use Load+Save directly for
// read-modify-write cycles; the engine serializes those under its status lock.
type Store interface {
	Load(ctx context.Context, id string) (Project, error)
	Save(ctx context.Context, p Project) error
	List(ctx context.Context) ([]Project, error)
	Delete(ctx context.Context, id string) (bool, error)
	Close() error
}

// Package extract turns uploaded documents into plain text for chunking.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

var (
	// ErrUnsupportedFormat is returned for file types no extractor handles.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrCorruptInput is returned when the file type is supported but the
	// content cannot be decoded.
	ErrCorruptInput = errors.New("corrupt document")
)

// Extractor converts one document into plain text.
type Extractor interface {
	// Supports reports whether the extractor handles the file extension
	// (lowercase, without the dot).
	Supports(ext string) bool
	ExtractText(path string) (string, error)
}

// PlainText handles .txt and .md files.
type PlainText struct{}

func (PlainText) Supports(ext string) bool {
	return ext == "txt" || ext == "md"
}

func (PlainText) ExtractText(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", fmt.Errorf("%w: %s is not valid UTF-8", ErrCorruptInput, filepath.Base(path))
	}
	return strings.TrimSpace(string(b)), nil
}

// Registry dispatches to the first extractor supporting a file's extension.
type Registry struct {
	extractors []Extractor
}

func NewRegistry(extractors ...Extractor) *Registry {
	if len(extractors) == 0 {
		extractors = []Extractor{PlainText{}}
	}
	return &Registry{extractors: extractors}
}

func (r *Registry) ExtractText(path string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	for _, e := range r.extractors {
		if e.Supports(ext) {
			return e.ExtractText(path)
		}
	}
	return "", fmt.Errorf("%w: .%s", ErrUnsupportedFormat, ext)
}

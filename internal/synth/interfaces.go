// Package synth is the speech synthesis boundary: a Synthesizer turns one
// bounded piece of text into PCM16LE audio. Implementations are not assumed
// to be safe for concurrent calls; the engine serializes them.
package synth

import "context"

// Style selects what the backend speaks with: a named voice, or a blended
// style vector resolved from a weighted voice mixture. Vector takes
// precedence when non-nil.
type Style struct {
	Name   string
	Vector []float32
}

type Request struct {
	Text  string
	Style Style
	Speed float64
	Lang  string
}

// Result is raw mono PCM16LE plus the rate it was synthesized at.
type Result struct {
	PCM        []byte
	SampleRate int
}

type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) (Result, error)
	Close() error
}

// StyleProvider exposes per-voice style vectors, used only when resolving
// voice mixtures.
type StyleProvider interface {
	VoiceStyle(ctx context.Context, voiceID string) ([]float32, error)
}

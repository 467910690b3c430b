package synth

import (
	"context"
	"encoding/binary"
	"hash/fnv"
	"math"
)

const mockSampleRate = 24000

// Mock is a deterministic offline Synthesizer: the same text always yields
// the same audio, sized proportionally to the text. Useful for tests and for
// running the pipeline without a speech backend installed.
type Mock struct{}

func NewMock() *Mock { return &Mock{} }

func (m *Mock) Synthesize(_ context.Context, req Request) (Result, error) {
	// ~40ms of audio per character, quiet sine whose pitch depends on the text.
	samples := len(req.Text) * mockSampleRate / 25
	if samples < mockSampleRate/10 {
		samples = mockSampleRate / 10
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(req.Text))
	freq := 180.0 + float64(h.Sum32()%220)

	speed := req.Speed
	if speed <= 0 {
		speed = 1.0
	}
	samples = int(float64(samples) / speed)

	pcm := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		v := math.Sin(2 * math.Pi * freq * float64(i) / mockSampleRate)
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(v*3000)))
	}
	return Result{PCM: pcm, SampleRate: mockSampleRate}, nil
}

// VoiceStyle returns a deterministic unit-length vector per voice so mixture
// resolution has something real to blend.
func (m *Mock) VoiceStyle(_ context.Context, voiceID string) ([]float32, error) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(voiceID))
	seed := h.Sum64()

	vec := make([]float32, 8)
	for i := range vec {
		seed = seed*6364136223846793005 + 1442695040888963407
		vec[i] = float32(int64(seed>>33)) / float32(1<<30)
	}
	return vec, nil
}

func (m *Mock) Close() error { return nil }

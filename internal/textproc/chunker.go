// Package textproc splits document text into synthesizable pieces: first into
// bounded chunks that become independently cacheable audio artifacts, then
// (per chunk, at synthesis time) into sub-parts small enough for the speech
// backend's input budget.
package textproc

import "strings"

// Default chunk sizing. The first chunk is deliberately larger than the rest:
// it trades a longer wait before the very first audio for fewer total chunks,
// a tunable latency/throughput asymmetry rather than a bug.
const (
	DefaultChunkTarget      = 1000
	DefaultFirstChunkTarget = 3000
)

// SplitIntoChunks splits text into an ordered sequence of non-empty chunks.
// Paragraphs (blank-line separated) are packed greedily under the target; a
// single paragraph longer than the target is re-split on sentence boundaries
// and packed the same way. firstChunkLen applies while building chunk 0,
// targetLen afterwards.
func SplitIntoChunks(text string, targetLen, firstChunkLen int) []string {
	if targetLen <= 0 {
		targetLen = DefaultChunkTarget
	}
	if firstChunkLen <= 0 {
		firstChunkLen = targetLen
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var (
		chunks  []string
		current string
	)
	flush := func() {
		if trimmed := strings.TrimSpace(current); trimmed != "" {
			chunks = append(chunks, trimmed)
		}
		current = ""
	}
	target := func() int {
		if len(chunks) == 0 {
			return firstChunkLen
		}
		return targetLen
	}

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		if len(current)+len(para) < target() {
			if current == "" {
				current = para
			} else {
				current += "\n\n" + para
			}
			continue
		}

		flush()

		if len(para) > target() {
			// Oversized paragraph: pack sentence by sentence. The target is
			// re-evaluated inside the loop because flushing may move us past
			// the first-chunk budget.
			for _, sent := range SplitSentences(para) {
				if len(current)+len(sent) < target() {
					if current == "" {
						current = sent
					} else {
						current += " " + sent
					}
				} else {
					flush()
					current = sent
				}
			}
		} else {
			current = para
		}
	}
	flush()

	return chunks
}

// SplitSentences splits on sentence-ending punctuation (. ! ?) followed by
// whitespace, keeping the punctuation with its sentence.
func SplitSentences(text string) []string {
	return splitAfter(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
}

// splitAfter breaks text after any rune matched by end that is followed by
// whitespace. The separating whitespace is dropped; everything else survives.
func splitAfter(text string, end func(rune) bool) []string {
	var (
		out   []string
		runes = []rune(text)
		start = 0
	)
	for i := 0; i < len(runes)-1; i++ {
		if !end(runes[i]) {
			continue
		}
		if !isSpace(runes[i+1]) {
			continue
		}
		part := strings.TrimSpace(string(runes[start : i+1]))
		if part != "" {
			out = append(out, part)
		}
		j := i + 1
		for j < len(runes) && isSpace(runes[j]) {
			j++
		}
		start = j
		i = j - 1
	}
	if start < len(runes) {
		if part := strings.TrimSpace(string(runes[start:])); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	default:
		return false
	}
}

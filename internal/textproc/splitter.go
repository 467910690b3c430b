package textproc

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxSynthChars is the hard per-request ceiling handed to the speech
// backend, kept well under its phoneme budget.
const DefaultMaxSynthChars = 300

// SplitSafe splits text into backend-safe parts of at most maxChars bytes
// each, preserving reading order. The fallback chain is strict: sentence
// boundaries first, clause boundaries only if sentences failed to subdivide,
// hard rune-boundary slicing as the last resort.
func SplitSafe(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = DefaultMaxSynthChars
	}
	text = strings.TrimSpace(FilterPhonemizable(text))
	if text == "" {
		return nil
	}
	return splitSafe(text, maxChars)
}

func splitSafe(text string, maxChars int) []string {
	if len(text) <= maxChars {
		return []string{text}
	}

	parts := packUnder(SplitSentences(text), maxChars, " ")
	if len(parts) <= 1 {
		parts = packUnder(SplitClauses(text), maxChars, " ")
	}
	if len(parts) <= 1 {
		return hardSlice(text, maxChars)
	}

	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if len(part) > maxChars {
			out = append(out, splitSafe(part, maxChars)...)
		} else {
			out = append(out, part)
		}
	}
	return out
}

// SplitClauses splits on clause punctuation (, ; :) followed by whitespace.
func SplitClauses(text string) []string {
	return splitAfter(text, func(r rune) bool {
		return r == ',' || r == ';' || r == ':'
	})
}

// packUnder greedily merges consecutive pieces while the joined result stays
// under limit. Oversized single pieces pass through for the caller to recurse
// into.
func packUnder(pieces []string, limit int, sep string) []string {
	var (
		out     []string
		current string
	)
	for _, piece := range pieces {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}
		switch {
		case current == "":
			current = piece
		case len(current)+len(sep)+len(piece) <= limit:
			current += sep + piece
		default:
			out = append(out, current)
			current = piece
		}
	}
	if current != "" {
		out = append(out, current)
	}
	return out
}

// hardSlice cuts with no regard for word boundaries, but never inside a UTF-8
// sequence.
func hardSlice(text string, maxChars int) []string {
	var out []string
	for len(text) > maxChars {
		cut := maxChars
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		if cut == 0 {
			cut = maxChars
		}
		out = append(out, text[:cut])
		text = text[cut:]
	}
	if text != "" {
		out = append(out, text)
	}
	return out
}

// FilterPhonemizable replaces characters the backend cannot phonemize with a
// single space. Replacement, not removal: dropping bytes would shift every
// downstream length budget.
func FilterPhonemizable(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if isPhonemizable(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	return b.String()
}

func isPhonemizable(r rune) bool {
	switch {
	case r == '\n' || r == '\t':
		return true
	case r >= 0x20 && r <= 0x7E: // ASCII
		return true
	case r >= 0xA1 && r <= 0xBF: // Latin-1 punctuation: ¡ ¿ « » °
		return true
	case r >= 0xC0 && r <= 0x24F: // Latin-1 letters + Latin Extended A/B
		return true
	case r >= 0x2018 && r <= 0x201F: // curly quotes
		return true
	case r == '–' || r == '—' || r == '…': // dashes, ellipsis
		return true
	case r >= 0x3000 && r <= 0x303F: // CJK punctuation
		return true
	case r >= 0x3040 && r <= 0x30FF: // hiragana, katakana
		return true
	case r >= 0x4E00 && r <= 0x9FFF: // CJK unified ideographs
		return true
	case r >= 0xFF00 && r <= 0xFFEF: // full-width forms
		return true
	case unicode.IsSpace(r):
		return true
	default:
		return false
	}
}

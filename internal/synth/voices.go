package synth

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// DefaultVoice is the fallback used when a request names no voice or a
// mixture fails to resolve.
const DefaultVoice = "af_heart"

type VoiceInfo struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Lang  string `json:"lang"`
	Group string `json:"group"`
}

type voiceGroup struct {
	lang  string
	label string
}

// Voice ID prefix to language grouping, mirrored by the frontend picker.
var voiceLangMap = map[string]voiceGroup{
	"af": {"en-us", "English (US) - Female"},
	"am": {"en-us", "English (US) - Male"},
	"bf": {"en-gb", "English (UK) - Female"},
	"bm": {"en-gb", "English (UK) - Male"},
	"ef": {"es", "Spanish - Female"},
	"em": {"es", "Spanish - Male"},
	"ff": {"fr", "French - Female"},
	"if": {"it", "Italian - Female"},
	"im": {"it", "Italian - Male"},
	"jf": {"ja", "Japanese - Female"},
	"jm": {"ja", "Japanese - Male"},
	"pf": {"pt-br", "Portuguese - Female"},
	"pm": {"pt-br", "Portuguese - Male"},
	"zf": {"zh", "Chinese - Female"},
	"zm": {"zh", "Chinese - Male"},
}

// knownVoices is the Kokoro v1.0 voice inventory.
var knownVoices = []string{
	"af_alloy", "af_aoede", "af_bella", "af_heart", "af_jessica", "af_kore",
	"af_nicole", "af_nova", "af_river", "af_sarah", "af_sky",
	"am_adam", "am_echo", "am_eric", "am_fenrir", "am_liam", "am_michael",
	"am_onyx", "am_puck", "am_santa",
	"bf_alice", "bf_emma", "bf_isabella", "bf_lily",
	"bm_daniel", "bm_fable", "bm_george", "bm_lewis",
	"ef_dora", "em_alex", "em_santa",
	"ff_siwis",
	"if_sara", "im_nicola",
	"jf_alpha", "jf_gongitsune", "jf_nezumi", "jf_tebukuro", "jm_kumo",
	"pf_dora", "pm_alex", "pm_santa",
	"zf_xiaobei", "zf_xiaoni", "zf_xiaoxiao", "zf_xiaoyi",
	"zm_yunjian", "zm_yunxi", "zm_yunxia", "zm_yunyang",
}

// ListVoices returns the catalog annotated with language groups, sorted by ID.
func ListVoices() []VoiceInfo {
	out := make([]VoiceInfo, 0, len(knownVoices))
	for _, id := range knownVoices {
		group := voiceGroup{"en-us", "Other"}
		if len(id) >= 2 {
			if g, ok := voiceLangMap[id[:2]]; ok {
				group = g
			}
		}
		out = append(out, VoiceInfo{
			ID:    id,
			Label: voiceLabel(id),
			Lang:  group.lang,
			Group: group.label,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LangForVoice maps a voice ID to its language code via the prefix table.
func LangForVoice(voiceID string) string {
	if len(voiceID) >= 2 {
		if g, ok := voiceLangMap[voiceID[:2]]; ok {
			return g.lang
		}
	}
	return "en-us"
}

func voiceLabel(id string) string {
	words := strings.Split(id, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// MixtureComponent is one weighted voice in a blend spec.
type MixtureComponent struct {
	Voice  string
	Weight float64
}

// ParseMixture parses a blend spec like "af_heart*2+af_sky*1". Weights are
// optional; "af_heart+af_sky" blends equally. A plain voice name parses to a
// single full-weight component.
func ParseMixture(spec string) ([]MixtureComponent, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, fmt.Errorf("empty voice spec")
	}

	var out []MixtureComponent
	for _, term := range strings.Split(spec, "+") {
		term = strings.TrimSpace(term)
		if term == "" {
			return nil, fmt.Errorf("empty term in voice spec %q", spec)
		}
		name, weightStr, hasWeight := strings.Cut(term, "*")
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("missing voice name in term %q", term)
		}
		weight := 1.0
		if hasWeight {
			w, err := strconv.ParseFloat(strings.TrimSpace(weightStr), 64)
			if err != nil || w <= 0 {
				return nil, fmt.Errorf("bad weight in term %q", term)
			}
			weight = w
		}
		out = append(out, MixtureComponent{Voice: name, Weight: weight})
	}
	return out, nil
}

// IsMixture reports whether the voice spec names more than one voice.
func IsMixture(spec string) bool {
	return strings.ContainsAny(spec, "+*")
}

// ResolveStyle turns a voice spec into a synthesis Style. Single voices pass
// through by name; mixtures are resolved to a style vector, the weighted
// average of the component vectors normalized by total weight. Resolution
// errors are returned to the caller, who decides whether to fall back.
func ResolveStyle(ctx context.Context, styles StyleProvider, spec string) (Style, error) {
	if !IsMixture(spec) {
		name := strings.TrimSpace(spec)
		if name == "" {
			name = DefaultVoice
		}
		return Style{Name: name}, nil
	}

	parts, err := ParseMixture(spec)
	if err != nil {
		return Style{}, err
	}
	if styles == nil {
		return Style{}, fmt.Errorf("voice mixture %q requires a style provider", spec)
	}

	var (
		blended []float64
		total   float64
	)
	for _, part := range parts {
		vec, err := styles.VoiceStyle(ctx, part.Voice)
		if err != nil {
			return Style{}, fmt.Errorf("resolve voice %q: %w", part.Voice, err)
		}
		if blended == nil {
			blended = make([]float64, len(vec))
		} else if len(vec) != len(blended) {
			return Style{}, fmt.Errorf("style vector length mismatch for voice %q: %d != %d",
				part.Voice, len(vec), len(blended))
		}
		for i, v := range vec {
			blended[i] += float64(v) * part.Weight
		}
		total += part.Weight
	}

	vec := make([]float32, len(blended))
	for i, v := range blended {
		vec[i] = float32(v / total)
	}
	return Style{Name: spec, Vector: vec}, nil
}

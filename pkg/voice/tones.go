package voice

// ToneKey identifies a tone preset.
type ToneKey string

const (
	ToneFriendly     ToneKey = "friendly"
	ToneProfessional ToneKey = "professional"
	ToneEnergetic    ToneKey = "energetic"
	ToneEmpathetic   ToneKey = "empathetic"
)

// TonePreset bundles the prosody parameters applied during synthesis.
// Presets are loaded once at process start and never mutated, so they are
// safe for unsynchronized concurrent reads across call sessions.
type TonePreset struct {
	// Key is the preset identifier.
	Key ToneKey

	// Rate is the speaking rate multiplier (1.0 = provider default).
	Rate float64

	// Pitch is the pitch offset in semitones (0 = provider default).
	Pitch float64

	// MaxSentenceLength is the per-sentence character budget the persona
	// pipeline uses to enforce brevity (total budget is three sentences).
	MaxSentenceLength int
}

// tonePresets is the static preset table. Keep entries in sync with ToneKey.
var tonePresets = map[ToneKey]TonePreset{
	ToneFriendly: {
		Key:               ToneFriendly,
		Rate:              1.0,
		Pitch:             1.0,
		MaxSentenceLength: 90,
	},
	ToneProfessional: {
		Key:               ToneProfessional,
		Rate:              0.95,
		Pitch:             0.0,
		MaxSentenceLength: 110,
	},
	ToneEnergetic: {
		Key:               ToneEnergetic,
		Rate:              1.1,
		Pitch:             2.0,
		MaxSentenceLength: 80,
	},
	ToneEmpathetic: {
		Key:               ToneEmpathetic,
		Rate:              0.9,
		Pitch:             -1.0,
		MaxSentenceLength: 100,
	},
}

// DefaultTone is used when a voice profile references an unknown preset.
const DefaultTone = ToneFriendly

// ResolveTone returns the preset for a key, falling back to DefaultTone
// for unknown keys. It never fails.
func ResolveTone(key ToneKey) TonePreset {
	if p, ok := tonePresets[key]; ok {
		return p
	}
	return tonePresets[DefaultTone]
}

// Tones returns all registered presets. The returned slice is a copy.
func Tones() []TonePreset {
	out := make([]TonePreset, 0, len(tonePresets))
	for _, p := range tonePresets {
		out = append(out, p)
	}
	return out
}

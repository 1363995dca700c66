// Package voice defines the selectable voice identities and tone presets
// used by the response finalization pipeline.
//
// Both tables are immutable after process start. A caller's stored voice
// selection is resolved to a VoiceProfile at call setup; anything missing
// or unrecognized resolves to the default profile rather than failing.
package voice

// Gender is the catalog gender of a synthesis voice.
type Gender string

const (
	GenderFemale Gender = "female"
	GenderMale   Gender = "male"
)

// VoiceProfile is a selectable persona identity. It maps a stable profile
// key to a synthesis-provider voice ID and a tone preset.
type VoiceProfile struct {
	// Key is the stable identifier stored in user profiles.
	Key string

	// Label is the short display name shown in selection UIs.
	Label string

	// Description is a human-readable description of the voice.
	Description string

	// ProviderVoiceID is the synthesis-provider voice identifier.
	ProviderVoiceID string

	// Tone is the tone preset applied when speaking as this profile.
	Tone ToneKey

	// Gender is the voice gender.
	Gender Gender

	// Accent describes the regional accent (e.g., "american", "british").
	Accent string
}

// profiles is the static voice catalog.
var profiles = map[string]VoiceProfile{
	"harper": {
		Key:             "harper",
		Label:           "Harper",
		Description:     "Warm American female voice with an approachable, friendly tone. The default for outbound campaigns.",
		ProviderVoiceID: "EXAVITQu4vr4xnSDxMaL",
		Tone:            ToneFriendly,
		Gender:          GenderFemale,
		Accent:          "american",
	},
	"sterling": {
		Key:             "sterling",
		Label:           "Sterling",
		Description:     "Measured British male voice with a polished, professional register. Suited for formal campaigns.",
		ProviderVoiceID: "TxGEqnHWrfWFTfGW9XjX",
		Tone:            ToneProfessional,
		Gender:          GenderMale,
		Accent:          "british",
	},
	"nova": {
		Key:             "nova",
		Label:           "Nova",
		Description:     "Bright American female voice with an upbeat delivery. Good for promotions and reminders.",
		ProviderVoiceID: "9BWtsMINqrJLrRacOk9x",
		Tone:            ToneEnergetic,
		Gender:          GenderFemale,
		Accent:          "american",
	},
	"rowan": {
		Key:             "rowan",
		Label:           "Rowan",
		Description:     "Soft American male voice with a calm, reassuring tone. Used for sensitive or support-heavy calls.",
		ProviderVoiceID: "pNInz6obpgDQGcFmaJgB",
		Tone:            ToneEmpathetic,
		Gender:          GenderMale,
		Accent:          "american",
	},
}

// DefaultVoiceKey designates the profile used when a caller has not chosen
// a voice or an invalid key is stored.
const DefaultVoiceKey = "harper"

// ResolveProfile returns the profile for a key, falling back to the default
// profile for empty or unknown keys. It never fails.
func ResolveProfile(key string) VoiceProfile {
	if p, ok := profiles[key]; ok {
		return p
	}
	return profiles[DefaultVoiceKey]
}

// IsKnownProfile reports whether key names a cataloged profile.
func IsKnownProfile(key string) bool {
	_, ok := profiles[key]
	return ok
}

// Profiles returns all cataloged profiles. The returned slice is a copy.
func Profiles() []VoiceProfile {
	out := make([]VoiceProfile, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, p)
	}
	return out
}

// Settings are the concrete prosody values handed to the synthesis adapter.
// Zero-valued override fields mean "use the preset value".
type Settings struct {
	ProviderVoiceID string
	Rate            float64
	Pitch           float64
}

// Overrides are caller-supplied prosody adjustments that take precedence
// over the profile's tone preset.
type Overrides struct {
	Rate  float64
	Pitch float64
}

// ResolveSettings merges a profile's tone preset with optional overrides.
func ResolveSettings(profile VoiceProfile, ov *Overrides) Settings {
	preset := ResolveTone(profile.Tone)
	s := Settings{
		ProviderVoiceID: profile.ProviderVoiceID,
		Rate:            preset.Rate,
		Pitch:           preset.Pitch,
	}
	if ov != nil {
		if ov.Rate != 0 {
			s.Rate = ov.Rate
		}
		if ov.Pitch != 0 {
			s.Pitch = ov.Pitch
		}
	}
	return s
}

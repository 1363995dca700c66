package voice_test

import (
	"testing"

	"github.com/voxline/go-voxline/pkg/voice"
)

func TestResolveProfile(t *testing.T) {
	t.Run("known key returns that profile", func(t *testing.T) {
		p := voice.ResolveProfile("sterling")
		if p.Key != "sterling" {
			t.Errorf("expected sterling, got %s", p.Key)
		}
		if p.Tone != voice.ToneProfessional {
			t.Errorf("expected professional tone, got %s", p.Tone)
		}
		if p.ProviderVoiceID == "" {
			t.Error("expected a provider voice ID")
		}
	})

	t.Run("unknown key falls back to default", func(t *testing.T) {
		p := voice.ResolveProfile("no-such-voice")
		if p.Key != voice.DefaultVoiceKey {
			t.Errorf("expected default %s, got %s", voice.DefaultVoiceKey, p.Key)
		}
	})

	t.Run("empty key falls back to default", func(t *testing.T) {
		p := voice.ResolveProfile("")
		if p.Key != voice.DefaultVoiceKey {
			t.Errorf("expected default %s, got %s", voice.DefaultVoiceKey, p.Key)
		}
	})

	t.Run("catalog has four voices", func(t *testing.T) {
		all := voice.Profiles()
		if len(all) != 4 {
			t.Fatalf("expected 4 profiles, got %d", len(all))
		}
		for _, p := range all {
			if !voice.IsKnownProfile(p.Key) {
				t.Errorf("profile %s not reported as known", p.Key)
			}
			if p.ProviderVoiceID == "" {
				t.Errorf("profile %s has no provider voice ID", p.Key)
			}
		}
	})
}

func TestResolveTone(t *testing.T) {
	t.Run("known key", func(t *testing.T) {
		preset := voice.ResolveTone(voice.ToneEnergetic)
		if preset.Key != voice.ToneEnergetic {
			t.Errorf("expected energetic, got %s", preset.Key)
		}
		if preset.MaxSentenceLength != 80 {
			t.Errorf("expected budget 80, got %d", preset.MaxSentenceLength)
		}
	})

	t.Run("unknown key falls back to friendly", func(t *testing.T) {
		preset := voice.ResolveTone("shouty")
		if preset.Key != voice.DefaultTone {
			t.Errorf("expected %s, got %s", voice.DefaultTone, preset.Key)
		}
	})

	t.Run("every profile tone resolves to itself", func(t *testing.T) {
		for _, p := range voice.Profiles() {
			preset := voice.ResolveTone(p.Tone)
			if preset.Key != p.Tone {
				t.Errorf("profile %s: tone %s resolved to %s", p.Key, p.Tone, preset.Key)
			}
		}
	})
}

func TestResolveSettings(t *testing.T) {
	profile := voice.ResolveProfile("rowan")

	t.Run("no overrides uses preset prosody", func(t *testing.T) {
		s := voice.ResolveSettings(profile, nil)
		if s.ProviderVoiceID != profile.ProviderVoiceID {
			t.Errorf("voice ID mismatch: %s", s.ProviderVoiceID)
		}
		preset := voice.ResolveTone(profile.Tone)
		if s.Rate != preset.Rate {
			t.Errorf("expected rate %v, got %v", preset.Rate, s.Rate)
		}
		if s.Pitch != preset.Pitch {
			t.Errorf("expected pitch %v, got %v", preset.Pitch, s.Pitch)
		}
	})

	t.Run("overrides win over preset", func(t *testing.T) {
		s := voice.ResolveSettings(profile, &voice.Overrides{Rate: 1.25, Pitch: 3})
		if s.Rate != 1.25 {
			t.Errorf("expected rate 1.25, got %v", s.Rate)
		}
		if s.Pitch != 3 {
			t.Errorf("expected pitch 3, got %v", s.Pitch)
		}
	})

	t.Run("zero override fields keep preset values", func(t *testing.T) {
		preset := voice.ResolveTone(profile.Tone)
		s := voice.ResolveSettings(profile, &voice.Overrides{Rate: 1.25})
		if s.Pitch != preset.Pitch {
			t.Errorf("expected preset pitch %v, got %v", preset.Pitch, s.Pitch)
		}
	})
}

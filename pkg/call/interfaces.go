package call

import (
	"context"
	"log/slog"

	"github.com/voxline/go-voxline/pkg/fallback"
	"github.com/voxline/go-voxline/pkg/voice"
)

// Classifier is the external utterance-to-scenario classifier. A failure is
// treated as a normal scenario; the session degrades to the dialogue
// engine's draft.
type Classifier interface {
	Classify(ctx context.Context, utterance string) (fallback.Scenario, error)
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(ctx context.Context, utterance string) (fallback.Scenario, error)

// Classify implements Classifier.
func (f ClassifierFunc) Classify(ctx context.Context, utterance string) (fallback.Scenario, error) {
	return f(ctx, utterance)
}

// DialogueEngine is the upstream draft generator. The session treats its
// output identically to a resolved fallback: everything passes through the
// persona pipeline before synthesis.
type DialogueEngine interface {
	// GenerateDraft produces candidate reply text for the current turn.
	// The call context is passed by value; engines never mutate it.
	GenerateDraft(ctx context.Context, call CallContext) (string, error)
}

// DialogueEngineFunc adapts a function to the DialogueEngine interface.
type DialogueEngineFunc func(ctx context.Context, call CallContext) (string, error)

// GenerateDraft implements DialogueEngine.
func (f DialogueEngineFunc) GenerateDraft(ctx context.Context, call CallContext) (string, error) {
	return f(ctx, call)
}

// VoiceStore is the external persistence holding each user's voice
// selection.
type VoiceStore interface {
	SelectedVoiceKey(ctx context.Context, userID string) (string, error)
}

// ResolveUserVoice looks up a user's stored voice selection and resolves it
// to a profile. A missing store, lookup failure, or unknown key resolves to
// the default profile with a warning; it is never fatal.
func ResolveUserVoice(ctx context.Context, store VoiceStore, userID string, logger *slog.Logger) voice.VoiceProfile {
	if logger == nil {
		logger = slog.Default()
	}
	if store == nil {
		return voice.ResolveProfile(voice.DefaultVoiceKey)
	}

	key, err := store.SelectedVoiceKey(ctx, userID)
	if err != nil {
		logger.Warn("voice lookup failed, using default voice",
			"user_id", userID,
			"error", err,
		)
		return voice.ResolveProfile(voice.DefaultVoiceKey)
	}
	if !voice.IsKnownProfile(key) {
		logger.Warn("unknown voice key, using default voice",
			"user_id", userID,
			"voice_key", key,
		)
		return voice.ResolveProfile(voice.DefaultVoiceKey)
	}
	return voice.ResolveProfile(key)
}

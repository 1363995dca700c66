package call_test

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/voxline/go-voxline/pkg/call"
	"github.com/voxline/go-voxline/pkg/fallback"
	"github.com/voxline/go-voxline/pkg/persona"
	"github.com/voxline/go-voxline/pkg/tts"
	"github.com/voxline/go-voxline/pkg/voice"
)

func normalClassifier() call.Classifier {
	return call.ClassifierFunc(func(ctx context.Context, utterance string) (fallback.Scenario, error) {
		return fallback.Scenario{Category: fallback.CategoryNormal}, nil
	})
}

func fixedClassifier(s fallback.Scenario) call.Classifier {
	return call.ClassifierFunc(func(ctx context.Context, utterance string) (fallback.Scenario, error) {
		return s, nil
	})
}

func fixedEngine(text string) call.DialogueEngine {
	return call.DialogueEngineFunc(func(ctx context.Context, c call.CallContext) (string, error) {
		return text, nil
	})
}

func testConfig(synth tts.Provider) call.Config {
	return call.Config{
		Identity: call.Identity{
			AgentName:     "Morgan",
			BusinessName:  "Lakeside Dental",
			CallbackPhone: "555-0134",
			BusinessHours: "9am to 5pm weekdays",
		},
		CampaignPurpose: "your upcoming appointment",
		VoiceKey:        "harper",
		Classifier:      normalClassifier(),
		Engine:          fixedEngine("Thanks, I can help with that."),
		Library:         fallback.NewLibrary(fallback.WithRand(rand.New(rand.NewSource(1)))),
		Pipeline:        persona.NewPipeline(persona.WithRand(rand.New(rand.NewSource(1)))),
		Synth:           synth,
	}
}

func TestNewSession(t *testing.T) {
	t.Run("requires library, pipeline, and synth", func(t *testing.T) {
		cfg := testConfig(tts.NewMock())

		missing := cfg
		missing.Library = nil
		if _, err := call.NewSession(missing); !errors.Is(err, call.ErrNoLibrary) {
			t.Errorf("expected ErrNoLibrary, got %v", err)
		}

		missing = cfg
		missing.Pipeline = nil
		if _, err := call.NewSession(missing); !errors.Is(err, call.ErrNoPipeline) {
			t.Errorf("expected ErrNoPipeline, got %v", err)
		}

		missing = cfg
		missing.Synth = nil
		if _, err := call.NewSession(missing); !errors.Is(err, call.ErrNoSynth) {
			t.Errorf("expected ErrNoSynth, got %v", err)
		}
	})

	t.Run("sessions get unique IDs", func(t *testing.T) {
		a, err := call.NewSession(testConfig(tts.NewMock()))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		b, err := call.NewSession(testConfig(tts.NewMock()))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if a.ID() == "" || a.ID() == b.ID() {
			t.Errorf("expected distinct IDs, got %q and %q", a.ID(), b.ID())
		}
	})

	t.Run("invalid voice key falls back to default", func(t *testing.T) {
		cfg := testConfig(tts.NewMock())
		cfg.VoiceKey = "no-such-voice"
		s, err := call.NewSession(cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.Profile().Key != voice.DefaultVoiceKey {
			t.Errorf("expected default voice, got %s", s.Profile().Key)
		}
	})

	t.Run("new session starts in greeting", func(t *testing.T) {
		s, err := call.NewSession(testConfig(tts.NewMock()))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.State() != persona.StateGreeting {
			t.Errorf("expected greeting, got %s", s.State())
		}
	})
}

func TestOnCallerTurn(t *testing.T) {
	ctx := context.Background()

	t.Run("normal turn uses the engine draft", func(t *testing.T) {
		mock := tts.NewMock()
		s, err := call.NewSession(testConfig(mock))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		turn, err := s.OnCallerTurn(ctx, "Hello?")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if turn.FromFallback {
			t.Error("normal turn should not use a fallback")
		}
		if turn.Text == "" {
			t.Error("expected finalized text")
		}
		if turn.Audio == nil {
			t.Error("expected buffered audio")
		}
		if turn.EndCall {
			t.Error("normal turn should not end the call")
		}
		if s.State() != persona.StateInteraction {
			t.Errorf("expected interaction after greeting turn, got %s", s.State())
		}
	})

	t.Run("classifier failure degrades to the draft", func(t *testing.T) {
		cfg := testConfig(tts.NewMock())
		cfg.Classifier = call.ClassifierFunc(func(ctx context.Context, u string) (fallback.Scenario, error) {
			return fallback.Scenario{}, errors.New("classifier offline")
		})
		s, err := call.NewSession(cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		turn, err := s.OnCallerTurn(ctx, "Hello?")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if turn.FromFallback {
			t.Error("classifier failure must not serve a fallback")
		}
		if turn.Text == "" {
			t.Error("expected a draft-based reply")
		}
	})

	t.Run("engine failure degrades to a safe clarification", func(t *testing.T) {
		cfg := testConfig(tts.NewMock())
		cfg.Engine = call.DialogueEngineFunc(func(ctx context.Context, c call.CallContext) (string, error) {
			return "", errors.New("engine timeout")
		})
		s, err := call.NewSession(cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		turn, err := s.OnCallerTurn(ctx, "Hello?")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if turn.Text == "" {
			t.Error("expected a non-empty reply despite engine failure")
		}
		if turn.EndCall {
			t.Error("engine failure must not end the call")
		}
	})

	t.Run("exceptional scenario serves a fallback", func(t *testing.T) {
		cfg := testConfig(tts.NewMock())
		cfg.Classifier = fixedClassifier(fallback.Scenario{
			Category: fallback.CategoryCallerBehavior,
			Type:     "suspicious",
		})
		s, err := call.NewSession(cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		turn, err := s.OnCallerTurn(ctx, "Who is this really?")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !turn.FromFallback {
			t.Fatal("expected a fallback response")
		}
		if !strings.Contains(turn.Text, "Lakeside Dental") {
			t.Errorf("business name not substituted: %q", turn.Text)
		}
		if m := s.Metrics(); m.FallbacksServed != 1 {
			t.Errorf("expected 1 fallback served, got %d", m.FallbacksServed)
		}
	})

	t.Run("knowledge gap is counted", func(t *testing.T) {
		cfg := testConfig(tts.NewMock())
		cfg.Classifier = fixedClassifier(fallback.Scenario{
			Category: fallback.CategoryBusinessLogic,
			Type:     "unknown_question",
		})
		s, err := call.NewSession(cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if _, err := s.OnCallerTurn(ctx, "Do you support ACME model 7?"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if m := s.Metrics(); m.KnowledgeGaps != 1 {
			t.Errorf("expected 1 knowledge gap, got %d", m.KnowledgeGaps)
		}
	})

	t.Run("banned phrases never reach synthesis", func(t *testing.T) {
		mock := tts.NewMock()
		cfg := testConfig(mock)
		cfg.Engine = fixedEngine("As an AI, I can check the schedule for you.")
		s, err := call.NewSession(cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		turn, err := s.OnCallerTurn(ctx, "Can you check the schedule?")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(strings.ToLower(turn.Text), "as an ai") {
			t.Errorf("banned phrase reached synthesis: %q", turn.Text)
		}
		last := mock.LastCall()
		if last == nil || strings.Contains(strings.ToLower(last.Text), "as an ai") {
			t.Errorf("banned phrase in synthesized text: %+v", last)
		}
	})
}

func TestSafetyExitFlow(t *testing.T) {
	ctx := context.Background()

	cfg := testConfig(tts.NewMock())
	cfg.Classifier = call.ClassifierFunc(func(_ context.Context, utterance string) (fallback.Scenario, error) {
		if strings.Contains(strings.ToLower(utterance), "stop calling") {
			return fallback.Scenario{Category: fallback.CategoryBusinessLogic, Type: fallback.TypeUnsubscribeDNC}, nil
		}
		return fallback.Scenario{Category: fallback.CategoryNormal}, nil
	})
	s, err := call.NewSession(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	turn, err := s.OnCallerTurn(ctx, "Please stop calling me.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !turn.FromFallback || !turn.EndCall {
		t.Fatalf("expected exit-flagged fallback, got %+v", turn)
	}
	if s.State() != persona.StateClosing {
		t.Fatalf("expected closing state, got %s", s.State())
	}

	// One final turn is allowed for the sign-off, then the session ends.
	turn, err = s.OnCallerTurn(ctx, "Okay, bye.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !turn.EndCall {
		t.Error("closing turn should end the call")
	}
	if s.State() != persona.StateEnded {
		t.Fatalf("expected ended state, got %s", s.State())
	}

	if _, err := s.OnCallerTurn(ctx, "Hello?"); !errors.Is(err, call.ErrCallEnded) {
		t.Errorf("expected ErrCallEnded, got %v", err)
	}
}

func TestStreamingAndInterrupts(t *testing.T) {
	ctx := context.Background()

	t.Run("interrupt cancels the in-flight stream", func(t *testing.T) {
		mock := tts.NewMock()
		mock.StreamChunkDelay = 5 * time.Millisecond
		cfg := testConfig(mock)
		cfg.Streaming = true
		cfg.Engine = fixedEngine("Thanks, here is a fairly long explanation of the appointment details.")
		s, err := call.NewSession(cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		turn, err := s.OnCallerTurn(ctx, "Tell me everything.")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if turn.Stream == nil {
			t.Fatal("expected a stream handle in streaming mode")
		}
		if _, err := turn.Stream.Read(); err != nil {
			t.Fatalf("first read failed: %v", err)
		}

		s.OnInterrupt()

		if _, err := turn.Stream.Read(); !errors.Is(err, tts.ErrStreamCancelled) {
			t.Errorf("expected ErrStreamCancelled after interrupt, got %v", err)
		}
		if m := s.Metrics(); m.Interrupts != 1 {
			t.Errorf("expected 1 interrupt, got %d", m.Interrupts)
		}
	})

	t.Run("a new turn supersedes the previous stream", func(t *testing.T) {
		mock := tts.NewMock()
		mock.StreamChunkDelay = 5 * time.Millisecond
		cfg := testConfig(mock)
		cfg.Streaming = true
		s, err := call.NewSession(cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		first, err := s.OnCallerTurn(ctx, "First question.")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		second, err := s.OnCallerTurn(ctx, "Actually, different question.")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if _, err := first.Stream.Read(); !errors.Is(err, tts.ErrStreamCancelled) {
			t.Errorf("expected first stream cancelled, got %v", err)
		}
		if second.Stream == nil {
			t.Error("expected a fresh stream for the new turn")
		}
	})

	t.Run("call end cancels the in-flight stream", func(t *testing.T) {
		mock := tts.NewMock()
		mock.StreamChunkDelay = 5 * time.Millisecond
		cfg := testConfig(mock)
		cfg.Streaming = true
		s, err := call.NewSession(cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		turn, err := s.OnCallerTurn(ctx, "Hello?")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		s.OnCallEnd()

		if _, err := turn.Stream.Read(); !errors.Is(err, tts.ErrStreamCancelled) {
			t.Errorf("expected ErrStreamCancelled after call end, got %v", err)
		}
		if s.State() != persona.StateEnded {
			t.Errorf("expected ended state, got %s", s.State())
		}
	})
}

func TestSynthesisFailureClosesGracefully(t *testing.T) {
	ctx := context.Background()

	cfg := testConfig(tts.WithFailure(errors.New("provider down")))
	s, err := call.NewSession(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	turn, err := s.OnCallerTurn(ctx, "Hello?")
	if err != nil {
		t.Fatalf("synthesis failure must not surface as a turn error, got %v", err)
	}
	if !turn.EndCall {
		t.Error("expected graceful hang-up")
	}
	if turn.Text == "" {
		t.Error("expected a closing phrase")
	}
	if s.State() != persona.StateEnded {
		t.Errorf("expected ended state, got %s", s.State())
	}
	if m := s.Metrics(); m.SynthFailures != 1 {
		t.Errorf("expected 1 synth failure, got %d", m.SynthFailures)
	}
}

func TestOnCallEnd(t *testing.T) {
	s, err := call.NewSession(testConfig(tts.NewMock()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s.OnCallEnd()
	s.OnCallEnd() // idempotent

	if s.State() != persona.StateEnded {
		t.Errorf("expected ended state, got %s", s.State())
	}
	if _, err := s.OnCallerTurn(context.Background(), "Hello?"); !errors.Is(err, call.ErrCallEnded) {
		t.Errorf("expected ErrCallEnded, got %v", err)
	}
}

func TestResolveUserVoice(t *testing.T) {
	ctx := context.Background()

	t.Run("nil store resolves to default", func(t *testing.T) {
		p := call.ResolveUserVoice(ctx, nil, "user-1", nil)
		if p.Key != voice.DefaultVoiceKey {
			t.Errorf("expected default voice, got %s", p.Key)
		}
	})

	t.Run("lookup failure resolves to default", func(t *testing.T) {
		store := storeFunc(func(ctx context.Context, userID string) (string, error) {
			return "", errors.New("db unavailable")
		})
		p := call.ResolveUserVoice(ctx, store, "user-1", nil)
		if p.Key != voice.DefaultVoiceKey {
			t.Errorf("expected default voice, got %s", p.Key)
		}
	})

	t.Run("unknown stored key resolves to default", func(t *testing.T) {
		store := storeFunc(func(ctx context.Context, userID string) (string, error) {
			return "retired-voice", nil
		})
		p := call.ResolveUserVoice(ctx, store, "user-1", nil)
		if p.Key != voice.DefaultVoiceKey {
			t.Errorf("expected default voice, got %s", p.Key)
		}
	})

	t.Run("valid stored key resolves to that profile", func(t *testing.T) {
		store := storeFunc(func(ctx context.Context, userID string) (string, error) {
			return "sterling", nil
		})
		p := call.ResolveUserVoice(ctx, store, "user-1", nil)
		if p.Key != "sterling" {
			t.Errorf("expected sterling, got %s", p.Key)
		}
	})
}

type storeFunc func(ctx context.Context, userID string) (string, error)

func (f storeFunc) SelectedVoiceKey(ctx context.Context, userID string) (string, error) {
	return f(ctx, userID)
}

// Command voxline runs a simulated call against the response finalization
// pipeline. Each line read from stdin (or from -script) is treated as one
// caller turn; the finalized agent reply is printed along with the synthesis
// result.
//
// Usage:
//
//	go run ./cmd/voxline/
//	go run ./cmd/voxline/ -config voxline.yaml -voice sterling
//	go run ./cmd/voxline/ -script demo.txt -purpose "confirm your appointment"
//
// Flags:
//
//	-config     Config file path (default: search voxline.yaml)
//	-voice      Voice profile key (harper, sterling, nova, rowan)
//	-caller     Caller display name
//	-purpose    Campaign purpose for this call
//	-script     File with one caller utterance per line (default: stdin)
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/voxline/go-voxline/internal/config"
	"github.com/voxline/go-voxline/internal/log"
	"github.com/voxline/go-voxline/pkg/call"
	"github.com/voxline/go-voxline/pkg/fallback"
	"github.com/voxline/go-voxline/pkg/persona"
	"github.com/voxline/go-voxline/pkg/tts"
)

var (
	configPath = flag.String("config", "", "Config file path")
	voiceKey   = flag.String("voice", "", "Voice profile key (default: configured voice)")
	callerName = flag.String("caller", "", "Caller display name")
	purpose    = flag.String("purpose", "", "Campaign purpose for this call")
	scriptPath = flag.String("script", "", "File with one caller utterance per line (default: stdin)")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ config: %v\n", err)
		os.Exit(1)
	}
	config.SetupLogging(cfg.Logging)
	logger := log.Component("voxline")

	provider, err := buildProvider(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ synthesis backend: %v\n", err)
		os.Exit(1)
	}
	defer provider.Close()

	key := *voiceKey
	if key == "" {
		key = cfg.Agent.DefaultVoice
	}

	session, err := call.NewSession(call.Config{
		Identity: call.Identity{
			AgentName:     cfg.Agent.Name,
			BusinessName:  cfg.Agent.BusinessName,
			CallbackPhone: cfg.Agent.CallbackPhone,
			BusinessHours: cfg.Agent.BusinessHours,
		},
		CampaignPurpose: *purpose,
		CallerName:      *callerName,
		VoiceKey:        key,
		Streaming:       cfg.Synthesis.Streaming,
		Classifier:      keywordClassifier(),
		Engine:          echoEngine(cfg.Agent.Name),
		Library:         fallback.NewLibrary(fallback.WithLogger(logger)),
		Pipeline:        persona.NewPipeline(persona.WithLogger(logger)),
		Synth:           provider,
		Logger:          logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ session: %v\n", err)
		os.Exit(1)
	}

	profile := session.Profile()
	fmt.Printf("📞 Call %s using voice %s (%s)\n", session.ID(), profile.Key, profile.Label)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n🛑 Hanging up...")
		session.OnCallEnd()
		cancel()
	}()

	input := os.Stdin
	if *scriptPath != "" {
		f, err := os.Open(*scriptPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "❌ script: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		input = f
	}

	runCall(ctx, session, input)

	session.OnCallEnd()
	m := session.Metrics()
	fmt.Printf("\n✅ Call complete: %d turns, %d fallbacks, %d interrupts\n",
		m.TurnsProcessed, m.FallbacksServed, m.Interrupts)
}

func runCall(ctx context.Context, session *call.Session, input io.Reader) {
	scanner := bufio.NewScanner(input)
	for scanner.Scan() {
		utterance := strings.TrimSpace(scanner.Text())
		if utterance == "" {
			continue
		}

		turn, err := session.OnCallerTurn(ctx, utterance)
		if err != nil {
			fmt.Fprintf(os.Stderr, "❌ turn: %v\n", err)
			return
		}

		fmt.Printf("\n🗣️  caller: %s\n", utterance)
		fmt.Printf("🤖 agent:  %s\n", turn.Text)

		if turn.Stream != nil {
			drainStream(turn.Stream)
		} else if turn.Audio != nil {
			fmt.Printf("   audio: %d bytes, ~%s\n", len(turn.Audio.Audio), turn.Audio.Duration.Round(10*time.Millisecond))
		}

		if turn.EndCall {
			fmt.Println("👋 agent hung up")
			return
		}
		if ctx.Err() != nil {
			return
		}
	}
}

func drainStream(stream *tts.StreamHandle) {
	var total, chunks int
	for {
		chunk, err := stream.Read()
		if err != nil {
			fmt.Printf("   stream: %v after %d chunks\n", err, chunks)
			return
		}
		if chunk == nil {
			break
		}
		total += len(chunk)
		chunks++
	}
	fmt.Printf("   audio: %d bytes in %d chunks (streamed)\n", total, chunks)
}

// buildProvider constructs the synthesis backend from config.
func buildProvider(cfg *config.Config) (tts.Provider, error) {
	switch cfg.Synthesis.Backend {
	case "mock", "":
		return tts.NewMock(), nil
	case "elevenlabs":
		opts := []tts.Option{
			tts.WithAPIKey(cfg.Synthesis.APIKey),
			tts.WithTimeout(time.Duration(cfg.Synthesis.TimeoutSeconds) * time.Second),
		}
		if cfg.Synthesis.Streaming {
			return tts.NewElevenLabsWS(opts...)
		}
		return tts.NewElevenLabs(opts...)
	default:
		return nil, fmt.Errorf("unknown synthesis backend %q", cfg.Synthesis.Backend)
	}
}

// keywordClassifier is a trivial keyword-based scenario classifier for
// simulated calls. Production deployments plug in their own classifier.
func keywordClassifier() call.Classifier {
	rules := []struct {
		keywords []string
		scenario fallback.Scenario
	}{
		{[]string{"can't hear", "cant hear", "cutting out"},
			fallback.Scenario{Category: fallback.CategoryAudioTechnical, Type: "cant_hear"}},
		{[]string{"911", "emergency", "ambulance"},
			fallback.Scenario{Category: fallback.CategoryEmotionalSocial, Type: fallback.TypeEmergency}},
		{[]string{"stop calling", "do not call", "unsubscribe"},
			fallback.Scenario{Category: fallback.CategoryBusinessLogic, Type: fallback.TypeUnsubscribeDNC}},
		{[]string{"are you a robot", "are you real", "are you human"},
			fallback.Scenario{Category: fallback.CategoryIdentityIssues, Type: "identity_challenge"}},
		{[]string{"what are your hours", "when are you open"},
			fallback.Scenario{Category: fallback.CategoryBusinessLogic, Type: "outside_hours"}},
	}

	return call.ClassifierFunc(func(ctx context.Context, utterance string) (fallback.Scenario, error) {
		lower := strings.ToLower(utterance)
		for _, r := range rules {
			for _, kw := range r.keywords {
				if strings.Contains(lower, kw) {
					return r.scenario, nil
				}
			}
		}
		return fallback.Scenario{Category: fallback.CategoryNormal}, nil
	})
}

// echoEngine is a stand-in dialogue engine for simulated calls.
func echoEngine(agentName string) call.DialogueEngine {
	return call.DialogueEngineFunc(func(ctx context.Context, c call.CallContext) (string, error) {
		if c.LastUserUtterance == "" {
			return fmt.Sprintf("Hi, this is %s. How can I help you today?", agentName), nil
		}
		return fmt.Sprintf("I hear you saying %q. Tell me more about that.", c.LastUserUtterance), nil
	})
}

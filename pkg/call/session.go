package call

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voxline/go-voxline/pkg/fallback"
	"github.com/voxline/go-voxline/pkg/persona"
	"github.com/voxline/go-voxline/pkg/tts"
	"github.com/voxline/go-voxline/pkg/voice"
)

// Errors returned by sessions.
var (
	ErrCallEnded  = errors.New("call: session has ended")
	ErrNoLibrary  = errors.New("call: fallback library required")
	ErrNoPipeline = errors.New("call: persona pipeline required")
	ErrNoSynth    = errors.New("call: synthesis provider required")
)

// closingPhrase answers turns that arrive after the session entered its
// closing state.
const closingPhrase = "Thanks again for your time."

// failClosePhrase is spoken, via buffered synthesis, when streaming
// synthesis fails and the session ends the call gracefully instead of
// leaving the caller in silence.
const failClosePhrase = "I'm sorry, I'm having some technical trouble on my end. Thanks so much for your time, goodbye!"

// Config wires a Session's collaborators and per-call parameters.
type Config struct {
	// Identity is the agent-side identity.
	Identity Identity

	// CampaignPurpose is the reason for the call.
	CampaignPurpose string

	// CallerName is how the agent addresses the caller, if known.
	CallerName string

	// VoiceKey selects the voice profile; invalid keys resolve to the
	// default profile.
	VoiceKey string

	// Streaming selects streaming synthesis; buffered otherwise.
	Streaming bool

	// Classifier detects exceptional scenarios. Optional; nil means every
	// turn is treated as normal.
	Classifier Classifier

	// Engine generates drafts for normal turns. Optional; nil degrades
	// every turn to the safe clarification fallback.
	Engine DialogueEngine

	// Library resolves fallback responses. Required.
	Library *fallback.Library

	// Pipeline applies the persona rules. Required.
	Pipeline *persona.Pipeline

	// Synth converts finalized text to audio. Required.
	Synth tts.Provider

	// Logger is the structured logger; defaults to slog.Default.
	Logger *slog.Logger
}

// Metrics counts session activity.
type Metrics struct {
	TurnsProcessed int64
	FallbacksServed int64
	KnowledgeGaps  int64
	Interrupts     int64
	SynthFailures  int64
}

// Turn is the finalized result of one caller turn. Exactly one of Audio or
// Stream is set on success, depending on the configured synthesis mode.
type Turn struct {
	// Text is the finalized utterance after the persona pipeline.
	Text string

	// Scenario is the detected scenario for this turn.
	Scenario fallback.Scenario

	// FromFallback is true when the text came from the response library
	// rather than the dialogue engine.
	FromFallback bool

	// Audio is the buffered synthesis result.
	Audio *tts.AudioResult

	// Stream is the cancellable streaming synthesis handle.
	Stream *tts.StreamHandle

	// EndCall tells the transport to hang up after playing this turn.
	EndCall bool
}

// Session orchestrates the finalization pipeline for one active call.
// Sessions for different calls are independent and share only the read-only
// static tables. Caller turns are processed strictly in arrival order;
// OnInterrupt and OnCallEnd may be called concurrently with a turn in
// flight.
type Session struct {
	id       string
	cfg      Config
	profile  voice.VoiceProfile
	settings voice.Settings
	tone     voice.TonePreset
	logger   *slog.Logger

	// ctx is the call-scoped context; OnCallEnd cancels it so no synthesis
	// I/O outlives the call.
	ctx    context.Context
	cancel context.CancelFunc

	// turnMu serializes caller turns.
	turnMu sync.Mutex
	call   CallContext
	turns  int

	// stateMu guards state, the in-flight stream, and metrics, so
	// interruption and teardown work mid-turn.
	stateMu sync.Mutex
	state   persona.CallState
	current *tts.StreamHandle
	metrics Metrics
}

// NewSession creates a session for one call. The voice profile is resolved
// immediately; an invalid VoiceKey falls back to the default profile.
func NewSession(cfg Config) (*Session, error) {
	if cfg.Library == nil {
		return nil, ErrNoLibrary
	}
	if cfg.Pipeline == nil {
		return nil, ErrNoPipeline
	}
	if cfg.Synth == nil {
		return nil, ErrNoSynth
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	id := uuid.NewString()

	profile := voice.ResolveProfile(cfg.VoiceKey)
	if cfg.VoiceKey != "" && !voice.IsKnownProfile(cfg.VoiceKey) {
		logger.Warn("unknown voice key, using default voice",
			"call_id", id,
			"voice_key", cfg.VoiceKey,
		)
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &Session{
		id:       id,
		cfg:      cfg,
		profile:  profile,
		settings: voice.ResolveSettings(profile, nil),
		tone:     voice.ResolveTone(profile.Tone),
		logger:   logger.With("component", "call.session", "call_id", id),
		ctx:      ctx,
		cancel:   cancel,
		state:    persona.StateGreeting,
		call: CallContext{
			StartedAt:       time.Now(),
			CampaignPurpose: cfg.CampaignPurpose,
			CallerName:      cfg.CallerName,
		},
	}

	s.logger.Info("call session started",
		"voice", profile.Key,
		"streaming", cfg.Streaming,
	)
	return s, nil
}

// ID returns the call session identifier.
func (s *Session) ID() string {
	return s.id
}

// State returns the current call state.
func (s *Session) State() persona.CallState {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state
}

// Metrics returns a snapshot of session counters.
func (s *Session) Metrics() Metrics {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.metrics
}

// Profile returns the resolved voice profile for this call.
func (s *Session) Profile() voice.VoiceProfile {
	return s.profile
}

// OnCallerTurn processes one caller turn: classification, resolution or
// draft generation, persona rules, then synthesis. Turns are handled
// strictly in arrival order. Any in-flight streaming synthesis is cancelled
// before the new turn's audio starts.
func (s *Session) OnCallerTurn(ctx context.Context, utterance string) (*Turn, error) {
	s.turnMu.Lock()
	defer s.turnMu.Unlock()

	if s.State() == persona.StateEnded {
		return nil, ErrCallEnded
	}

	// Tie the turn to both the caller's context and the call lifetime.
	turnCtx, cancelTurn := context.WithCancel(ctx)
	defer cancelTurn()
	stop := context.AfterFunc(s.ctx, cancelTurn)
	defer stop()

	// A new caller turn supersedes whatever the agent was saying.
	s.cancelCurrent()

	s.call.LastUserUtterance = utterance
	s.turns++
	s.countTurn()

	state := s.State()

	var (
		text         string
		scenario     = fallback.Scenario{Category: fallback.CategoryNormal}
		resp         fallback.Response
		fromFallback bool
	)

	switch {
	case state == persona.StateClosing:
		// The call is wrapping up; answer with a closing phrase only.
		text = closingPhrase

	default:
		scenario = s.classify(turnCtx, utterance)
		if scenario.Category != fallback.CategoryNormal {
			text, resp = s.cfg.Library.ResolveRandom(scenario, s.placeholders())
			fromFallback = !resp.IsEmpty()
		}
		if fromFallback {
			s.stateMu.Lock()
			s.metrics.FallbacksServed++
			s.stateMu.Unlock()
		}
		if !fromFallback {
			text = s.draft(turnCtx)
		}
	}

	s.applyFlags(utterance, resp)

	final := s.cfg.Pipeline.Apply(text, s.personaContext(state, resp))

	if state == persona.StateGreeting && s.cfg.CampaignPurpose != "" && !s.call.HasDeliveredPurpose {
		s.call.HasDeliveredPurpose = true
		s.call.PurposeDeliveredAt = time.Now()
	}

	turn := &Turn{
		Text:         final,
		Scenario:     scenario,
		FromFallback: fromFallback,
	}

	if err := s.speak(turnCtx, turn); err != nil {
		return s.closeGracefully(turn, err)
	}

	s.advanceState(state, resp, turn)

	return turn, nil
}

// OnInterrupt handles caller barge-in: any in-flight streaming synthesis is
// cancelled so the agent stops speaking within one chunk.
func (s *Session) OnInterrupt() {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	s.metrics.Interrupts++
	if s.current != nil {
		s.current.Cancel()
		s.current = nil
		s.logger.Debug("barge-in: cancelled in-flight synthesis")
	}
}

// OnCallEnd tears the session down: in-flight synthesis is cancelled, the
// call context is cancelled so no synthesis task outlives the call, and the
// session moves to its terminal state.
func (s *Session) OnCallEnd() {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	if s.state == persona.StateEnded {
		return
	}
	if s.current != nil {
		s.current.Cancel()
		s.current = nil
	}
	s.state = persona.StateEnded
	s.cancel()

	s.logger.Info("call session ended",
		"turns", s.metrics.TurnsProcessed,
		"fallbacks", s.metrics.FallbacksServed,
		"duration", time.Since(s.call.StartedAt).Round(time.Second).String(),
	)
}

// classify asks the external classifier for a scenario. Failure degrades to
// normal so the dialogue engine's draft is used.
func (s *Session) classify(ctx context.Context, utterance string) fallback.Scenario {
	if s.cfg.Classifier == nil {
		return fallback.Scenario{Category: fallback.CategoryNormal}
	}
	scenario, err := s.cfg.Classifier.Classify(ctx, utterance)
	if err != nil {
		s.logger.Warn("classifier failed, treating as normal", "error", err)
		return fallback.Scenario{Category: fallback.CategoryNormal}
	}
	return scenario
}

// draft asks the dialogue engine for a candidate reply. Failure degrades to
// the library's safe clarification default so the caller never hears silence.
func (s *Session) draft(ctx context.Context) string {
	if s.cfg.Engine != nil {
		text, err := s.cfg.Engine.GenerateDraft(ctx, s.call)
		if err == nil && text != "" {
			return text
		}
		if err != nil {
			s.logger.Warn("dialogue engine failed, using safe default", "error", err)
		}
	}

	resp := s.cfg.Library.Resolve(
		fallback.Scenario{Category: fallback.CategoryCallerBehavior, Type: "unresolved"},
		s.placeholders(),
	)
	return resp.Primary
}

// applyFlags applies a fallback response's side effects to the call context.
func (s *Session) applyFlags(utterance string, resp fallback.Response) {
	if resp.ShouldLogKnowledgeGap {
		s.stateMu.Lock()
		s.metrics.KnowledgeGaps++
		s.stateMu.Unlock()
		s.logger.Info("knowledge gap logged", "utterance", utterance)
	}
	if resp.ShouldOfferCallback {
		s.call.NeedsHumanFollowup = true
	}
	if resp.ShouldExit {
		s.call.ExitRequested = true
	}
}

// personaContext builds the transient rule context for one utterance.
func (s *Session) personaContext(state persona.CallState, resp fallback.Response) persona.Context {
	return persona.Context{
		State:               state,
		Tone:                s.tone,
		StartedAt:           s.call.StartedAt,
		HasDeliveredPurpose: s.call.HasDeliveredPurpose,
		PurposeDeliveredAt:  s.call.PurposeDeliveredAt,
		CampaignPurpose:     s.call.CampaignPurpose,
		LastUserUtterance:   s.call.LastUserUtterance,
		ExitRequested:       s.call.ExitRequested,
		NeedsHumanFollowup:  s.call.NeedsHumanFollowup,
		IsFirstResponse:     s.turns == 1,
		IsClosing:           state == persona.StateClosing || resp.ShouldExit,
		CallerName:          s.call.CallerName,
		BusinessName:        s.cfg.Identity.BusinessName,
		AgentName:           s.cfg.Identity.AgentName,
	}
}

// speak synthesizes the finalized text in the configured mode. In streaming
// mode the handle becomes the session's in-flight stream so interruption
// and teardown can cancel it.
func (s *Session) speak(ctx context.Context, turn *Turn) error {
	req := tts.Request{Text: turn.Text, Voice: s.settings}

	if s.cfg.Streaming {
		// The stream outlives the turn: it is bounded by the call lifetime
		// and by explicit handle cancellation, not by the turn context.
		handle, err := s.cfg.Synth.Stream(s.ctx, req)
		if err != nil {
			return err
		}
		s.stateMu.Lock()
		s.current = handle
		s.stateMu.Unlock()
		turn.Stream = handle
		return nil
	}

	result, err := s.cfg.Synth.Synthesize(ctx, req)
	if err != nil {
		return err
	}
	turn.Audio = result
	return nil
}

// closeGracefully handles a synthesis failure: rather than leaving the
// caller in silence, it attempts a buffered closing phrase and ends the
// call. The failure never propagates as a session crash.
func (s *Session) closeGracefully(turn *Turn, synthErr error) (*Turn, error) {
	s.stateMu.Lock()
	s.metrics.SynthFailures++
	s.stateMu.Unlock()

	s.logger.Error("synthesis failed, closing call gracefully", "error", synthErr)

	turn.Text = failClosePhrase
	turn.EndCall = true
	turn.Stream = nil

	// Best effort: the closing phrase goes out via buffered synthesis on a
	// short deadline of its own.
	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := s.cfg.Synth.Synthesize(closeCtx, tts.Request{Text: failClosePhrase, Voice: s.settings})
	if err != nil {
		s.logger.Error("closing phrase synthesis also failed", "error", err)
	} else {
		turn.Audio = result
	}

	s.stateMu.Lock()
	s.state = persona.StateEnded
	s.stateMu.Unlock()
	s.cancel()

	return turn, nil
}

// advanceState applies the state transition for a completed turn.
func (s *Session) advanceState(state persona.CallState, resp fallback.Response, turn *Turn) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	switch {
	case resp.ShouldExit:
		// Safety-tagged fallbacks force the closing transition; the
		// dialogue engine may not continue this call.
		s.state = persona.StateClosing
		turn.EndCall = true
	case state == persona.StateClosing:
		s.state = persona.StateEnded
		turn.EndCall = true
	case state == persona.StateGreeting:
		s.state = persona.StateInteraction
	}
}

// cancelCurrent cancels the in-flight stream, if any.
func (s *Session) cancelCurrent() {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.current != nil {
		s.current.Cancel()
		s.current = nil
	}
}

// countTurn bumps the processed-turn counter.
func (s *Session) countTurn() {
	s.stateMu.Lock()
	s.metrics.TurnsProcessed++
	s.stateMu.Unlock()
}

// placeholders builds the substitution context from the call and identity.
func (s *Session) placeholders() fallback.Placeholders {
	return fallback.Placeholders{
		DisplayName:  s.call.CallerName,
		BusinessName: s.cfg.Identity.BusinessName,
		Phone:        s.cfg.Identity.CallbackPhone,
		Purpose:      s.call.CampaignPurpose,
		Hours:        s.cfg.Identity.BusinessHours,
	}
}

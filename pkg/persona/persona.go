// Package persona enforces a single consistent agent persona on every
// outgoing utterance, whether it came from the dialogue engine or from the
// fallback response library.
//
// The pipeline is an ordered sequence of deterministic text transformations.
// The order is a behavioral contract: later rules assume the normalization
// performed by earlier ones, and the banned-phrase scrub always runs last so
// nothing a rule introduces can leak a disallowed self-reference to synthesis.
//
// Given a fixed seeded random source, Apply is pure and deterministic.
package persona

import (
	"time"

	"github.com/voxline/go-voxline/pkg/voice"
)

// CallState is the phase of a call. The orchestrator owns transitions; the
// pipeline only reads it to gate state-dependent rules.
type CallState int

const (
	// StateGreeting is the opening turn before the purpose is delivered.
	StateGreeting CallState = iota

	// StateInteraction is the main body of the call.
	StateInteraction

	// StateClosing means the call is wrapping up; only sign-off turns remain.
	StateClosing

	// StateEnded means the call is over and no further turns are processed.
	StateEnded
)

// String returns a human-readable call state.
func (s CallState) String() string {
	switch s {
	case StateGreeting:
		return "greeting"
	case StateInteraction:
		return "interaction"
	case StateClosing:
		return "closing"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Context carries everything a rule may consult for one utterance. It is
// constructed fresh per Apply invocation and never persisted.
type Context struct {
	// State is the call phase at the time the utterance is produced.
	State CallState

	// Tone is the resolved tone preset of the active voice profile.
	Tone voice.TonePreset

	// StartedAt is when the call began.
	StartedAt time.Time

	// HasDeliveredPurpose is true once the campaign purpose has been stated.
	HasDeliveredPurpose bool

	// PurposeDeliveredAt is when the purpose was last stated. Zero until
	// HasDeliveredPurpose becomes true.
	PurposeDeliveredAt time.Time

	// CampaignPurpose is the reason for the call, e.g. "your upcoming
	// appointment". Empty disables the purpose-reminder rule.
	CampaignPurpose string

	// LastUserUtterance is the caller's most recent transcribed turn.
	LastUserUtterance string

	// ExitRequested is set when the caller asked to end the call.
	ExitRequested bool

	// NeedsHumanFollowup is set when a human callback has been promised.
	NeedsHumanFollowup bool

	// IsFirstResponse marks the first agent turn of the call.
	IsFirstResponse bool

	// IsClosing marks a sign-off turn.
	IsClosing bool

	// IsClarification marks a turn that only asks the caller to repeat.
	IsClarification bool

	// CallerName is how the agent addresses the caller, if known.
	CallerName string

	// BusinessName is the business the agent represents.
	BusinessName string

	// AgentName is the agent's spoken name, used for identity disclosure
	// and for scrubbing banned self-references.
	AgentName string
}

// agentName returns the configured agent name or the package default.
func (c Context) agentName() string {
	if c.AgentName != "" {
		return c.AgentName
	}
	return "Alex"
}

// businessName returns the configured business name or a neutral default.
func (c Context) businessName() string {
	if c.BusinessName != "" {
		return c.BusinessName
	}
	return "our business"
}

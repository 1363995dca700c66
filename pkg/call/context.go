// Package call ties the finalization pipeline together per active call:
// it routes each caller turn through the scenario resolver or the dialogue
// engine, applies the persona rules, hands the result to speech synthesis,
// and owns cancellation of in-flight audio on interruption or call end.
package call

import "time"

// CallContext is the per-call mutable state. It is owned exclusively by the
// Session for that call and must never be mutated from outside the session's
// processing path; cross-call data races are eliminated by construction.
type CallContext struct {
	// StartedAt is when the call began.
	StartedAt time.Time

	// HasDeliveredPurpose is true once the campaign purpose has been stated.
	HasDeliveredPurpose bool

	// PurposeDeliveredAt is when the purpose was stated. Set at most once,
	// and only after HasDeliveredPurpose becomes true.
	PurposeDeliveredAt time.Time

	// CampaignPurpose is the reason for the call. Empty disables
	// purpose reminders.
	CampaignPurpose string

	// LastUserUtterance is the caller's most recent transcribed turn.
	LastUserUtterance string

	// ExitRequested is set when the caller asked to end the call or a
	// safety-tagged fallback forced an exit.
	ExitRequested bool

	// NeedsHumanFollowup is set once a human callback has been promised.
	NeedsHumanFollowup bool

	// CallerName is how the agent addresses the caller, if known.
	CallerName string
}

// Identity is the agent-side identity spoken on every call.
type Identity struct {
	// AgentName is the agent's spoken name.
	AgentName string

	// BusinessName is the business the agent represents.
	BusinessName string

	// CallbackPhone is the number offered for callbacks.
	CallbackPhone string

	// BusinessHours is the spoken description of opening hours.
	BusinessHours string
}

// Package fallback provides the deterministic response library used when the
// scenario classifier detects an exceptional call condition.
//
// Resolution is a two-level dispatch: the scenario category selects a fixed
// sub-table, and the scenario type indexes into it. Resolve is total: an
// unknown type yields a library-wide safe default, and the normal category
// yields an empty response so the dialogue engine's own draft is used.
package fallback

import "strings"

// Category is the closed set of scenario categories produced by the
// external classifier.
type Category string

const (
	// CategoryAudioTechnical covers audio-quality and connection problems.
	CategoryAudioTechnical Category = "audio_technical"

	// CategoryCallerBehavior covers hostile, confused, or busy callers.
	CategoryCallerBehavior Category = "caller_behavior"

	// CategoryEmotionalSocial covers emotional distress and emergencies.
	CategoryEmotionalSocial Category = "emotional_social"

	// CategoryIdentityIssues covers wrong-person and minor-on-the-line cases.
	CategoryIdentityIssues Category = "identity_issues"

	// CategoryBusinessLogic covers questions outside the campaign's scope.
	CategoryBusinessLogic Category = "business_logic"

	// CategoryNormal means no exceptional condition was detected.
	CategoryNormal Category = "normal"
)

// Scenario is a detected call condition. Type may be empty when the
// classifier could only determine the category.
type Scenario struct {
	Category Category
	Type     string
}

// Tone hints how the response should be delivered.
type Tone string

const (
	ToneCalm         Tone = "calm"
	ToneEmpathetic   Tone = "empathetic"
	ToneProfessional Tone = "professional"
	TonePolite       Tone = "polite"
	ToneNeutral      Tone = "neutral"
)

// Response is a resolved fallback reply plus its side-effect flags.
// Placeholders are already substituted; the static templates are never mutated.
type Response struct {
	// Primary is the preferred reply text.
	Primary string

	// Alternatives are interchangeable variants of Primary, in preference order.
	Alternatives []string

	// Tone hints the delivery style.
	Tone Tone

	// ShouldLogKnowledgeGap marks the caller's question for later review.
	ShouldLogKnowledgeGap bool

	// ShouldOfferCallback indicates a human callback should be offered.
	ShouldOfferCallback bool

	// ShouldExit forces the session into its closing state. The dialogue
	// engine must not continue the call once this is set.
	ShouldExit bool
}

// IsEmpty reports whether the response carries no text, which happens only
// for the normal category.
func (r Response) IsEmpty() bool {
	return r.Primary == "" && len(r.Alternatives) == 0
}

// Placeholders supplies per-call values substituted into response templates.
// Empty fields fall back to fixed defaults.
type Placeholders struct {
	// DisplayName is how the agent addresses the caller. Default "there".
	DisplayName string

	// BusinessName is the business the agent represents. Default "our business".
	BusinessName string

	// Phone is the callback number. Default "our main line".
	Phone string

	// Purpose is the campaign purpose. Default "your account".
	Purpose string

	// Hours is the spoken business hours. Default "our regular business hours".
	Hours string
}

// Placeholder defaults used when the call context does not supply a value.
const (
	DefaultDisplayName  = "there"
	DefaultBusinessName = "our business"
	DefaultPhone        = "our main line"
	DefaultPurpose      = "your account"
	DefaultHours        = "our regular business hours"
)

// withDefaults fills empty fields with the documented defaults.
func (p Placeholders) withDefaults() Placeholders {
	if p.DisplayName == "" {
		p.DisplayName = DefaultDisplayName
	}
	if p.BusinessName == "" {
		p.BusinessName = DefaultBusinessName
	}
	if p.Phone == "" {
		p.Phone = DefaultPhone
	}
	if p.Purpose == "" {
		p.Purpose = DefaultPurpose
	}
	if p.Hours == "" {
		p.Hours = DefaultHours
	}
	return p
}

// substitute replaces placeholder tokens in text. Token matching is
// case-insensitive; values are inserted verbatim.
func (p Placeholders) substitute(text string) string {
	if !strings.Contains(text, "{") {
		return text
	}
	for token, value := range map[string]string{
		"{displayname}":  p.DisplayName,
		"{businessname}": p.BusinessName,
		"{phone}":        p.Phone,
		"{purpose}":      p.Purpose,
		"{hours}":        p.Hours,
	} {
		text = replaceFold(text, token, value)
	}
	return text
}

// replaceFold replaces every case-insensitive occurrence of token with value.
// token must already be lower case.
func replaceFold(text, token, value string) string {
	lower := strings.ToLower(text)
	var b strings.Builder
	start := 0
	for {
		i := strings.Index(lower[start:], token)
		if i < 0 {
			b.WriteString(text[start:])
			return b.String()
		}
		i += start
		b.WriteString(text[start:i])
		b.WriteString(value)
		start = i + len(token)
	}
}

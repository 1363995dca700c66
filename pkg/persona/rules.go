package persona

import (
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"
)

// Ellipsis is appended when brevity enforcement truncates an utterance.
const Ellipsis = "…"

// politeInjectionChance is the fraction of unpolite utterances that get a
// politeness prefix.
const politeInjectionChance = 0.30

// reminderPrependChance is the fraction of purpose reminders placed at the
// start of the utterance; the rest are spliced after the first sentence.
const reminderPrependChance = 0.30

// Purpose-reminder thresholds.
const (
	reminderMinCallAge      = 120 * time.Second
	reminderMinSinceLastSay = 30 * time.Second
)

// Pipeline applies the persona rules to outgoing utterances. It is safe for
// concurrent use across call sessions; the rand source is the only mutable
// state and is guarded by rngMu.
type Pipeline struct {
	logger *slog.Logger
	rngMu  sync.Mutex
	rng    *rand.Rand
	now    func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithRand sets the random source used for probabilistic injections. Tests
// supply a seeded source to make Apply deterministic.
func WithRand(rng *rand.Rand) Option {
	return func(p *Pipeline) {
		p.rng = rng
	}
}

// WithClock overrides the time source used by time-gated rules.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// NewPipeline creates a persona rule pipeline.
func NewPipeline(opts ...Option) *Pipeline {
	p := &Pipeline{
		logger: slog.Default().With("component", "persona"),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Apply runs every persona rule, in fixed order, over one utterance.
// The order is a contract; see the package comment.
func (p *Pipeline) Apply(text string, ctx Context) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return text
	}

	text = p.softenCommands(text)
	text = p.guaranteeHonesty(text)
	text = p.enforceBrevity(text, ctx)
	text = p.oneQuestionOnly(text)
	text = p.remindPurpose(text, ctx)
	text = p.discloseIdentity(text, ctx)
	text = p.respectBoundaries(text, ctx)
	text = p.cleanClosing(text, ctx)

	// Always last: nothing added above may survive with a banned phrase.
	text = p.scrubBannedPhrases(text, ctx)

	return text
}

// softenCommands replaces command-toned phrases with softer equivalents and
// occasionally prepends a politeness phrase when none is present.
func (p *Pipeline) softenCommands(text string) string {
	for phrase, softer := range commandReplacements {
		text = replaceFold(text, phrase, softer)
	}

	if !containsAny(strings.ToLower(text), politeMarkers) && p.chance(politeInjectionChance) {
		text = p.pick(politePrefixes) + text
	}
	return text
}

// guaranteeHonesty appends a follow-up commitment whenever the text admits
// uncertainty without already promising follow-up.
func (p *Pipeline) guaranteeHonesty(text string) string {
	lower := strings.ToLower(text)
	if containsAny(lower, uncertaintyMarkers) && !containsAny(lower, followupMarkers) {
		text = strings.TrimRight(text, " ") + followupCommitment
	}
	return text
}

// enforceBrevity keeps the utterance within three sentences' worth of the
// tone preset's character budget. Fillers are stripped first; if the text is
// still over budget it is truncated at the last sentence boundary that fits,
// never mid-sentence, and an ellipsis is appended.
func (p *Pipeline) enforceBrevity(text string, ctx Context) string {
	budget := 3 * ctx.Tone.MaxSentenceLength
	if budget <= 0 || len([]rune(text)) <= budget {
		return text
	}

	for _, filler := range fillerQualifiers {
		text = replaceFold(text, filler, "")
	}
	text = strings.Join(strings.Fields(text), " ")
	if len([]rune(text)) <= budget {
		return text
	}

	truncated := truncateAtSentence(text, budget)
	if truncated == text {
		return text
	}

	p.logger.Debug("utterance truncated for brevity",
		"budget", budget,
		"original_len", len([]rune(text)),
		"truncated_len", len([]rune(truncated)),
	)
	return truncated + Ellipsis
}

// oneQuestionOnly keeps the first question and converts later question
// marks to periods when the text asks too many at once.
func (p *Pipeline) oneQuestionOnly(text string) string {
	if strings.Count(text, "?") <= 2 {
		return text
	}

	first := strings.Index(text, "?")
	head := text[:first+1]
	tail := strings.ReplaceAll(text[first+1:], "?", ".")
	return head + tail
}

// remindPurpose re-injects the campaign purpose mid-call. Only active during
// interaction, after the purpose has been delivered, once the call is over
// two minutes old and the purpose has not been restated for thirty seconds.
func (p *Pipeline) remindPurpose(text string, ctx Context) string {
	if ctx.State != StateInteraction ||
		!ctx.HasDeliveredPurpose ||
		ctx.PurposeDeliveredAt.IsZero() ||
		ctx.CampaignPurpose == "" {
		return text
	}

	now := p.now()
	if now.Sub(ctx.StartedAt) <= reminderMinCallAge ||
		now.Sub(ctx.PurposeDeliveredAt) <= reminderMinSinceLastSay {
		return text
	}

	reminder := "Just to circle back, I'm calling about " + ctx.CampaignPurpose + "."
	if p.chance(reminderPrependChance) {
		return reminder + " " + text
	}

	if i := firstSentenceEnd(text); i > 0 && i < len(text) {
		return text[:i] + " " + reminder + text[i:]
	}
	return text + " " + reminder
}

// discloseIdentity prepends a one-sentence AI disclosure when the caller's
// last utterance challenged the agent's identity and the reply does not
// already self-identify.
func (p *Pipeline) discloseIdentity(text string, ctx Context) string {
	utterance := strings.ToLower(ctx.LastUserUtterance)
	if !containsAny(utterance, identityChallenges) {
		return text
	}
	if containsAny(strings.ToLower(text), disclosureMarkers) {
		return text
	}

	disclosure := "Just so you know, I'm " + ctx.agentName() +
		", a virtual assistant for " + ctx.businessName() + ". "
	return disclosure + text
}

// respectBoundaries guarantees the text acknowledges an exit request and
// confirms a promised human follow-up.
func (p *Pipeline) respectBoundaries(text string, ctx Context) string {
	lower := strings.ToLower(text)
	if ctx.ExitRequested && !containsAny(lower, exitAcknowledgments) {
		text += exitAcknowledgment
		lower = strings.ToLower(text)
	}
	if ctx.NeedsHumanFollowup && !containsAny(lower, followupMarkers) {
		text += followupConfirmation
	}
	return text
}

// cleanClosing appends a sign-off to closing turns that lack one.
func (p *Pipeline) cleanClosing(text string, ctx Context) string {
	if !ctx.IsClosing {
		return text
	}
	if containsAny(strings.ToLower(text), signOffMarkers) {
		return text
	}
	return text + p.pick(signOffs)
}

// scrubBannedPhrases replaces disallowed self-references with the agent's
// name. This is the pipeline's closing guarantee: it runs after every other
// rule so nothing they introduce can reach synthesis unscrubbed.
func (p *Pipeline) scrubBannedPhrases(text string, ctx Context) string {
	name := ctx.agentName()
	for _, phrase := range bannedPhrases {
		text = replaceFold(text, phrase, name)
	}
	return text
}

// chance returns true with the given probability.
func (p *Pipeline) chance(probability float64) bool {
	p.rngMu.Lock()
	defer p.rngMu.Unlock()
	return p.rng.Float64() < probability
}

// pick returns a uniformly random element of options.
func (p *Pipeline) pick(options []string) string {
	p.rngMu.Lock()
	defer p.rngMu.Unlock()
	return options[p.rng.Intn(len(options))]
}

// containsAny reports whether lower contains any of the markers.
func containsAny(lower string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// replaceFold replaces every case-insensitive occurrence of phrase with
// replacement. phrase must be lower case.
func replaceFold(text, phrase, replacement string) string {
	lower := strings.ToLower(text)
	var b strings.Builder
	start := 0
	for {
		i := strings.Index(lower[start:], phrase)
		if i < 0 {
			b.WriteString(text[start:])
			return b.String()
		}
		i += start
		b.WriteString(text[start:i])
		b.WriteString(replacement)
		start = i + len(phrase)
	}
}

// firstSentenceEnd returns the byte index just past the first sentence
// terminator, or -1 if the text has no sentence boundary.
func firstSentenceEnd(text string) int {
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '.', '!', '?':
			// Treat the terminator as a boundary only when followed by a
			// space or end of text, so decimals and abbreviations survive.
			if i+1 == len(text) || text[i+1] == ' ' {
				return i + 1
			}
		}
	}
	return -1
}

// truncateAtSentence returns the longest prefix of whole sentences that fits
// within budget runes. If not even the first sentence fits, the first
// sentence is kept whole rather than cut mid-sentence.
func truncateAtSentence(text string, budget int) string {
	runes := []rune(text)
	lastFit := -1
	count := 0
	for i, r := range runes {
		count++
		if r == '.' || r == '!' || r == '?' {
			if i+1 == len(runes) || runes[i+1] == ' ' {
				if count <= budget {
					lastFit = i + 1
				} else {
					break
				}
			}
		}
	}
	if lastFit < 0 {
		// First sentence alone exceeds the budget; keep it whole.
		if end := firstSentenceEnd(text); end > 0 {
			return strings.TrimRight(text[:end], " ")
		}
		return text
	}
	return strings.TrimRight(string(runes[:lastFit]), " ")
}

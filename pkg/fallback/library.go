package fallback

import (
	"log/slog"
	"math/rand"
	"sync"
	"time"
)

// Library resolves detected scenarios to safe canned responses. It is
// constructed once at startup and is safe for concurrent use across call
// sessions; the underlying tables are read-only. The rand source is the
// only mutable state and is guarded by rngMu.
type Library struct {
	logger *slog.Logger
	rngMu  sync.Mutex
	rng    *rand.Rand
}

// Option configures a Library.
type Option func(*Library)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Library) {
		l.logger = logger
	}
}

// WithRand sets the random source used by ResolveRandom. Tests supply a
// seeded source to make variant selection deterministic.
func WithRand(rng *rand.Rand) Option {
	return func(l *Library) {
		l.rng = rng
	}
}

// NewLibrary creates a response library.
func NewLibrary(opts ...Option) *Library {
	l := &Library{
		logger: slog.Default().With("component", "fallback"),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Resolve returns the response for a detected scenario with placeholders
// substituted. It is total: the normal category yields an empty response,
// and any unknown category or type yields the library default. It never
// fails and never returns malformed text.
func (l *Library) Resolve(s Scenario, ph Placeholders) Response {
	if s.Category == CategoryNormal {
		return Response{}
	}

	table, ok := tables[s.Category]
	if !ok {
		l.logger.Warn("unknown scenario category, using default response",
			"category", string(s.Category),
		)
		return instantiate(defaultResponse, ph)
	}

	tmpl, ok := table[s.Type]
	if !ok {
		l.logger.Debug("scenario type not in table, using default response",
			"category", string(s.Category),
			"type", s.Type,
		)
		return instantiate(defaultResponse, ph)
	}

	return instantiate(tmpl, ph)
}

// ResolveRandom resolves the scenario and returns one variant chosen
// uniformly at random from the primary and its alternatives, skipping any
// empty strings. This is the only source of non-determinism in the resolver.
// For the normal category it returns "".
func (l *Library) ResolveRandom(s Scenario, ph Placeholders) (string, Response) {
	resp := l.Resolve(s, ph)
	if resp.IsEmpty() {
		return "", resp
	}

	variants := make([]string, 0, 1+len(resp.Alternatives))
	if resp.Primary != "" {
		variants = append(variants, resp.Primary)
	}
	for _, alt := range resp.Alternatives {
		if alt != "" {
			variants = append(variants, alt)
		}
	}
	if len(variants) == 0 {
		return resp.Primary, resp
	}

	l.rngMu.Lock()
	i := l.rng.Intn(len(variants))
	l.rngMu.Unlock()

	return variants[i], resp
}

// instantiate substitutes placeholders into a template without mutating it.
func instantiate(tmpl Response, ph Placeholders) Response {
	ph = ph.withDefaults()

	out := tmpl
	out.Primary = ph.substitute(tmpl.Primary)
	if len(tmpl.Alternatives) > 0 {
		out.Alternatives = make([]string, len(tmpl.Alternatives))
		for i, alt := range tmpl.Alternatives {
			out.Alternatives[i] = ph.substitute(alt)
		}
	}
	return out
}

// SafetyTypes lists the scenario types that always force a call exit.
func SafetyTypes() []string {
	return []string{TypeEmergency, TypeUnsubscribeDNC, TypeChild, TypeNotIntendedCustomer}
}

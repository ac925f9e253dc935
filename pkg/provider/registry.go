package provider

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Config holds the per-provider registration settings.
type Config struct {
	// Enabled providers participate in delivery. Disabled ones stay
	// registered so they can be toggled at runtime and still show up in
	// health reports.
	Enabled bool
	// Priority orders candidates during fallback. Lower values are tried
	// first.
	Priority int
}

// Health is a point-in-time view of one provider for the observability
// surface. Healthy means the last availability probe passed and the circuit
// is not open.
type Health struct {
	Name                string    `json:"name"`
	Kind                Kind      `json:"kind"`
	Enabled             bool      `json:"enabled"`
	Healthy             bool      `json:"healthy"`
	CircuitState        string    `json:"circuit_state"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	Attempts            uint64    `json:"attempts"`
	SuccessRate         float64   `json:"success_rate"`
	AvgLatencyMS        int64     `json:"avg_latency_ms"`
	LastSuccess         time.Time `json:"last_success,omitzero"`
	LastFailure         time.Time `json:"last_failure,omitzero"`
}

type entry struct {
	provider Provider
	breaker  *CircuitBreaker

	mu           sync.Mutex
	enabled      bool
	priority     int
	attempts     uint64
	successes    uint64
	totalLatency time.Duration
	lastSuccess  time.Time
	lastFailure  time.Time
	unavailable  bool
	lastProbeErr error
}

// Registry owns the provider set, one circuit breaker per provider, and the
// per-provider delivery statistics. It is injected into the Manager rather
// than living in package-level state, so two engines in one process never
// share breaker state.
type Registry struct {
	mu         sync.RWMutex
	entries    map[string]*entry
	breakerCfg BreakerConfig
}

// NewRegistry creates an empty registry. All providers registered on it
// share the same breaker configuration.
func NewRegistry(breakerCfg BreakerConfig) *Registry {
	return &Registry{
		entries:    make(map[string]*entry),
		breakerCfg: breakerCfg.withDefaults(),
	}
}

// Register adds a provider under its own name.
func (r *Registry) Register(p Provider, cfg Config) error {
	name := p.Name()
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrUnknownProvider)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateProvider, name)
	}
	r.entries[name] = &entry{
		provider: p,
		breaker:  NewCircuitBreaker(r.breakerCfg),
		enabled:  cfg.Enabled,
		priority: cfg.Priority,
	}
	return nil
}

// SetEnabled toggles a provider at runtime.
func (r *Registry) SetEnabled(name string, enabled bool) error {
	e, err := r.get(name)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.enabled = enabled
	e.mu.Unlock()
	return nil
}

func (r *Registry) get(name string) (*entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return e, nil
}

// candidates returns the enabled entries ordered by ascending priority,
// with registration-name order as a stable tiebreaker.
func (r *Registry) candidates() []*entry {
	r.mu.RLock()
	all := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		all = append(all, e)
	}
	r.mu.RUnlock()

	enabled := all[:0]
	for _, e := range all {
		e.mu.Lock()
		on := e.enabled
		e.mu.Unlock()
		if on {
			enabled = append(enabled, e)
		}
	}
	sort.SliceStable(enabled, func(i, j int) bool {
		a, b := enabled[i], enabled[j]
		ap, bp := a.prio(), b.prio()
		if ap != bp {
			return ap < bp
		}
		return a.provider.Name() < b.provider.Name()
	})
	return enabled
}

func (e *entry) prio() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.priority
}

// recordAttempt folds one delivery attempt into the entry's statistics and
// its breaker. Permanent failures count as failed attempts but are
// breaker-neutral: a dead device token says nothing about the gateway. They
// still release a half-open trial slot so the next delivery can probe.
func (e *entry) recordAttempt(success, permanent bool, latency time.Duration) {
	e.mu.Lock()
	e.attempts++
	e.totalLatency += latency
	now := time.Now()
	if success {
		e.successes++
		e.lastSuccess = now
	} else {
		e.lastFailure = now
	}
	e.mu.Unlock()

	switch {
	case success:
		e.breaker.RecordSuccess()
	case permanent:
		e.breaker.RecordNeutral()
	default:
		e.breaker.RecordFailure()
	}
}

// setAvailability records the outcome of a background health probe.
func (e *entry) setAvailability(probeErr error) {
	e.mu.Lock()
	e.unavailable = probeErr != nil
	e.lastProbeErr = probeErr
	e.mu.Unlock()
}

// available reports whether the last background probe passed. Entries that
// have never been probed count as available.
func (e *entry) available() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.unavailable
}

func (e *entry) health() Health {
	stats := e.breaker.Stats()

	e.mu.Lock()
	defer e.mu.Unlock()

	h := Health{
		Name:                e.provider.Name(),
		Kind:                e.provider.Capabilities().Kind,
		Enabled:             e.enabled,
		Healthy:             !e.unavailable && stats.State != CircuitOpen.String(),
		CircuitState:        stats.State,
		ConsecutiveFailures: stats.ConsecutiveFailures,
		Attempts:            e.attempts,
		LastSuccess:         e.lastSuccess,
		LastFailure:         e.lastFailure,
	}
	if e.attempts > 0 {
		h.SuccessRate = float64(e.successes) / float64(e.attempts)
		h.AvgLatencyMS = (e.totalLatency / time.Duration(e.attempts)).Milliseconds()
	}
	return h
}

// Health reports every registered provider sorted by name.
func (r *Registry) Health() []Health {
	r.mu.RLock()
	all := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		all = append(all, e)
	}
	r.mu.RUnlock()

	out := make([]Health, 0, len(all))
	for _, e := range all {
		out = append(out, e.health())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ProviderHealth reports a single provider.
func (r *Registry) ProviderHealth(name string) (Health, error) {
	e, err := r.get(name)
	if err != nil {
		return Health{}, err
	}
	return e.health(), nil
}

package provider

import (
	"sync"
	"time"
)

// CircuitState represents the current state of a provider's circuit breaker.
type CircuitState int

const (
	// CircuitClosed allows calls to pass through.
	CircuitClosed CircuitState = iota
	// CircuitOpen blocks all calls until the cooldown elapses.
	CircuitOpen
	// CircuitHalfOpen allows exactly one trial call to test recovery.
	CircuitHalfOpen
)

// String returns the string representation of the circuit state.
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig tunes circuit breaker behavior. Zero values fall back to
// defaults suitable for push gateways.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive transient failures that
	// opens the circuit.
	FailureThreshold int `env:"BREAKER_FAILURE_THRESHOLD" envDefault:"5"`
	// SuccessThreshold is the number of half-open successes needed to close.
	SuccessThreshold int `env:"BREAKER_SUCCESS_THRESHOLD" envDefault:"1"`
	// Cooldown is how long the circuit stays open before the first trial.
	Cooldown time.Duration `env:"BREAKER_COOLDOWN" envDefault:"60s"`
	// MaxCooldown caps the exponential growth applied when a trial fails.
	MaxCooldown time.Duration `env:"BREAKER_MAX_COOLDOWN" envDefault:"10m"`
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = 1
	}
	if c.Cooldown <= 0 {
		c.Cooldown = 60 * time.Second
	}
	if c.MaxCooldown < c.Cooldown {
		c.MaxCooldown = 10 * time.Minute
	}
	return c
}

// CircuitBreaker guards one provider against being hammered while it fails.
// Safe for concurrent use.
//
// Half-open admits exactly one in-flight trial call: concurrent deliveries
// racing into a recovering provider would otherwise all count as trials and
// could flap the circuit. A failed trial reopens the circuit with a doubled
// cooldown, capped at MaxCooldown; a recovery resets the cooldown to its
// base value.
type CircuitBreaker struct {
	mu sync.Mutex

	cfg BreakerConfig

	state        CircuitState
	failures     int
	successCount int
	cooldown     time.Duration
	openedAt     time.Time
	lastFailure  time.Time
	probing      bool
}

// NewCircuitBreaker creates a breaker in the closed state.
func NewCircuitBreaker(cfg BreakerConfig) *CircuitBreaker {
	cfg = cfg.withDefaults()
	return &CircuitBreaker{
		cfg:      cfg,
		state:    CircuitClosed,
		cooldown: cfg.Cooldown,
	}
}

// Allow reports whether a call may proceed. It may transition open circuits
// to half-open once the cooldown has elapsed, and in half-open it admits a
// caller only while no trial is in flight. Every admitted call must be
// matched with RecordSuccess, RecordFailure, or RecordNeutral.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return true

	case CircuitOpen:
		if time.Since(cb.openedAt) >= cb.cooldown {
			cb.state = CircuitHalfOpen
			cb.successCount = 0
			cb.probing = true
			return true
		}
		return false

	case CircuitHalfOpen:
		if cb.probing {
			return false
		}
		cb.probing = true
		return true

	default:
		return false
	}
}

// RecordSuccess records a successful call and may close the circuit.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		cb.failures = 0

	case CircuitHalfOpen:
		cb.probing = false
		cb.successCount++
		if cb.successCount >= cb.cfg.SuccessThreshold {
			cb.state = CircuitClosed
			cb.failures = 0
			cb.successCount = 0
			cb.cooldown = cb.cfg.Cooldown
		}
	}
}

// RecordFailure records a failed call and may open the circuit.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.lastFailure = time.Now()

	switch cb.state {
	case CircuitClosed:
		cb.failures++
		if cb.failures >= cb.cfg.FailureThreshold {
			cb.state = CircuitOpen
			cb.openedAt = cb.lastFailure
		}

	case CircuitHalfOpen:
		cb.probing = false
		cb.state = CircuitOpen
		cb.openedAt = cb.lastFailure
		cb.failures = cb.cfg.FailureThreshold
		cb.successCount = 0
		cb.cooldown = min(cb.cooldown*2, cb.cfg.MaxCooldown)
	}
}

// RecordNeutral releases an admitted call without judging the provider.
// Permanent request errors land here: the gateway answered, so the call says
// nothing about provider health, but a half-open trial slot must still be
// freed or no further trial could ever be admitted.
func (cb *CircuitBreaker) RecordNeutral() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == CircuitHalfOpen {
		cb.probing = false
	}
}

// State returns the current state, accounting for the automatic open to
// half-open transition Allow would make.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == CircuitOpen && time.Since(cb.openedAt) >= cb.cooldown {
		return CircuitHalfOpen
	}
	return cb.state
}

// Reset returns the breaker to a pristine closed state.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = CircuitClosed
	cb.failures = 0
	cb.successCount = 0
	cb.cooldown = cb.cfg.Cooldown
	cb.openedAt = time.Time{}
	cb.lastFailure = time.Time{}
	cb.probing = false
}

// CircuitStats provides visibility into breaker state for monitoring.
type CircuitStats struct {
	State               string
	ConsecutiveFailures int
	Cooldown            time.Duration
	LastFailure         time.Time
}

// Stats returns a snapshot of the breaker.
func (cb *CircuitBreaker) Stats() CircuitStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return CircuitStats{
		State:               cb.state.String(),
		ConsecutiveFailures: cb.failures,
		Cooldown:            cb.cooldown,
		LastFailure:         cb.lastFailure,
	}
}

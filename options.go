package notifykit

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/audit"
	"github.com/dmitrymomot/notifykit/pkg/content"
	"github.com/dmitrymomot/notifykit/pkg/prefs"
	"github.com/dmitrymomot/notifykit/pkg/presence"
	"github.com/dmitrymomot/notifykit/pkg/provider"
	"github.com/dmitrymomot/notifykit/pkg/queue"
)

// Option configures Engine construction.
type Option func(*Engine)

// WithQueueStorage backs the notification queue with the given storage.
func WithQueueStorage(s queue.Storage) Option {
	return func(e *Engine) {
		if s != nil {
			e.storage = s
		}
	}
}

// WithPreferencesStore backs user preferences with the given store.
func WithPreferencesStore(s prefs.Store) Option {
	return func(e *Engine) {
		if s != nil {
			e.prefStore = s
		}
	}
}

// WithUsageStore backs the frequency-cap meters with the given store.
func WithUsageStore(s prefs.UsageStore) Option {
	return func(e *Engine) {
		if s != nil {
			e.usage = s
		}
	}
}

// WithPresenceTracker backs user reachability with the given tracker.
func WithPresenceTracker(t presence.Tracker) Option {
	return func(e *Engine) {
		if t != nil {
			e.tracker = t
		}
	}
}

// WithAuditStorage backs the delivery audit trail with the given storage.
func WithAuditStorage(s audit.Storage) Option {
	return func(e *Engine) {
		if s != nil {
			e.trail = s
		}
	}
}

// WithContentBuilder replaces the embedded notification catalog.
func WithContentBuilder(b *content.Builder) Option {
	return func(e *Engine) {
		if b != nil {
			e.builder = b
		}
	}
}

// WithProvider registers a delivery channel. Register one option per
// provider; priority orders the fallback walk, lower first.
func WithProvider(p provider.Provider, cfg provider.Config) Option {
	return func(e *Engine) {
		if p != nil {
			e.registrations = append(e.registrations, registration{provider: p, config: cfg})
		}
	}
}

// WithQueueConfig applies queue tuning: sweep cadence, batch sizes, worker
// count, backoff schedule, retry and TTL defaults.
func WithQueueConfig(cfg queue.Config) Option {
	return func(e *Engine) {
		e.queueCfg = cfg
	}
}

// WithBreakerConfig applies the circuit-breaker settings shared by all
// registered providers.
func WithBreakerConfig(cfg provider.BreakerConfig) Option {
	return func(e *Engine) {
		e.breakerCfg = cfg
	}
}

// WithPreferenceDefaults sets what preference lookups resolve to for users
// who never saved any. It applies only when the engine constructs its own
// preference store; injected stores carry their own defaults.
func WithPreferenceDefaults(cfg prefs.Config) Option {
	return func(e *Engine) {
		e.prefsDefaults = cfg.Defaults()
	}
}

// WithAttemptTimeout bounds every single provider call.
func WithAttemptTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.attemptTimeout = d
		}
	}
}

// WithHealthRefreshInterval sets how often provider availability is probed
// by Run.
func WithHealthRefreshInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.healthInterval = d
		}
	}
}

// WithProbeTimeout bounds one provider availability probe.
func WithProbeTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.probeTimeout = d
		}
	}
}

// WithLogger sets the logger shared by the engine and the components it
// constructs.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClock overrides time.Now for the engine and every in-memory backend
// it constructs, so tests control scheduling, TTLs, and rolling windows
// from one place.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

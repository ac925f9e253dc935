package notifykit

import (
	"github.com/dmitrymomot/notifykit/pkg/config"
	"github.com/dmitrymomot/notifykit/pkg/ingest"
	"github.com/dmitrymomot/notifykit/pkg/prefs"
	"github.com/dmitrymomot/notifykit/pkg/presence"
	"github.com/dmitrymomot/notifykit/pkg/provider"
	"github.com/dmitrymomot/notifykit/pkg/queue"
)

// Config aggregates every tunable the engine and its companions read from
// the environment. Queue, Breaker, and Prefs feed the engine directly via
// WithConfig; Presence and Ingest configure the Redis tracker and the Kafka
// consumer, which are constructed by the caller and injected.
type Config struct {
	Queue    queue.Config
	Breaker  provider.BreakerConfig
	Prefs    prefs.Config
	Presence presence.RedisTrackerConfig
	Ingest   ingest.Config
}

// LoadConfig reads Config from the environment, loading .env first when
// present. Defaults cover every field, so an empty environment yields a
// working configuration.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// WithConfig applies the engine-facing parts of a loaded Config: queue
// tuning, breaker settings, and preference defaults.
func WithConfig(cfg Config) Option {
	return func(e *Engine) {
		e.queueCfg = cfg.Queue
		e.breakerCfg = cfg.Breaker
		e.prefsDefaults = cfg.Prefs.Defaults()
	}
}

package queue

import "time"

// Config holds the configuration for the notification queue
type Config struct {
	SweepInterval   time.Duration `env:"QUEUE_SWEEP_INTERVAL" envDefault:"5s"`
	RetryInterval   time.Duration `env:"QUEUE_RETRY_INTERVAL" envDefault:"30s"`
	CleanupInterval time.Duration `env:"QUEUE_CLEANUP_INTERVAL" envDefault:"1m"`
	BatchSize       int           `env:"QUEUE_BATCH_SIZE" envDefault:"100"`
	MaxConcurrent   int           `env:"QUEUE_MAX_CONCURRENT" envDefault:"10"`
	DispatchTimeout time.Duration `env:"QUEUE_DISPATCH_TIMEOUT" envDefault:"30s"`
	MaxAttempts     int           `env:"QUEUE_MAX_ATTEMPTS" envDefault:"3"`
	BackoffBase     time.Duration `env:"QUEUE_BACKOFF_BASE" envDefault:"30s"`
	BackoffCap      time.Duration `env:"QUEUE_BACKOFF_CAP" envDefault:"1h"`
	DefaultTTL      time.Duration `env:"QUEUE_DEFAULT_TTL" envDefault:"720h"`
	Retention       time.Duration `env:"QUEUE_RETENTION" envDefault:"720h"`
}

// Options converts the configuration into processor options.
func (c Config) Options() []ProcessorOption {
	return []ProcessorOption{
		WithSweepInterval(c.SweepInterval),
		WithRetryInterval(c.RetryInterval),
		WithCleanupInterval(c.CleanupInterval),
		WithBatchSize(c.BatchSize),
		WithMaxConcurrent(c.MaxConcurrent),
		WithDispatchTimeout(c.DispatchTimeout),
		WithProcessorBackoff(Backoff{Base: c.BackoffBase, Cap: c.BackoffCap}),
		WithRetention(c.Retention),
	}
}

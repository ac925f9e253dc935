// Package config loads the engine's configuration from the environment:
// godotenv for .env files, caarlos0/env for parsing tagged structs, and a
// per-type cache so each config struct is parsed once per process.
//
// Every component that reads the environment goes through here — the root
// Config, the PG_*/REDIS_*/MONGODB_* backend settings, the Kafka consumer,
// and the operational HTTP server all declare env-tagged structs and call
// Load.
//
//	type workerSettings struct {
//	    Concurrency int    `env:"NOTIFY_WORKER_CONCURRENCY" envDefault:"4"`
//	    Queue       string `env:"NOTIFY_WORKER_QUEUE" envDefault:"notifications"`
//	}
//
//	var cfg workerSettings
//	if err := config.Load(&cfg); err != nil {
//	    return err
//	}
//
// Load reads the default .env file on first use; LoadEnv applies explicit
// files with later files taking precedence, which is how deployment profiles
// layer local overrides on top of a base profile.
//
// The cache keys on the struct's type name and is guarded by a sync.Once per
// type, so concurrent loads parse at most once. Tests that mutate the
// environment between loads use ResetCache or ForceReloadConfig to bypass it.
//
// Sentinel errors (ErrParsingConfig, ErrLoadingEnv, ErrNilPointer) are
// errors.Is-inspectable.
package config

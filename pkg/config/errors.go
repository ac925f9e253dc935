package config

import "errors"

var (
	// ErrParsingConfig wraps env.Parse failures, including missing required
	// variables.
	ErrParsingConfig = errors.New("failed to parse environment variables into config")

	// ErrConfigNotLoaded means the cache lost a race it should never lose;
	// it guards the post-parse lookup in Load.
	ErrConfigNotLoaded = errors.New("configuration has not been loaded")

	// ErrNilPointer rejects Load(nil).
	ErrNilPointer = errors.New("nil pointer provided to config loader")

	// ErrLoadingEnv wraps godotenv failures for unreadable env files.
	ErrLoadingEnv = errors.New("failed to load env file")
)

package httpserver

import "errors"

var (
	// ErrStart reports that the listener never came up.
	ErrStart = errors.New("failed to start HTTP server")
	// ErrShutdown reports that in-flight requests outlived the grace period.
	ErrShutdown = errors.New("failed to shutdown HTTP server gracefully")
)

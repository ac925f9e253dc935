package pg

import "context"

// logger is the slice of slog.Logger the migration runner needs. An interface
// keeps goose's log routing testable without a real slog handler.
type logger interface {
	InfoContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)
}

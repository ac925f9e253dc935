package audit

import "errors"

var (
	// ErrStorageNil indicates a nil storage was provided
	ErrStorageNil = errors.New("audit storage cannot be nil")

	// ErrInvalidEvent indicates the event data is invalid
	ErrInvalidEvent = errors.New("invalid audit event")

	// ErrStorageFailure wraps backend errors from storage implementations
	ErrStorageFailure = errors.New("audit storage failure")

	// ErrWriterClosed indicates the async writer was already shut down
	ErrWriterClosed = errors.New("audit writer is closed")
)

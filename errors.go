package notifykit

import "errors"

var (
	// ErrInvalidUserID indicates a zero user id was passed to Notify
	ErrInvalidUserID = errors.New("user id cannot be zero")

	// ErrInvalidEvent indicates an empty event name was passed to Notify
	ErrInvalidEvent = errors.New("event name cannot be empty")

	// ErrInvalidPriority indicates an unknown priority value
	ErrInvalidPriority = errors.New("invalid priority")

	// ErrEngineClosed indicates the engine was already shut down
	ErrEngineClosed = errors.New("engine is closed")
)

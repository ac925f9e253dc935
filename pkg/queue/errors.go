package queue

import "errors"

// Common errors
var (
	// ErrStorageNil is returned when a nil storage is provided
	ErrStorageNil = errors.New("storage cannot be nil")

	// ErrManagerNil is returned when a nil provider manager is provided
	ErrManagerNil = errors.New("provider manager cannot be nil")

	// ErrGateNil is returned when a nil preferences gate is provided
	ErrGateNil = errors.New("preferences gate cannot be nil")

	// ErrTrackerNil is returned when a nil presence tracker is provided
	ErrTrackerNil = errors.New("presence tracker cannot be nil")

	// ErrNotFound is returned when a notification does not exist
	ErrNotFound = errors.New("notification not found")

	// ErrInvalidNotification is returned when a notification fails validation
	ErrInvalidNotification = errors.New("invalid notification")

	// ErrDuplicateID is returned when creating a notification with an ID already stored
	ErrDuplicateID = errors.New("notification id already exists")

	// ErrNotClaimable is returned when a claim races another worker or the
	// notification is not in a due pending state
	ErrNotClaimable = errors.New("notification cannot be claimed")

	// ErrTerminal is returned when mutating a notification in a final state
	ErrTerminal = errors.New("notification is in a terminal state")

	// ErrInvalidTransition is returned when a status change is not allowed
	// from the notification's current state
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrStorageFailure wraps backend errors from storage implementations
	ErrStorageFailure = errors.New("notification storage failure")
)

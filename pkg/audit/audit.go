package audit

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Result classifies the outcome of one delivery attempt.
type Result string

const (
	// ResultDelivered marks an attempt the provider accepted.
	ResultDelivered Result = "delivered"
	// ResultFailed marks an attempt the provider rejected or that errored.
	ResultFailed Result = "failed"
	// ResultBlocked marks a notification the preferences gate stopped
	// before any provider was tried.
	ResultBlocked Result = "blocked"
)

// Valid checks if the result is one of the known outcomes.
func (r Result) Valid() bool {
	switch r {
	case ResultDelivered, ResultFailed, ResultBlocked:
		return true
	}
	return false
}

// Event is a single entry in the delivery audit trail. One event is written
// per provider attempt, plus one per gate-blocked notification, so the trail
// answers both "what did this user receive" and "why did nothing arrive".
type Event struct {
	ID uuid.UUID `json:"id"`
	// NotificationID is zero for blocked events; a blocked notification is
	// never persisted to the queue.
	NotificationID   uuid.UUID `json:"notification_id,omitempty"`
	UserID           uuid.UUID `json:"user_id"`
	NotificationType string    `json:"notification_type"`
	Provider         string    `json:"provider,omitempty"`
	Result           Result    `json:"result"`
	// Reason names the gate rule that blocked the notification.
	Reason string `json:"reason,omitempty"`
	// Error carries the provider error for failed attempts.
	Error     string    `json:"error,omitempty"`
	LatencyMS int64     `json:"latency_ms"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks if the event has all required fields.
func (e *Event) Validate() error {
	if e.UserID == uuid.Nil {
		return fmt.Errorf("%w: user id is required", ErrInvalidEvent)
	}
	if e.NotificationType == "" {
		return fmt.Errorf("%w: notification type is required", ErrInvalidEvent)
	}
	if !e.Result.Valid() {
		return fmt.Errorf("%w: unknown result %q", ErrInvalidEvent, e.Result)
	}
	return nil
}

// Delivered builds an event for a provider-accepted attempt.
func Delivered(notificationID, userID uuid.UUID, notifType, provider string, latency time.Duration) Event {
	return Event{
		ID:               uuid.New(),
		NotificationID:   notificationID,
		UserID:           userID,
		NotificationType: notifType,
		Provider:         provider,
		Result:           ResultDelivered,
		LatencyMS:        latency.Milliseconds(),
		CreatedAt:        time.Now(),
	}
}

// Failed builds an event for a rejected or errored attempt.
func Failed(notificationID, userID uuid.UUID, notifType, provider string, latency time.Duration, cause error) Event {
	e := Event{
		ID:               uuid.New(),
		NotificationID:   notificationID,
		UserID:           userID,
		NotificationType: notifType,
		Provider:         provider,
		Result:           ResultFailed,
		LatencyMS:        latency.Milliseconds(),
		CreatedAt:        time.Now(),
	}
	if cause != nil {
		e.Error = cause.Error()
	}
	return e
}

// Blocked builds an event for a notification the preferences gate stopped.
func Blocked(userID uuid.UUID, notifType, reason string) Event {
	return Event{
		ID:               uuid.New(),
		UserID:           userID,
		NotificationType: notifType,
		Result:           ResultBlocked,
		Reason:           reason,
		CreatedAt:        time.Now(),
	}
}

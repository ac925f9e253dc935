package queue

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the delivery lifecycle state of a notification.
type Status string

const (
	// StatusPending marks a notification waiting for delivery, including
	// scheduled notifications and those waiting out a retry backoff.
	StatusPending Status = "pending"
	// StatusProcessing marks a notification claimed by a worker.
	StatusProcessing Status = "processing"
	// StatusDelivered marks a notification accepted by a provider.
	StatusDelivered Status = "delivered"
	// StatusFailed marks a notification that exhausted all attempts.
	StatusFailed Status = "failed"
	// StatusExpired marks a notification whose TTL lapsed before delivery.
	StatusExpired Status = "expired"
	// StatusCancelled marks a notification withdrawn before delivery.
	StatusCancelled Status = "cancelled"
)

// Valid checks if the status is one of the known lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusDelivered, StatusFailed, StatusExpired, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether the status is final. Terminal notifications are
// immutable; storage rejects further transitions.
func (s Status) Terminal() bool {
	switch s {
	case StatusDelivered, StatusFailed, StatusExpired, StatusCancelled:
		return true
	}
	return false
}

// Priority orders competing notifications for the same user.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityNormal   Priority = "normal"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Valid checks if the priority is one of the known levels.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// rank maps priorities to a sortable weight, higher first.
func (p Priority) rank() int {
	switch p {
	case PriorityCritical:
		return 3
	case PriorityHigh:
		return 2
	case PriorityNormal:
		return 1
	default:
		return 0
	}
}

// Critical reports whether the priority bypasses quiet hours.
func (p Priority) Critical() bool {
	return p == PriorityCritical
}

// Notification is a single queued message with its full delivery state.
type Notification struct {
	ID       uuid.UUID         `json:"id"`
	UserID   uuid.UUID         `json:"user_id"`
	Type     string            `json:"type"`
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Data     map[string]string `json:"data,omitempty"`
	Priority Priority          `json:"priority"`

	// RequireConfirmation restricts delivery to providers that can confirm
	// receipt on a live connection.
	RequireConfirmation bool `json:"require_confirmation,omitempty"`
	// PreferredProvider is tried first when set and eligible.
	PreferredProvider string `json:"preferred_provider,omitempty"`
	// ExcludedProviders are skipped during provider selection.
	ExcludedProviders []string `json:"excluded_providers,omitempty"`

	CreatedAt    time.Time  `json:"created_at"`
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`

	AttemptCount int        `json:"attempt_count"`
	MaxAttempts  int        `json:"max_attempts"`
	NextRetryAt  *time.Time `json:"next_retry_at,omitempty"`
	LastError    *string    `json:"last_error,omitempty"`

	Status           Status     `json:"status"`
	DeliveredAt      *time.Time `json:"delivered_at,omitempty"`
	DeliveryProvider *string    `json:"delivery_provider,omitempty"`
}

// Due reports whether the notification is ready for a delivery attempt:
// neither its schedule nor its retry backoff points into the future.
func (n *Notification) Due(now time.Time) bool {
	if n.ScheduledFor != nil && n.ScheduledFor.After(now) {
		return false
	}
	if n.NextRetryAt != nil && n.NextRetryAt.After(now) {
		return false
	}
	return true
}

// ExpiredBy reports whether the notification's TTL lapsed before now.
// Notifications without an ExpiresAt never expire.
func (n *Notification) ExpiredBy(now time.Time) bool {
	return n.ExpiresAt != nil && n.ExpiresAt.Before(now)
}

// Backoff computes exponential retry delays capped at a maximum.
type Backoff struct {
	// Base is the delay after the first failed attempt.
	Base time.Duration
	// Cap bounds the delay growth.
	Cap time.Duration
}

// DefaultBackoff doubles a 30s base per attempt made (1m after the first
// failure, 2m after the second, ...) capped at one hour.
var DefaultBackoff = Backoff{Base: 30 * time.Second, Cap: time.Hour}

// Delay returns base * 2^attempt capped at Cap, where attempt is the
// number of delivery attempts already made. Attempt counts below one are
// treated as one.
func (b Backoff) Delay(attempt int) time.Duration {
	if b.Base <= 0 {
		b.Base = DefaultBackoff.Base
	}
	if b.Cap <= 0 {
		b.Cap = DefaultBackoff.Cap
	}
	if attempt < 1 {
		attempt = 1
	}
	d := b.Base
	for range attempt {
		d *= 2
		if d >= b.Cap {
			return b.Cap
		}
	}
	return d
}

// Stats summarizes the queue by lifecycle state. DeliveryRate and
// FailureRate are computed over notifications that reached Delivered or
// Failed; both are zero when no notification has reached either state.
type Stats struct {
	Total        int            `json:"total"`
	ByStatus     map[Status]int `json:"by_status"`
	DeliveryRate float64        `json:"delivery_rate"`
	FailureRate  float64        `json:"failure_rate"`
}

package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Storage persists notifications and enforces the delivery lifecycle:
//
//	Pending -> Processing -> Delivered | Failed | Pending (retry)
//	Pending -> Cancelled
//	any non-terminal -> Expired
//
// Terminal states are immutable. Implementations must apply every
// transition atomically so concurrent workers never double-deliver.
type Storage interface {
	// Create stores a new Pending notification. Zero ID, CreatedAt and
	// Status are filled in; the rest is validated as-is.
	Create(ctx context.Context, n *Notification) error

	// Get returns a notification by ID or ErrNotFound.
	Get(ctx context.Context, id uuid.UUID) (*Notification, error)

	// Claim atomically moves a due Pending notification to Processing and
	// returns it. Exactly one concurrent caller wins; the rest receive
	// ErrNotClaimable.
	Claim(ctx context.Context, id uuid.UUID) (*Notification, error)

	// Deliver marks a Processing notification Delivered, recording the
	// provider that accepted it. It reports false without error when the
	// notification was already Delivered, and ErrTerminal when it reached
	// another final state in the meantime.
	Deliver(ctx context.Context, id uuid.UUID, provider string) (bool, error)

	// Fail records a failed attempt on a Processing notification: the
	// attempt counter is incremented and the notification either returns
	// to Pending with NextRetryAt set per the backoff schedule, or becomes
	// Failed once MaxAttempts is reached. The updated notification is
	// returned. ErrTerminal is returned when the notification reached a
	// final state in the meantime.
	Fail(ctx context.Context, id uuid.UUID, cause string, backoff Backoff) (*Notification, error)

	// Defer reschedules a Pending or Processing notification to the given
	// time without consuming an attempt. Any retry backoff is cleared; the
	// new schedule subsumes it.
	Defer(ctx context.Context, id uuid.UUID, until time.Time) error

	// Cancel withdraws a Pending notification. Cancelling an already
	// cancelled notification is a no-op; an in-flight (Processing) one
	// returns ErrInvalidTransition.
	Cancel(ctx context.Context, id uuid.UUID) error

	// DueForDelivery returns Pending notifications ready for their first
	// attempt since the last failure cycle: schedule due, no retry backoff
	// pending. Ordered by priority, then oldest first. A non-positive
	// limit returns all.
	DueForDelivery(ctx context.Context, limit int) ([]*Notification, error)

	// DueForRetry returns Pending notifications whose retry backoff has
	// elapsed, ordered by priority, then oldest first.
	DueForRetry(ctx context.Context, limit int) ([]*Notification, error)

	// PendingForUser returns the user's due Pending notifications ordered
	// by priority, then oldest first.
	PendingForUser(ctx context.Context, userID uuid.UUID, limit int) ([]*Notification, error)

	// ExpireOverdue transitions every non-terminal notification whose
	// ExpiresAt has passed to Expired and returns the count.
	ExpireOverdue(ctx context.Context) (int, error)

	// PurgeTerminal deletes terminal notifications older than the given
	// age and returns the count removed.
	PurgeTerminal(ctx context.Context, olderThan time.Duration) (int, error)

	// Stats returns queue counters grouped by status.
	Stats(ctx context.Context) (Stats, error)
}

// normalize fills Create defaults and validates the notification.
func normalize(n *Notification, now time.Time) error {
	if n == nil {
		return fmt.Errorf("%w: nil notification", ErrInvalidNotification)
	}
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	if n.Status == "" {
		n.Status = StatusPending
	}
	if n.Priority == "" {
		n.Priority = PriorityNormal
	}

	var errs []error
	if n.UserID == uuid.Nil {
		errs = append(errs, errors.New("user id is required"))
	}
	if n.Type == "" {
		errs = append(errs, errors.New("notification type is required"))
	}
	if !n.Priority.Valid() {
		errs = append(errs, fmt.Errorf("unknown priority %q", n.Priority))
	}
	if n.Status != StatusPending {
		errs = append(errs, fmt.Errorf("new notifications must be pending, got %q", n.Status))
	}
	if n.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("max attempts must be at least 1, got %d", n.MaxAttempts))
	}
	if n.ExpiresAt != nil && !n.ExpiresAt.After(n.CreatedAt) {
		errs = append(errs, errors.New("expiry must be after creation"))
	}
	if len(errs) > 0 {
		return errors.Join(ErrInvalidNotification, errors.Join(errs...))
	}
	return nil
}

package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Storage persists and queries the delivery audit trail. Implementations
// must be safe for concurrent use.
type Storage interface {
	// Store writes one event.
	Store(ctx context.Context, event Event) error
	// StoreBatch writes many events in one round trip. Either all events
	// are stored or none.
	StoreBatch(ctx context.Context, events []Event) error
	// Query returns events matching the criteria, newest first.
	Query(ctx context.Context, criteria Criteria) ([]Event, error)
	// Count returns the number of events matching the criteria.
	Count(ctx context.Context, criteria Criteria) (int64, error)
}

// Criteria narrows a query. Zero-valued fields do not filter.
type Criteria struct {
	NotificationID   uuid.UUID
	UserID           uuid.UUID
	Provider         string
	NotificationType string
	Result           Result
	// From and To bound CreatedAt inclusively.
	From time.Time
	To   time.Time
	// Limit of 0 returns everything; Offset skips from the newest end.
	Limit  int
	Offset int
}

// matches reports whether the event passes every set filter.
func (c Criteria) matches(e Event) bool {
	if c.NotificationID != uuid.Nil && e.NotificationID != c.NotificationID {
		return false
	}
	if c.UserID != uuid.Nil && e.UserID != c.UserID {
		return false
	}
	if c.Provider != "" && e.Provider != c.Provider {
		return false
	}
	if c.NotificationType != "" && e.NotificationType != c.NotificationType {
		return false
	}
	if c.Result != "" && e.Result != c.Result {
		return false
	}
	if !c.From.IsZero() && e.CreatedAt.Before(c.From) {
		return false
	}
	if !c.To.IsZero() && e.CreatedAt.After(c.To) {
		return false
	}
	return true
}

package presence

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Kind identifies the connection type a user is reachable through.
type Kind string

const (
	// KindNone marks a user with no live delivery path.
	KindNone Kind = "none"
	// KindSocket marks a live in-app connection.
	KindSocket Kind = "socket"
	// KindPush marks a user reachable through a push-capable device session.
	KindPush Kind = "push"
)

// Status describes a user's current reachability.
type Status struct {
	UserID   uuid.UUID
	Online   bool
	Kind     Kind
	LastSeen time.Time
}

// Tracker records and reports user presence. Implementations must be safe
// for concurrent use. Looking up a user that was never tracked is not an
// error; it reports an offline Status.
type Tracker interface {
	// SetOnline marks the user reachable through the given connection kind.
	SetOnline(ctx context.Context, userID uuid.UUID, kind Kind) error
	// SetOffline clears the user's live delivery path.
	SetOffline(ctx context.Context, userID uuid.UUID) error
	// IsOnline reports whether the user currently has a live delivery path.
	IsOnline(ctx context.Context, userID uuid.UUID) (bool, error)
	// Get returns the user's full presence status.
	Get(ctx context.Context, userID uuid.UUID) (Status, error)
}

package device

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Platform identifies the push gateway a token belongs to.
type Platform string

const (
	PlatformExpo Platform = "expo"
	PlatformFCM  Platform = "fcm"
)

// Token is a registered push delivery target for one device.
type Token struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Platform  Platform
	Token     string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store persists device tokens. Implementations must be safe for concurrent
// use.
type Store interface {
	// Register upserts a token for the user. An existing (platform, token)
	// pair is moved to the given user and reactivated.
	Register(ctx context.Context, userID uuid.UUID, platform Platform, token string) (Token, error)
	// Deactivate marks a token dead without removing it, typically after a
	// gateway reported the device as unregistered.
	Deactivate(ctx context.Context, platform Platform, token string) error
	// Remove deletes a token, typically on logout.
	Remove(ctx context.Context, platform Platform, token string) error
	// ActiveForUser lists the user's active tokens for one platform.
	ActiveForUser(ctx context.Context, userID uuid.UUID, platform Platform) ([]Token, error)
}

func validPlatform(p Platform) bool {
	switch p {
	case PlatformExpo, PlatformFCM:
		return true
	}
	return false
}

package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind groups providers by transport so preference-level channel
// restrictions can be applied without inspecting concrete types.
type Kind string

const (
	// KindSocket delivers over a live bidirectional connection.
	KindSocket Kind = "socket"
	// KindPush delivers through a mobile push gateway.
	KindPush Kind = "push"
	// KindEmail delivers to the user's mailbox.
	KindEmail Kind = "email"
)

// Capabilities declares what a provider can do. Selection works off this
// declaration, never off runtime type inspection.
type Capabilities struct {
	Kind Kind
	// Confirms reports whether a successful Send proves the message reached
	// the user rather than an intermediary that may still drop it.
	Confirms bool
}

// Request carries one notification through a provider.
type Request struct {
	NotificationID uuid.UUID
	UserID         uuid.UUID
	Type           string
	Title          string
	Body           string
	Data           map[string]string
	// Priority is the queue tier as a string ("low", "normal", "high",
	// "critical"). Push gateways map it to their own urgency hints.
	Priority string
	// RequireConfirmation restricts delivery to providers whose success
	// means the user actually received the message.
	RequireConfirmation bool
}

// HighPriority reports whether the request should use expedited transport
// hints where the gateway supports them.
func (r Request) HighPriority() bool {
	return r.Priority == "high" || r.Priority == "critical"
}

// Provider is the contract every delivery channel implements.
type Provider interface {
	// Name uniquely identifies the provider within a registry.
	Name() string
	// Capabilities declares the provider's transport kind and confirmation
	// semantics.
	Capabilities() Capabilities
	// Available probes whether the channel can accept traffic right now.
	// A nil return means healthy.
	Available(ctx context.Context) error
	// Send delivers one notification. Recipient-specific rejections must be
	// wrapped with Permanent so they are not held against the channel's
	// health.
	Send(ctx context.Context, req Request) error
}

// Permanent marks an error as recipient-specific and non-retryable: the
// attempt failed, but retrying the same payload cannot succeed and the
// provider itself is not to blame. Permanent failures skip circuit-breaker
// accounting.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// IsPermanent reports whether the error carries the Permanent marker.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanent)
}

// Attempt describes one provider call for observers (audit, metrics).
type Attempt struct {
	Provider       string
	NotificationID uuid.UUID
	UserID         uuid.UUID
	Type           string
	Success        bool
	Permanent      bool
	Err            error
	Duration       time.Duration
}

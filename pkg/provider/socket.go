package provider

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/broadcast"
)

// SocketPayload is the frame pushed to a user's live connections.
type SocketPayload struct {
	NotificationID uuid.UUID         `json:"notification_id"`
	Type           string            `json:"type"`
	Title          string            `json:"title"`
	Body           string            `json:"body"`
	Data           map[string]string `json:"data,omitempty"`
	Priority       string            `json:"priority"`
	SentAt         time.Time         `json:"sent_at"`
}

// SocketProvider delivers over the in-process broadcast gateway that live
// connections (websockets, SSE) subscribe to. Reaching a subscriber means
// the frame landed on an open connection, so the provider confirms delivery.
type SocketProvider struct {
	gateway *broadcast.Gateway[SocketPayload]
}

// NewSocketProvider creates a provider on an existing gateway. The same
// gateway instance must be the one connection handlers subscribe through.
func NewSocketProvider(gateway *broadcast.Gateway[SocketPayload]) *SocketProvider {
	return &SocketProvider{gateway: gateway}
}

func (p *SocketProvider) Name() string { return "socket" }

func (p *SocketProvider) Capabilities() Capabilities {
	return Capabilities{Kind: KindSocket, Confirms: true}
}

// Available reports unhealthy only after the gateway has been shut down;
// an in-process transport has nothing else to probe.
func (p *SocketProvider) Available(_ context.Context) error {
	if p.gateway.Closed() {
		return broadcast.ErrClosed
	}
	return nil
}

// Send publishes the notification to every live connection the user holds.
// A user without connections is a recipient-specific condition, not a
// transport fault, so it comes back as a permanent error and the caller
// falls through to the next channel.
func (p *SocketProvider) Send(ctx context.Context, req Request) error {
	payload := SocketPayload{
		NotificationID: req.NotificationID,
		Type:           req.Type,
		Title:          req.Title,
		Body:           req.Body,
		Data:           req.Data,
		Priority:       req.Priority,
		SentAt:         time.Now().UTC(),
	}

	err := p.gateway.Publish(ctx, req.UserID.String(), broadcast.Message[SocketPayload]{Data: payload})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, broadcast.ErrNoSubscribers):
		return Permanent(ErrNoActiveConnection)
	default:
		return err
	}
}

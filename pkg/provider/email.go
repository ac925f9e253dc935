package provider

import (
	"context"
	"errors"
	"fmt"
	"html"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/email"
)

// AddressResolver maps a user to a deliverable email address. The host
// application owns user records, so it supplies the lookup.
type AddressResolver interface {
	EmailFor(ctx context.Context, userID uuid.UUID) (string, error)
}

// AddressResolverFunc adapts a function to the AddressResolver interface.
type AddressResolverFunc func(ctx context.Context, userID uuid.UUID) (string, error)

func (f AddressResolverFunc) EmailFor(ctx context.Context, userID uuid.UUID) (string, error) {
	return f(ctx, userID)
}

// EmailProvider delivers notifications to the user's mailbox. It is the slow
// lane: typically registered with the lowest priority so live channels win,
// and it never confirms delivery.
type EmailProvider struct {
	sender   email.EmailSender
	resolver AddressResolver
}

// NewEmailProvider creates the provider over any EmailSender implementation
// (Postmark, SMTP).
func NewEmailProvider(sender email.EmailSender, resolver AddressResolver) (*EmailProvider, error) {
	if sender == nil {
		return nil, fmt.Errorf("email provider: sender is required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("email provider: address resolver is required")
	}
	return &EmailProvider{sender: sender, resolver: resolver}, nil
}

func (p *EmailProvider) Name() string { return "email" }

func (p *EmailProvider) Capabilities() Capabilities {
	return Capabilities{Kind: KindEmail, Confirms: false}
}

// Available reports healthy; sender implementations surface their own
// failures per send and those feed the circuit breaker.
func (p *EmailProvider) Available(_ context.Context) error { return nil }

func (p *EmailProvider) Send(ctx context.Context, req Request) error {
	addr, err := p.resolver.EmailFor(ctx, req.UserID)
	if err != nil {
		return Permanent(fmt.Errorf("%w: %w", ErrNoEmailAddress, err))
	}
	if addr == "" {
		return Permanent(ErrNoEmailAddress)
	}

	params := email.SendEmailParams{
		SendTo:   addr,
		Subject:  req.Title,
		BodyHTML: fmt.Sprintf("<h2>%s</h2><p>%s</p>", html.EscapeString(req.Title), html.EscapeString(req.Body)),
		Tag:      req.Type,
	}
	if err := p.sender.SendEmail(ctx, params); err != nil {
		if errors.Is(err, email.ErrInvalidParams) {
			return Permanent(err)
		}
		return err
	}
	return nil
}

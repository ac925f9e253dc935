package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dmitrymomot/notifykit/pkg/device"
)

// ExpoConfig configures the Expo push gateway provider.
type ExpoConfig struct {
	Endpoint    string `env:"EXPO_PUSH_ENDPOINT" envDefault:"https://exp.host/--/api/v2/push/send"`
	AccessToken string `env:"EXPO_ACCESS_TOKEN"`
}

// ExpoProvider delivers through Expo's push service to every active device
// token the user registered. The gateway accepting a message does not prove
// the device received it, so the provider does not confirm delivery.
type ExpoProvider struct {
	cfg    ExpoConfig
	client *http.Client
	tokens device.Store
}

// ExpoOption configures ExpoProvider construction.
type ExpoOption func(*ExpoProvider)

// WithExpoClient overrides the HTTP client, mainly for tests.
func WithExpoClient(client *http.Client) ExpoOption {
	return func(p *ExpoProvider) {
		if client != nil {
			p.client = client
		}
	}
}

// NewExpoProvider creates the provider. The access token is optional; Expo
// accepts unauthenticated sends for standard projects.
func NewExpoProvider(cfg ExpoConfig, tokens device.Store, opts ...ExpoOption) (*ExpoProvider, error) {
	if err := validateEndpoint(cfg.Endpoint); err != nil {
		return nil, fmt.Errorf("expo: %w", err)
	}
	if tokens == nil {
		return nil, fmt.Errorf("expo: token store is required")
	}

	p := &ExpoProvider{
		cfg:    cfg,
		client: newGatewayClient(),
		tokens: tokens,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *ExpoProvider) Name() string { return "expo" }

func (p *ExpoProvider) Capabilities() Capabilities {
	return Capabilities{Kind: KindPush, Confirms: false}
}

// Available probes gateway reachability. Any HTTP response counts as
// reachable; only transport-level failures mark the provider down.
func (p *ExpoProvider) Available(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.Endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	return nil
}

type expoMessage struct {
	To       string            `json:"to"`
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Data     map[string]string `json:"data,omitempty"`
	Priority string            `json:"priority"`
	Sound    string            `json:"sound,omitempty"`
}

type expoTicket struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Details struct {
		Error string `json:"error"`
	} `json:"details"`
}

type expoResponse struct {
	Data []expoTicket `json:"data"`
}

// Send fans the notification out to all of the user's active Expo tokens in
// one gateway call. Tokens the gateway reports as DeviceNotRegistered are
// deactivated on the spot; the attempt succeeds when at least one ticket is
// accepted.
func (p *ExpoProvider) Send(ctx context.Context, req Request) error {
	tokens, err := p.tokens.ActiveForUser(ctx, req.UserID, device.PlatformExpo)
	if err != nil {
		return fmt.Errorf("expo: list tokens: %w", err)
	}
	if len(tokens) == 0 {
		return Permanent(ErrNoDeviceTokens)
	}

	priority := "default"
	if req.HighPriority() {
		priority = "high"
	}
	messages := make([]expoMessage, 0, len(tokens))
	for _, t := range tokens {
		messages = append(messages, expoMessage{
			To:       t.Token,
			Title:    req.Title,
			Body:     req.Body,
			Data:     req.Data,
			Priority: priority,
			Sound:    "default",
		})
	}

	payload, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("expo: marshal messages: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("expo: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if p.cfg.AccessToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.cfg.AccessToken)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("expo: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("expo: %w", gatewayStatusError(resp))
	}

	var out expoResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("expo: decode response: %w", err)
	}
	if len(out.Data) != len(messages) {
		return fmt.Errorf("expo: %w: got %d tickets for %d messages", ErrGatewayRejected, len(out.Data), len(messages))
	}

	accepted := 0
	deadTokens := 0
	var firstErr string
	for i, ticket := range out.Data {
		switch {
		case ticket.Status == "ok":
			accepted++
		case ticket.Details.Error == "DeviceNotRegistered":
			deadTokens++
			// Best effort: a failed deactivation only means the token gets
			// reported dead again on the next send.
			_ = p.tokens.Deactivate(ctx, device.PlatformExpo, tokens[i].Token)
		default:
			if firstErr == "" {
				firstErr = ticket.Message
				if firstErr == "" {
					firstErr = ticket.Details.Error
				}
			}
		}
	}

	if accepted > 0 {
		return nil
	}
	if deadTokens == len(tokens) {
		return Permanent(fmt.Errorf("expo: all %d device tokens unregistered", deadTokens))
	}
	return fmt.Errorf("expo: %w: %s", ErrGatewayRejected, firstErr)
}

package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dmitrymomot/notifykit/pkg/device"
)

// FCMConfig configures the FCM-style push gateway provider.
type FCMConfig struct {
	Endpoint  string `env:"FCM_ENDPOINT" envDefault:"https://fcm.googleapis.com/fcm/send"`
	ServerKey string `env:"FCM_SERVER_KEY"`
}

// FCMProvider delivers through an FCM-style HTTP gateway using the legacy
// server-key protocol.
type FCMProvider struct {
	cfg    FCMConfig
	client *http.Client
	tokens device.Store
}

// FCMOption configures FCMProvider construction.
type FCMOption func(*FCMProvider)

// WithFCMClient overrides the HTTP client, mainly for tests.
func WithFCMClient(client *http.Client) FCMOption {
	return func(p *FCMProvider) {
		if client != nil {
			p.client = client
		}
	}
}

// NewFCMProvider creates the provider. A missing server key returns
// ErrMissingCredentials so the caller can leave the provider out instead of
// crashing at startup.
func NewFCMProvider(cfg FCMConfig, tokens device.Store, opts ...FCMOption) (*FCMProvider, error) {
	if cfg.ServerKey == "" {
		return nil, fmt.Errorf("fcm: %w: server key", ErrMissingCredentials)
	}
	if err := validateEndpoint(cfg.Endpoint); err != nil {
		return nil, fmt.Errorf("fcm: %w", err)
	}
	if tokens == nil {
		return nil, fmt.Errorf("fcm: token store is required")
	}

	p := &FCMProvider{
		cfg:    cfg,
		client: newGatewayClient(),
		tokens: tokens,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *FCMProvider) Name() string { return "fcm" }

func (p *FCMProvider) Capabilities() Capabilities {
	return Capabilities{Kind: KindPush, Confirms: false}
}

// Available probes gateway reachability the same way the Expo provider does.
func (p *FCMProvider) Available(ctx context.Context) error {
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

type fcmPayload struct {
	RegistrationIDs []string          `json:"registration_ids"`
	Notification    fcmNotification   `json:"notification"`
	Data            map[string]string `json:"data,omitempty"`
	Priority        string            `json:"priority"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type fcmResult struct {
	MessageID string `json:"message_id"`
	Error     string `json:"error"`
}

type fcmResponse struct {
	Success int         `json:"success"`
	Failure int         `json:"failure"`
	Results []fcmResult `json:"results"`
}

// Send multicasts to all of the user's active FCM tokens. NotRegistered and
// InvalidRegistration results deactivate the offending token; any accepted
// result makes the attempt a success.
func (p *FCMProvider) Send(ctx context.Context, req Request) error {
	tokens, err := p.tokens.ActiveForUser(ctx, req.UserID, device.PlatformFCM)
	if err != nil {
		return fmt.Errorf("fcm: list tokens: %w", err)
	}
	if len(tokens) == 0 {
		return Permanent(ErrNoDeviceTokens)
	}

	ids := make([]string, 0, len(tokens))
	for _, t := range tokens {
		ids = append(ids, t.Token)
	}
	priority := "normal"
	if req.HighPriority() {
		priority = "high"
	}

	payload, err := json.Marshal(fcmPayload{
		RegistrationIDs: ids,
		Notification:    fcmNotification{Title: req.Title, Body: req.Body},
		Data:            req.Data,
		Priority:        priority,
	})
	if err != nil {
		return fmt.Errorf("fcm: marshal payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("fcm: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "key="+p.cfg.ServerKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("fcm: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("fcm: %w", gatewayStatusError(resp))
	}

	var out fcmResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("fcm: decode response: %w", err)
	}
	if len(out.Results) != len(ids) {
		return fmt.Errorf("fcm: %w: got %d results for %d tokens", ErrGatewayRejected, len(out.Results), len(ids))
	}

	deadTokens := 0
	var firstErr string
	for i, res := range out.Results {
		switch res.Error {
		case "":
		case "NotRegistered", "InvalidRegistration":
			deadTokens++
			_ = p.tokens.Deactivate(ctx, device.PlatformFCM, tokens[i].Token)
		default:
			if firstErr == "" {
				firstErr = res.Error
			}
		}
	}

	if out.Success > 0 {
		return nil
	}
	if deadTokens == len(tokens) {
		return Permanent(fmt.Errorf("fcm: all %d device tokens unregistered", deadTokens))
	}
	return fmt.Errorf("fcm: %w: %s", ErrGatewayRejected, firstErr)
}

package provider

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"
)

const defaultAttemptTimeout = 10 * time.Second

// Manager selects providers in priority order and falls through to the next
// candidate until one delivers. It converts every provider outcome, panics
// included, into a definitive result so callers above it only ever see a
// provider name or an error.
type Manager struct {
	registry  *Registry
	timeout   time.Duration
	onAttempt func(Attempt)
}

// ManagerOption configures Manager construction.
type ManagerOption func(*Manager)

// WithAttemptTimeout bounds every single provider call. The default is 10s;
// exceeding it counts as a transient failure for both fallback and breaker
// accounting.
func WithAttemptTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithAttemptObserver installs a hook invoked after every provider call,
// successful or not. Audit recording hangs off this hook.
func WithAttemptObserver(fn func(Attempt)) ManagerOption {
	return func(m *Manager) {
		m.onAttempt = fn
	}
}

// NewManager creates a manager over the given registry.
func NewManager(registry *Registry, opts ...ManagerOption) *Manager {
	m := &Manager{
		registry: registry,
		timeout:  defaultAttemptTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// deliverOptions carries the per-request candidate filters.
type deliverOptions struct {
	preferred    string
	excluded     []string
	allowedKinds []Kind
}

// DeliverOption narrows candidate selection for one delivery.
type DeliverOption func(*deliverOptions)

// WithPreferred moves the named provider to the front of the candidate list
// when it is eligible. Ineligible preferred providers are simply ignored.
func WithPreferred(name string) DeliverOption {
	return func(o *deliverOptions) {
		o.preferred = name
	}
}

// WithExcluded removes the named providers from candidate selection.
func WithExcluded(names ...string) DeliverOption {
	return func(o *deliverOptions) {
		o.excluded = append(o.excluded, names...)
	}
}

// WithAllowedKinds restricts candidates to the given transport kinds. An
// empty list means no restriction.
func WithAllowedKinds(kinds ...Kind) DeliverOption {
	return func(o *deliverOptions) {
		o.allowedKinds = append(o.allowedKinds, kinds...)
	}
}

// Deliver walks the eligible providers and returns the name of the one that
// accepted the notification. Candidates with an open breaker are never
// called. Transient failures feed the breaker and fall through to the next
// candidate; permanent failures fall through without degrading the provider.
func (m *Manager) Deliver(ctx context.Context, req Request, opts ...DeliverOption) (string, error) {
	var o deliverOptions
	for _, opt := range opts {
		opt(&o)
	}

	candidates := m.eligible(req, o)
	if len(candidates) == 0 {
		return "", ErrNoEligibleProviders
	}

	var lastErr error
	for _, e := range candidates {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if !e.breaker.Allow() {
			continue
		}

		name := e.provider.Name()
		start := time.Now()
		err := m.attempt(ctx, e.provider, req)
		latency := time.Since(start)

		success := err == nil
		permanent := IsPermanent(err)
		e.recordAttempt(success, permanent, latency)

		if m.onAttempt != nil {
			m.onAttempt(Attempt{
				Provider:       name,
				NotificationID: req.NotificationID,
				UserID:         req.UserID,
				Type:           req.Type,
				Success:        success,
				Permanent:      permanent,
				Err:            err,
				Duration:       latency,
			})
		}

		if success {
			return name, nil
		}
		lastErr = fmt.Errorf("%s: %w", name, err)
	}

	if lastErr == nil {
		// Every candidate was gated off by its breaker.
		return "", errors.Join(ErrAllProvidersFailed, ErrCircuitOpen)
	}
	return "", errors.Join(ErrAllProvidersFailed, lastErr)
}

// eligible applies the static filters: enabled, probe-healthy, not excluded,
// kind-allowed, and confirming when the request demands confirmation. The
// preferred provider, when present among the survivors, moves to the front.
func (m *Manager) eligible(req Request, o deliverOptions) []*entry {
	candidates := m.registry.candidates()

	filtered := candidates[:0]
	for _, e := range candidates {
		if !e.available() {
			continue
		}
		name := e.provider.Name()
		if slices.Contains(o.excluded, name) {
			continue
		}
		caps := e.provider.Capabilities()
		if len(o.allowedKinds) > 0 && !slices.Contains(o.allowedKinds, caps.Kind) {
			continue
		}
		if req.RequireConfirmation && !caps.Confirms {
			continue
		}
		filtered = append(filtered, e)
	}

	if o.preferred != "" {
		i := slices.IndexFunc(filtered, func(e *entry) bool {
			return e.provider.Name() == o.preferred
		})
		if i > 0 {
			preferred := filtered[i]
			copy(filtered[1:i+1], filtered[:i])
			filtered[0] = preferred
		}
	}
	return filtered
}

// attempt runs one provider call under the per-attempt timeout, converting
// panics into errors at this boundary.
func (m *Manager) attempt(ctx context.Context, p Provider, req Request) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrProviderPanic, r)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	return p.Send(ctx, req)
}

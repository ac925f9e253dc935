package prefs

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Reason explains why a notification was blocked.
type Reason string

const (
	ReasonTypeDisabled   Reason = "type_disabled"
	ReasonMethodDisabled Reason = "method_disabled"
	ReasonQuietHours     Reason = "quiet_hours"
	ReasonHourlyCap      Reason = "hourly_cap"
	ReasonDailyCap       Reason = "daily_cap"
)

// Decision is the outcome of gating one notification.
type Decision struct {
	// Allowed reports whether the notification may proceed. A true value with
	// a non-zero DeferUntil means "proceed, but not before that instant".
	Allowed bool
	// Reason is set when Allowed is false.
	Reason Reason
	// DeferUntil is the end of the quiet-hours window for allowed-but-
	// deferred notifications (Authorize) .
	DeferUntil time.Time
	// ResumeAt mirrors DeferUntil for read-only checks that deny on quiet
	// hours.
	ResumeAt time.Time
	// Method is the effective channel restriction for this type.
	Method DeliveryMethod
	// Usage reflects the frequency windows after the decision.
	Usage Usage
	// Prefs is the preference snapshot the decision was made from, so
	// callers can reuse Language and digest settings without a second fetch.
	Prefs Preferences
}

// Gate turns stored preferences into delivery decisions.
type Gate struct {
	store Store
	usage UsageStore
	now   func() time.Time
}

// GateOption configures Gate construction.
type GateOption func(*Gate)

// WithGateClock overrides time.Now for tests.
func WithGateClock(now func() time.Time) GateOption {
	return func(g *Gate) {
		if now != nil {
			g.now = now
		}
	}
}

// NewGate creates a gate over the given preference and usage stores.
func NewGate(store Store, usage UsageStore, opts ...GateOption) *Gate {
	g := &Gate{store: store, usage: usage, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Authorize gates a notification that is about to be accepted. Quiet hours do
// not deny: they set DeferUntil so the caller schedules delivery for the end
// of the window. Frequency caps are reserved atomically, which makes the
// accept decision and the counter increment one step. Critical notifications
// skip quiet hours but still count against caps.
func (g *Gate) Authorize(ctx context.Context, userID uuid.UUID, notifType string, critical bool) (Decision, error) {
	p, err := g.store.Get(ctx, userID)
	if err != nil {
		return Decision{}, errors.Join(ErrStorageFailure, err)
	}

	d := Decision{Prefs: p, Method: p.MethodFor(notifType)}

	if enabled, ok := p.TypeEnabled[notifType]; ok && !enabled {
		d.Reason = ReasonTypeDisabled
		return d, nil
	}
	if d.Method == MethodOff {
		d.Reason = ReasonMethodDisabled
		return d, nil
	}

	if !critical {
		// Malformed quiet-hours settings disable only this check; Validate
		// on Save keeps them out of the store in the first place.
		if inside, resume, qerr := quietWindow(p, g.now()); qerr == nil && inside {
			d.DeferUntil = resume
		}
	}

	if p.CapsEnabled && (p.MaxPerHour > 0 || p.MaxPerDay > 0) {
		limits := Limits{PerHour: p.MaxPerHour, PerDay: p.MaxPerDay}
		usage, ok, err := g.usage.Reserve(ctx, userID, limits)
		if err != nil {
			return Decision{}, err
		}
		d.Usage = usage
		if !ok {
			d.Reason = capReason(usage, limits)
			return d, nil
		}
	}

	d.Allowed = true
	return d, nil
}

// Check answers "would a notification of this type deliver right now"
// without reserving anything. Unlike Authorize it reports quiet hours as a
// denial with ResumeAt set, which is the shape preference screens want.
func (g *Gate) Check(ctx context.Context, userID uuid.UUID, notifType string, critical bool) (Decision, error) {
	p, err := g.store.Get(ctx, userID)
	if err != nil {
		return Decision{}, errors.Join(ErrStorageFailure, err)
	}

	d := Decision{Prefs: p, Method: p.MethodFor(notifType)}

	if enabled, ok := p.TypeEnabled[notifType]; ok && !enabled {
		d.Reason = ReasonTypeDisabled
		return d, nil
	}
	if d.Method == MethodOff {
		d.Reason = ReasonMethodDisabled
		return d, nil
	}

	if !critical {
		if inside, resume, qerr := quietWindow(p, g.now()); qerr == nil && inside {
			d.Reason = ReasonQuietHours
			d.ResumeAt = resume
			return d, nil
		}
	}

	if p.CapsEnabled && (p.MaxPerHour > 0 || p.MaxPerDay > 0) {
		limits := Limits{PerHour: p.MaxPerHour, PerDay: p.MaxPerDay}
		usage, err := g.usage.Current(ctx, userID)
		if err != nil {
			return Decision{}, err
		}
		d.Usage = usage
		if reason := capReason(usage, limits); reason != "" {
			d.Reason = reason
			return d, nil
		}
	}

	d.Allowed = true
	return d, nil
}

// Recheck re-validates an already accepted notification right before
// dispatch: preferences may have changed while it sat in the queue. Only
// type, method and quiet hours are evaluated; frequency caps were reserved
// at accept time and re-checking them would double-count the delivery.
// Quiet hours behave as in Authorize: the decision stays allowed with
// DeferUntil set.
func (g *Gate) Recheck(ctx context.Context, userID uuid.UUID, notifType string, critical bool) (Decision, error) {
	p, err := g.store.Get(ctx, userID)
	if err != nil {
		return Decision{}, errors.Join(ErrStorageFailure, err)
	}

	d := Decision{Prefs: p, Method: p.MethodFor(notifType)}

	if enabled, ok := p.TypeEnabled[notifType]; ok && !enabled {
		d.Reason = ReasonTypeDisabled
		return d, nil
	}
	if d.Method == MethodOff {
		d.Reason = ReasonMethodDisabled
		return d, nil
	}

	if !critical {
		if inside, resume, qerr := quietWindow(p, g.now()); qerr == nil && inside {
			d.DeferUntil = resume
		}
	}

	d.Allowed = true
	return d, nil
}

func capReason(usage Usage, limits Limits) Reason {
	if limits.PerHour > 0 && usage.Hourly >= limits.PerHour {
		return ReasonHourlyCap
	}
	if limits.PerDay > 0 && usage.Daily >= limits.PerDay {
		return ReasonDailyCap
	}
	return ""
}

package notifykit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/audit"
	"github.com/dmitrymomot/notifykit/pkg/content"
	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/prefs"
	"github.com/dmitrymomot/notifykit/pkg/queue"
)

// Receipt reports what happened to a submitted notification. Acceptance is
// not delivery: a queued notification may still be retried, expire, or be
// cancelled later; the audit trail has the authoritative outcome.
type Receipt struct {
	// NotificationID identifies the queued notification. Zero when blocked.
	NotificationID uuid.UUID `json:"notification_id,omitempty"`
	// Queued reports that the notification entered the queue.
	Queued bool `json:"queued"`
	// Blocked reports that the user's preferences stopped the notification
	// before it was queued.
	Blocked bool `json:"blocked,omitempty"`
	// Reason names the preference rule that blocked it.
	Reason prefs.Reason `json:"reason,omitempty"`
	// ScheduledFor is set when delivery was pushed into the future, either
	// by WithSchedule or by the user's quiet hours.
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
}

// notifyOptions carries the per-call delivery overrides.
type notifyOptions struct {
	priority     queue.Priority
	ttl          time.Duration
	schedule     time.Time
	maxAttempts  int
	preferred    string
	excluded     []string
	confirmation bool
	data         map[string]string
}

// NotifyOption adjusts a single Notify call.
type NotifyOption func(*notifyOptions)

// WithPriority sets the delivery priority. Critical notifications bypass
// quiet hours but still count against frequency caps.
func WithPriority(p queue.Priority) NotifyOption {
	return func(o *notifyOptions) {
		o.priority = p
	}
}

// WithTTL overrides how long the notification stays deliverable.
func WithTTL(d time.Duration) NotifyOption {
	return func(o *notifyOptions) {
		if d > 0 {
			o.ttl = d
		}
	}
}

// WithSchedule delays delivery until the given time.
func WithSchedule(at time.Time) NotifyOption {
	return func(o *notifyOptions) {
		if !at.IsZero() {
			o.schedule = at
		}
	}
}

// WithMaxAttempts overrides the retry budget for this notification.
func WithMaxAttempts(n int) NotifyOption {
	return func(o *notifyOptions) {
		if n > 0 {
			o.maxAttempts = n
		}
	}
}

// WithPreferredProvider tries the named provider first when it is eligible.
func WithPreferredProvider(name string) NotifyOption {
	return func(o *notifyOptions) {
		o.preferred = name
	}
}

// WithExcludedProviders keeps the named providers out of the delivery walk.
func WithExcludedProviders(names ...string) NotifyOption {
	return func(o *notifyOptions) {
		o.excluded = append(o.excluded, names...)
	}
}

// WithConfirmation restricts delivery to providers that confirm receipt on
// a live connection.
func WithConfirmation() NotifyOption {
	return func(o *notifyOptions) {
		o.confirmation = true
	}
}

// WithData merges extra key-value payload into the rendered content's data,
// overriding rendered keys on conflict.
func WithData(data map[string]string) NotifyOption {
	return func(o *notifyOptions) {
		if len(data) == 0 {
			return
		}
		if o.data == nil {
			o.data = make(map[string]string, len(data))
		}
		for k, v := range data {
			o.data[k] = v
		}
	}
}

// Notify turns a domain event into a queued, gated notification.
//
// The pipeline: render content for the user's language, authorize against
// preferences (disabled types and channels block, quiet hours defer,
// frequency caps are reserved atomically), persist to the queue, then
// attempt immediate delivery when the user is reachable and the
// notification is due.
//
// A preference block is not an error; the receipt carries the reason and
// the block is audited. Delivery failures after queuing are silent to the
// caller; the retry machinery owns them. Errors are reserved for invalid
// input and backend failures.
func (e *Engine) Notify(ctx context.Context, userID uuid.UUID, event content.Event, params map[string]string, opts ...NotifyOption) (Receipt, error) {
	if e.closed.Load() {
		return Receipt{}, ErrEngineClosed
	}
	if userID == uuid.Nil {
		return Receipt{}, ErrInvalidUserID
	}
	if event == "" {
		return Receipt{}, ErrInvalidEvent
	}

	o := notifyOptions{
		priority:    queue.PriorityNormal,
		ttl:         e.queueCfg.DefaultTTL,
		maxAttempts: e.queueCfg.MaxAttempts,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if !o.priority.Valid() {
		return Receipt{}, fmt.Errorf("%w: %q", ErrInvalidPriority, o.priority)
	}

	decision, err := e.gate.Authorize(ctx, userID, string(event), o.priority.Critical())
	if err != nil {
		return Receipt{}, fmt.Errorf("authorize notification: %w", err)
	}
	if !decision.Allowed {
		e.record(ctx, audit.Blocked(userID, string(event), string(decision.Reason)))
		e.logger.Info("notification blocked by preferences",
			logger.UserID(userID),
			logger.Event(string(event)),
			slog.String("reason", string(decision.Reason)))
		return Receipt{Blocked: true, Reason: decision.Reason}, nil
	}

	c := e.builder.BuildLocalized(decision.Prefs.Language, event, params)
	data := c.Data
	for k, v := range o.data {
		data[k] = v
	}

	now := e.now()
	n := &queue.Notification{
		UserID:              userID,
		Type:                string(event),
		Title:               c.Title,
		Body:                c.Body,
		Data:                data,
		Priority:            o.priority,
		RequireConfirmation: o.confirmation,
		PreferredProvider:   o.preferred,
		ExcludedProviders:   o.excluded,
		MaxAttempts:         o.maxAttempts,
	}

	scheduled := o.schedule
	if !decision.DeferUntil.IsZero() && decision.DeferUntil.After(scheduled) {
		scheduled = decision.DeferUntil
	}
	if !scheduled.IsZero() {
		n.ScheduledFor = &scheduled
	}

	expiresAt := now.Add(o.ttl)
	n.ExpiresAt = &expiresAt

	if err := e.storage.Create(ctx, n); err != nil {
		return Receipt{}, fmt.Errorf("enqueue notification: %w", err)
	}

	e.logger.Info("notification queued",
		logger.NotificationID(n.ID),
		logger.UserID(userID),
		logger.Event(string(event)),
		logger.Priority(string(o.priority)))

	receipt := Receipt{
		NotificationID: n.ID,
		Queued:         true,
		ScheduledFor:   n.ScheduledFor,
	}

	if n.ScheduledFor != nil && n.ScheduledFor.After(now) {
		return receipt, nil
	}

	online, err := e.tracker.IsOnline(ctx, userID)
	if err != nil {
		e.logger.Warn("presence lookup failed, notification stays queued",
			logger.NotificationID(n.ID),
			logger.UserID(userID),
			logger.Error(err))
		return receipt, nil
	}
	if online {
		if err := e.processor.Dispatch(ctx, n); err != nil {
			e.logger.Warn("immediate dispatch failed, sweeps will retry",
				logger.NotificationID(n.ID),
				logger.UserID(userID),
				logger.Error(err))
		}
	}
	return receipt, nil
}

package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/prefs"
	"github.com/dmitrymomot/notifykit/pkg/presence"
	"github.com/dmitrymomot/notifykit/pkg/provider"
)

// Processor drives queued notifications to delivery. It runs three
// periodic sweeps: due Pending notifications, elapsed retry backoffs, and
// expiry/retention cleanup. Sweeps deliver only to users with a live
// delivery path; everyone else's notifications stay queued until
// FlushUser runs on reconnect.
//
// Notifications for the same user are dispatched in order, one at a time.
// Different users are processed concurrently up to the configured limit.
type Processor struct {
	storage Storage
	manager *provider.Manager
	gate    *prefs.Gate
	tracker presence.Tracker

	sem    chan struct{}
	wg     sync.WaitGroup
	mu     sync.RWMutex
	stopMu sync.Mutex // Protects stopping state and WaitGroup operations

	sweepInterval   time.Duration
	retryInterval   time.Duration
	cleanupInterval time.Duration
	batchSize       int
	dispatchTimeout time.Duration
	backoff         Backoff
	retention       time.Duration
	logger          *slog.Logger

	ctx      context.Context
	cancel   context.CancelFunc
	stopping atomic.Bool
}

// ProcessorOption configures the processor.
type ProcessorOption func(*Processor)

// WithSweepInterval sets how often due Pending notifications are swept.
func WithSweepInterval(d time.Duration) ProcessorOption {
	return func(p *Processor) {
		if d > 0 {
			p.sweepInterval = d
		}
	}
}

// WithRetryInterval sets how often elapsed retry backoffs are swept.
func WithRetryInterval(d time.Duration) ProcessorOption {
	return func(p *Processor) {
		if d > 0 {
			p.retryInterval = d
		}
	}
}

// WithCleanupInterval sets how often expiry and retention cleanup runs.
func WithCleanupInterval(d time.Duration) ProcessorOption {
	return func(p *Processor) {
		if d > 0 {
			p.cleanupInterval = d
		}
	}
}

// WithBatchSize caps how many notifications one sweep picks up.
func WithBatchSize(n int) ProcessorOption {
	return func(p *Processor) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithMaxConcurrent bounds how many users are dispatched in parallel.
func WithMaxConcurrent(n int) ProcessorOption {
	return func(p *Processor) {
		if n > 0 {
			p.sem = make(chan struct{}, n)
		}
	}
}

// WithDispatchTimeout bounds the provider walk for a single notification.
func WithDispatchTimeout(d time.Duration) ProcessorOption {
	return func(p *Processor) {
		if d > 0 {
			p.dispatchTimeout = d
		}
	}
}

// WithProcessorBackoff sets the retry backoff schedule.
func WithProcessorBackoff(b Backoff) ProcessorOption {
	return func(p *Processor) {
		if b.Base > 0 && b.Cap > 0 {
			p.backoff = b
		}
	}
}

// WithRetention sets how long terminal notifications are kept before purge.
func WithRetention(d time.Duration) ProcessorOption {
	return func(p *Processor) {
		if d > 0 {
			p.retention = d
		}
	}
}

// WithProcessorLogger sets the logger; slog.Default is used otherwise.
func WithProcessorLogger(logger *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewProcessor creates a notification processor.
func NewProcessor(storage Storage, manager *provider.Manager, gate *prefs.Gate, tracker presence.Tracker, opts ...ProcessorOption) (*Processor, error) {
	if storage == nil {
		return nil, ErrStorageNil
	}
	if manager == nil {
		return nil, ErrManagerNil
	}
	if gate == nil {
		return nil, ErrGateNil
	}
	if tracker == nil {
		return nil, ErrTrackerNil
	}

	p := &Processor{
		storage:         storage,
		manager:         manager,
		gate:            gate,
		tracker:         tracker,
		sem:             make(chan struct{}, 10),
		sweepInterval:   5 * time.Second,
		retryInterval:   30 * time.Second,
		cleanupInterval: time.Minute,
		batchSize:       100,
		dispatchTimeout: 30 * time.Second,
		backoff:         DefaultBackoff,
		retention:       30 * 24 * time.Hour,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Start begins the background sweeps.
func (p *Processor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.cancel != nil {
		p.mu.Unlock()
		return fmt.Errorf("processor already started")
	}
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.mu.Unlock()

	p.stopping.Store(false)

	go p.run()

	p.logger.Info("notification processor started",
		slog.Duration("sweep_interval", p.sweepInterval),
		slog.Duration("retry_interval", p.retryInterval),
		slog.Int("max_concurrent", cap(p.sem)))

	return nil
}

// Stop shuts down the sweeps and waits for in-flight dispatches to finish.
func (p *Processor) Stop() error {
	p.mu.Lock()
	if p.cancel == nil {
		p.mu.Unlock()
		return fmt.Errorf("processor not started")
	}

	p.stopMu.Lock()
	p.stopping.Store(true)
	p.stopMu.Unlock()

	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	cancel()

	p.logger.Info("processor stopping, waiting for in-flight deliveries")
	p.wg.Wait()
	p.logger.Info("processor stopped")

	return nil
}

// Run starts the processor and returns a function suitable for errgroup.
func (p *Processor) Run(ctx context.Context) func() error {
	return func() error {
		if err := p.Start(ctx); err != nil {
			return err
		}

		<-ctx.Done()

		return p.Stop()
	}
}

// run is the main sweep loop.
func (p *Processor) run() {
	sweep := time.NewTicker(p.sweepInterval)
	defer sweep.Stop()
	retry := time.NewTicker(p.retryInterval)
	defer retry.Stop()
	cleanup := time.NewTicker(p.cleanupInterval)
	defer cleanup.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-sweep.C:
			if err := p.ProcessPending(p.ctx); err != nil && !errors.Is(err, context.Canceled) {
				p.logger.Error("pending sweep failed", slog.String("error", err.Error()))
			}
		case <-retry.C:
			if err := p.ProcessRetries(p.ctx); err != nil && !errors.Is(err, context.Canceled) {
				p.logger.Error("retry sweep failed", slog.String("error", err.Error()))
			}
		case <-cleanup.C:
			if err := p.Cleanup(p.ctx); err != nil && !errors.Is(err, context.Canceled) {
				p.logger.Error("cleanup sweep failed", slog.String("error", err.Error()))
			}
		}
	}
}

// ProcessPending sweeps due Pending notifications and dispatches them to
// online users.
func (p *Processor) ProcessPending(ctx context.Context) error {
	due, err := p.storage.DueForDelivery(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("select due notifications: %w", err)
	}
	return p.dispatchBatch(ctx, due)
}

// ProcessRetries sweeps notifications whose retry backoff has elapsed and
// re-attempts delivery for online users.
func (p *Processor) ProcessRetries(ctx context.Context) error {
	due, err := p.storage.DueForRetry(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("select retry notifications: %w", err)
	}
	return p.dispatchBatch(ctx, due)
}

// FlushUser drains the user's due Pending notifications in priority order.
// Called when a user comes online; delivery happens synchronously on the
// caller's context. It returns the number of notifications dispatched.
func (p *Processor) FlushUser(ctx context.Context, userID uuid.UUID) (int, error) {
	items, err := p.storage.PendingForUser(ctx, userID, p.batchSize)
	if err != nil {
		return 0, fmt.Errorf("select user notifications: %w", err)
	}

	dispatched := 0
	for _, n := range items {
		if err := ctx.Err(); err != nil {
			return dispatched, err
		}
		if err := p.Dispatch(ctx, n); err != nil {
			p.logger.Error("flush dispatch failed",
				slog.String("notification_id", n.ID.String()),
				slog.String("user_id", userID.String()),
				slog.String("error", err.Error()))
			continue
		}
		dispatched++
	}
	return dispatched, nil
}

// Cleanup expires overdue notifications and purges old terminal ones.
func (p *Processor) Cleanup(ctx context.Context) error {
	expired, err := p.storage.ExpireOverdue(ctx)
	if err != nil {
		return fmt.Errorf("expire overdue: %w", err)
	}
	if expired > 0 {
		p.logger.Info("expired undelivered notifications", slog.Int("count", expired))
	}

	purged, err := p.storage.PurgeTerminal(ctx, p.retention)
	if err != nil {
		return fmt.Errorf("purge terminal: %w", err)
	}
	if purged > 0 {
		p.logger.Info("purged old notifications", slog.Int("count", purged))
	}
	return nil
}

// dispatchBatch groups a sweep's pick by user, skips offline users, and
// hands each user's ordered batch to a worker slot.
func (p *Processor) dispatchBatch(ctx context.Context, items []*Notification) error {
	if len(items) == 0 {
		return nil
	}

	perUser := make(map[uuid.UUID][]*Notification)
	for _, n := range items {
		perUser[n.UserID] = append(perUser[n.UserID], n)
	}

	for userID, batch := range perUser {
		online, err := p.tracker.IsOnline(ctx, userID)
		if err != nil {
			p.logger.Warn("presence lookup failed, leaving notifications queued",
				slog.String("user_id", userID.String()),
				slog.String("error", err.Error()))
			continue
		}
		if !online {
			continue
		}

		select {
		case p.sem <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}

		// Do not add to the WaitGroup once Stop() started.
		p.stopMu.Lock()
		if p.stopping.Load() {
			p.stopMu.Unlock()
			<-p.sem
			return nil
		}
		p.wg.Add(1)
		p.stopMu.Unlock()

		go func(batch []*Notification) {
			defer p.wg.Done()
			defer func() { <-p.sem }()

			for _, n := range batch {
				// Detached from the sweep context so graceful shutdown
				// lets an in-flight notification finish its provider walk.
				dctx, cancel := context.WithTimeout(context.Background(), p.dispatchTimeout)
				err := p.Dispatch(dctx, n)
				cancel()
				if err != nil {
					p.logger.Error("dispatch failed",
						slog.String("notification_id", n.ID.String()),
						slog.String("user_id", n.UserID.String()),
						slog.String("error", err.Error()))
				}
			}
		}(batch)
	}
	return nil
}

// Dispatch runs the full delivery pipeline for one notification: gate
// re-check, claim, provider walk, outcome recording. Losing the claim race
// is not an error; the winner owns the delivery.
func (p *Processor) Dispatch(ctx context.Context, n *Notification) error {
	decision, err := p.gate.Recheck(ctx, n.UserID, n.Type, n.Priority.Critical())
	if err != nil {
		return fmt.Errorf("preference recheck: %w", err)
	}

	if !decision.Allowed {
		// Preferences changed while the notification was queued.
		err := p.storage.Cancel(ctx, n.ID)
		switch {
		case err == nil:
			p.logger.Info("notification cancelled, disabled by preferences",
				slog.String("notification_id", n.ID.String()),
				slog.String("user_id", n.UserID.String()),
				slog.String("type", n.Type),
				slog.String("reason", string(decision.Reason)))
			return nil
		case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrTerminal), errors.Is(err, ErrNotFound):
			return nil
		default:
			return fmt.Errorf("cancel disabled notification: %w", err)
		}
	}

	if !decision.DeferUntil.IsZero() {
		if err := p.storage.Defer(ctx, n.ID, decision.DeferUntil); err != nil {
			if errors.Is(err, ErrTerminal) || errors.Is(err, ErrNotFound) {
				return nil
			}
			return fmt.Errorf("defer for quiet hours: %w", err)
		}
		p.logger.Debug("notification deferred for quiet hours",
			slog.String("notification_id", n.ID.String()),
			slog.String("user_id", n.UserID.String()),
			slog.Time("resume_at", decision.DeferUntil))
		return nil
	}

	claimed, err := p.storage.Claim(ctx, n.ID)
	if err != nil {
		if errors.Is(err, ErrNotClaimable) || errors.Is(err, ErrNotFound) {
			return nil
		}
		return fmt.Errorf("claim notification: %w", err)
	}

	name, err := p.manager.Deliver(ctx, deliveryRequest(claimed), deliveryOptions(claimed, decision.Method)...)
	if err != nil {
		return p.recordFailure(ctx, claimed, err)
	}
	return p.recordSuccess(ctx, claimed, name)
}

func (p *Processor) recordSuccess(ctx context.Context, n *Notification, providerName string) error {
	changed, err := p.storage.Deliver(ctx, n.ID, providerName)
	if err != nil {
		if errors.Is(err, ErrTerminal) {
			// Finalized elsewhere while the provider call was in flight;
			// the result is discarded.
			p.logger.Debug("delivery result discarded",
				slog.String("notification_id", n.ID.String()))
			return nil
		}
		return fmt.Errorf("mark delivered: %w", err)
	}
	if changed {
		p.logger.Info("notification delivered",
			slog.String("notification_id", n.ID.String()),
			slog.String("user_id", n.UserID.String()),
			slog.String("type", n.Type),
			slog.String("provider", providerName),
			slog.Int("attempt", n.AttemptCount+1))
	}
	return nil
}

func (p *Processor) recordFailure(ctx context.Context, n *Notification, cause error) error {
	updated, err := p.storage.Fail(ctx, n.ID, cause.Error(), p.backoff)
	if err != nil {
		if errors.Is(err, ErrTerminal) {
			p.logger.Debug("failure result discarded",
				slog.String("notification_id", n.ID.String()))
			return nil
		}
		return fmt.Errorf("record failed attempt: %w", err)
	}

	if updated.Status == StatusFailed {
		p.logger.Error("notification failed permanently",
			slog.String("notification_id", n.ID.String()),
			slog.String("user_id", n.UserID.String()),
			slog.String("type", n.Type),
			slog.Int("attempts", updated.AttemptCount),
			slog.String("error", cause.Error()))
		return nil
	}

	p.logger.Warn("delivery attempt failed, retry scheduled",
		slog.String("notification_id", n.ID.String()),
		slog.String("user_id", n.UserID.String()),
		slog.Int("attempt", updated.AttemptCount),
		slog.Time("next_retry_at", derefTime(updated.NextRetryAt)),
		slog.String("error", cause.Error()))
	return nil
}

// deliveryRequest converts a claimed notification into a provider request.
func deliveryRequest(n *Notification) provider.Request {
	return provider.Request{
		NotificationID:      n.ID,
		UserID:              n.UserID,
		Type:                n.Type,
		Title:               n.Title,
		Body:                n.Body,
		Data:                n.Data,
		Priority:            string(n.Priority),
		RequireConfirmation: n.RequireConfirmation,
	}
}

// deliveryOptions maps the notification's routing hints and the user's
// effective channel restriction onto provider selection options.
func deliveryOptions(n *Notification, method prefs.DeliveryMethod) []provider.DeliverOption {
	var opts []provider.DeliverOption
	if n.PreferredProvider != "" {
		opts = append(opts, provider.WithPreferred(n.PreferredProvider))
	}
	if len(n.ExcludedProviders) > 0 {
		opts = append(opts, provider.WithExcluded(n.ExcludedProviders...))
	}
	if kinds := kindsForMethod(method); kinds != nil {
		opts = append(opts, provider.WithAllowedKinds(kinds...))
	}
	return opts
}

func kindsForMethod(m prefs.DeliveryMethod) []provider.Kind {
	switch m {
	case prefs.MethodSocket:
		return []provider.Kind{provider.KindSocket}
	case prefs.MethodPush:
		return []provider.Kind{provider.KindPush}
	case prefs.MethodEmail:
		return []provider.Kind{provider.KindEmail}
	default:
		return nil
	}
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

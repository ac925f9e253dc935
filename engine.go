package notifykit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/notifykit/pkg/audit"
	"github.com/dmitrymomot/notifykit/pkg/content"
	"github.com/dmitrymomot/notifykit/pkg/ingest"
	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/prefs"
	"github.com/dmitrymomot/notifykit/pkg/presence"
	"github.com/dmitrymomot/notifykit/pkg/provider"
	"github.com/dmitrymomot/notifykit/pkg/queue"
)

const (
	defaultMaxAttempts    = 3
	defaultTTL            = 30 * 24 * time.Hour
	defaultHealthInterval = 30 * time.Second
	defaultProbeTimeout   = 5 * time.Second
	recordTimeout         = 5 * time.Second
	shutdownTimeout       = 5 * time.Second
)

// registration pairs a provider with its delivery settings until New builds
// the registry.
type registration struct {
	provider provider.Provider
	config   provider.Config
}

// Engine is the orchestrating facade over the delivery pipeline. Notify
// accepts a domain event, renders it, gates it against the user's
// preferences, queues it durably, and attempts immediate delivery when the
// user is reachable. Background sweeps started by Run own retries, expiry,
// and provider health; every provider attempt lands in the audit trail.
//
// All backends default to in-memory implementations, so an Engine with no
// options is fully functional for tests and single-process setups. Swap in
// the PostgreSQL, Redis, and MongoDB backends through options for anything
// that must survive a restart.
type Engine struct {
	storage   queue.Storage
	prefStore prefs.Store
	usage     prefs.UsageStore
	tracker   presence.Tracker
	trail     audit.Storage

	gate      *prefs.Gate
	registry  *provider.Registry
	manager   *provider.Manager
	processor *queue.Processor
	builder   *content.Builder
	recorder  *audit.AsyncWriter

	logger *slog.Logger
	now    func() time.Time

	queueCfg       queue.Config
	breakerCfg     provider.BreakerConfig
	prefsDefaults  func(uuid.UUID) prefs.Preferences
	attemptTimeout time.Duration
	healthInterval time.Duration
	probeTimeout   time.Duration

	registrations []registration

	closed atomic.Bool
}

// New assembles an engine from the given options. Backends not supplied are
// replaced with in-memory implementations sharing the engine's clock.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		logger:         slog.Default(),
		now:            time.Now,
		healthInterval: defaultHealthInterval,
		probeTimeout:   defaultProbeTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.queueCfg.MaxAttempts < 1 {
		e.queueCfg.MaxAttempts = defaultMaxAttempts
	}
	if e.queueCfg.DefaultTTL <= 0 {
		e.queueCfg.DefaultTTL = defaultTTL
	}

	if e.storage == nil {
		e.storage = queue.NewMemoryStorage(queue.WithClock(e.now))
	}
	if e.prefStore == nil {
		var popts []prefs.StoreOption
		if e.prefsDefaults != nil {
			popts = append(popts, prefs.WithDefaultsFactory(e.prefsDefaults))
		}
		e.prefStore = prefs.NewMemoryStore(popts...)
	}
	if e.usage == nil {
		e.usage = prefs.NewMemoryUsageStore(prefs.WithUsageClock(e.now))
	}
	if e.tracker == nil {
		e.tracker = presence.NewMemoryTracker(presence.WithClock(e.now))
	}
	if e.trail == nil {
		e.trail = audit.NewMemoryStorage()
	}
	if e.builder == nil {
		e.builder = content.NewBuilder()
	}

	e.gate = prefs.NewGate(e.prefStore, e.usage, prefs.WithGateClock(e.now))

	e.registry = provider.NewRegistry(e.breakerCfg)
	for _, reg := range e.registrations {
		if err := e.registry.Register(reg.provider, reg.config); err != nil {
			return nil, fmt.Errorf("register provider: %w", err)
		}
	}

	managerOpts := []provider.ManagerOption{provider.WithAttemptObserver(e.recordAttempt)}
	if e.attemptTimeout > 0 {
		managerOpts = append(managerOpts, provider.WithAttemptTimeout(e.attemptTimeout))
	}
	e.manager = provider.NewManager(e.registry, managerOpts...)

	recorder, err := audit.NewAsyncWriter(e.trail, audit.WithLogger(e.logger))
	if err != nil {
		return nil, fmt.Errorf("create audit recorder: %w", err)
	}
	e.recorder = recorder

	processorOpts := append(e.queueCfg.Options(), queue.WithProcessorLogger(e.logger))
	processor, err := queue.NewProcessor(e.storage, e.manager, e.gate, e.tracker, processorOpts...)
	if err != nil {
		return nil, fmt.Errorf("create processor: %w", err)
	}
	e.processor = processor

	return e, nil
}

// Run starts the background machinery: the queue sweeps (pending, retry,
// cleanup) and the provider health refresher. It blocks until ctx is
// cancelled, then stops everything gracefully and closes the engine.
//
// Run is optional. Without it the engine still accepts, gates, and queues
// notifications, and Notify and MarkUserOnline still deliver synchronously;
// only retries, expiry, and health probing stay dormant.
func (e *Engine) Run(ctx context.Context) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(e.processor.Run(gctx))
	g.Go(func() error {
		e.registry.RunHealthRefresh(gctx, e.healthInterval, e.probeTimeout)
		return nil
	})

	err := g.Wait()

	// Detached so buffered audit events flush even though ctx is done.
	closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return errors.Join(err, e.Close(closeCtx))
}

// Close flushes the audit recorder and marks the engine closed. Subsequent
// Notify calls return ErrEngineClosed. Close is idempotent; Run calls it on
// the way out.
func (e *Engine) Close(ctx context.Context) error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	return e.recorder.Close(ctx)
}

// MarkUserOnline records the user's live delivery path and synchronously
// drains their queued notifications in priority order.
func (e *Engine) MarkUserOnline(ctx context.Context, userID uuid.UUID, kind presence.Kind) error {
	if userID == uuid.Nil {
		return ErrInvalidUserID
	}
	if err := e.tracker.SetOnline(ctx, userID, kind); err != nil {
		return fmt.Errorf("mark user online: %w", err)
	}

	flushed, err := e.processor.FlushUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("flush queued notifications: %w", err)
	}
	if flushed > 0 {
		e.logger.Info("queued notifications flushed on reconnect",
			logger.UserID(userID),
			slog.Int("count", flushed))
	}
	return nil
}

// MarkUserOffline clears the user's live delivery path. Their notifications
// stay queued until reconnect or expiry.
func (e *Engine) MarkUserOffline(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return ErrInvalidUserID
	}
	return e.tracker.SetOffline(ctx, userID)
}

// Cancel withdraws a queued notification. In-flight and terminal
// notifications cannot be cancelled; see queue.Storage.Cancel for the
// error contract.
func (e *Engine) Cancel(ctx context.Context, id uuid.UUID) error {
	return e.storage.Cancel(ctx, id)
}

// QueueStats reports queue counters grouped by lifecycle state.
func (e *Engine) QueueStats(ctx context.Context) (queue.Stats, error) {
	return e.storage.Stats(ctx)
}

// ProviderHealth reports every registered provider's current health.
func (e *Engine) ProviderHealth() []provider.Health {
	return e.registry.Health()
}

// SetProviderEnabled toggles a provider's participation in delivery at
// runtime. Disabled providers stay registered and keep reporting health.
func (e *Engine) SetProviderEnabled(name string, enabled bool) error {
	return e.registry.SetEnabled(name, enabled)
}

// AuditTrail queries the delivery audit trail. Events recorded moments ago
// may lag the trail by the async writer's flush interval.
func (e *Engine) AuditTrail(ctx context.Context, criteria audit.Criteria) ([]audit.Event, error) {
	return e.trail.Query(ctx, criteria)
}

// Preferences returns the user's notification settings, falling back to the
// configured defaults for users who never saved any.
func (e *Engine) Preferences(ctx context.Context, userID uuid.UUID) (prefs.Preferences, error) {
	return e.prefStore.Get(ctx, userID)
}

// SetPreferences replaces the user's notification settings.
func (e *Engine) SetPreferences(ctx context.Context, p prefs.Preferences) error {
	return e.prefStore.Save(ctx, p)
}

// UpdatePreferences applies a sparse patch to the user's settings and
// returns the result.
func (e *Engine) UpdatePreferences(ctx context.Context, userID uuid.UUID, patch prefs.Patch) (prefs.Preferences, error) {
	return e.prefStore.Patch(ctx, userID, patch)
}

// IngestHandler adapts the engine for pkg/ingest: each upstream event is
// turned into a Notify call. Unknown priorities are reported back so the
// consumer logs and skips the event.
func (e *Engine) IngestHandler() ingest.Handler {
	return func(ctx context.Context, ev ingest.Event) error {
		var opts []NotifyOption
		if ev.Priority != "" {
			p := queue.Priority(ev.Priority)
			if !p.Valid() {
				return fmt.Errorf("%w: %q", ErrInvalidPriority, ev.Priority)
			}
			opts = append(opts, WithPriority(p))
		}
		_, err := e.Notify(ctx, ev.UserID, content.Event(ev.Name), ev.Params, opts...)
		return err
	}
}

// recordAttempt folds one provider attempt into the audit trail. It runs on
// the dispatch goroutine with its own deadline so a stalled trail never
// blocks delivery.
func (e *Engine) recordAttempt(a provider.Attempt) {
	var ev audit.Event
	if a.Success {
		ev = audit.Delivered(a.NotificationID, a.UserID, a.Type, a.Provider, a.Duration)
	} else {
		ev = audit.Failed(a.NotificationID, a.UserID, a.Type, a.Provider, a.Duration, a.Err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	e.record(ctx, ev)
}

// record hands one event to the async audit writer; failures degrade to a
// log line rather than failing the delivery path.
func (e *Engine) record(ctx context.Context, ev audit.Event) {
	if err := e.recorder.Record(ctx, ev); err != nil {
		e.logger.Warn("audit record failed",
			logger.UserID(ev.UserID),
			logger.NotificationType(ev.NotificationType),
			logger.Error(err))
	}
}

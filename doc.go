// Package notifykit turns domain events into reliably delivered, per-user
// gated notifications across heterogeneous channels: live socket
// connections, Expo and FCM push gateways, and email.
//
// The Engine facade wires the pipeline together:
//
//   - pkg/content renders an event into title, body, and payload for the
//     user's language.
//   - pkg/prefs gates it: disabled types and channels block, quiet hours
//     defer, frequency caps reserve atomically.
//   - pkg/queue persists it and owns the delivery lifecycle with retry
//     backoff and TTL expiry.
//   - pkg/provider walks the delivery channels in priority order behind
//     per-provider circuit breakers.
//   - pkg/presence decides whether delivery is attempted now or waits for
//     the user to reconnect.
//   - pkg/audit records every provider attempt and every preference block.
//
// # Usage
//
// An engine with no options runs entirely in memory:
//
//	engine, err := notifykit.New(
//	    notifykit.WithProvider(socketProvider, provider.Config{Enabled: true, Priority: 1}),
//	    notifykit.WithProvider(expoProvider, provider.Config{Enabled: true, Priority: 2}),
//	)
//	if err != nil {
//	    return err
//	}
//
//	receipt, err := engine.Notify(ctx, userID, content.EventComment, map[string]string{
//	    "actor": "alice",
//	})
//
// Offline users keep their notifications queued; delivery happens when the
// connection layer reports them back:
//
//	_ = engine.MarkUserOnline(ctx, userID, presence.KindSocket)
//
// Background retries, expiry, and provider health probing run under Run:
//
//	g, ctx := errgroup.WithContext(ctx)
//	g.Go(func() error { return engine.Run(ctx) })
//
// # Durable backends
//
// Production deployments swap the in-memory defaults for shared backends:
// PostgreSQL for the queue and preferences (migrations/ has the schema),
// Redis for presence and frequency caps, MongoDB or PostgreSQL for the
// audit trail. OpenPostgres, OpenRedis, and OpenMongoAudit dial with startup
// retry and hand back ready-made option sets:
//
//	pgb, err := notifykit.OpenPostgres(ctx, pgCfg, log)
//	if err != nil {
//	    return err
//	}
//	defer pgb.Close()
//
//	rdb, err := notifykit.OpenRedis(ctx, redisCfg, cfg.Presence, prefs.RedisUsageConfig{})
//	if err != nil {
//	    return err
//	}
//	defer rdb.Close()
//
//	opts := append(pgb.Options(), rdb.Options()...)
//	opts = append(opts,
//	    notifykit.WithConfig(cfg),
//	    notifykit.WithProvider(emailProvider, provider.Config{Enabled: true, Priority: 3}),
//	)
//	engine, err := notifykit.New(opts...)
//
// Upstream events can flow in from Kafka through pkg/ingest, and pkg/ops
// exposes the read-only operational surface (queue stats, provider health,
// audit queries) as a chi router.
package notifykit

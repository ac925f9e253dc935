package notifykit

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	gomongo "go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/dmitrymomot/notifykit/pkg/audit"
	"github.com/dmitrymomot/notifykit/pkg/device"
	"github.com/dmitrymomot/notifykit/pkg/mongo"
	"github.com/dmitrymomot/notifykit/pkg/pg"
	"github.com/dmitrymomot/notifykit/pkg/prefs"
	"github.com/dmitrymomot/notifykit/pkg/presence"
	"github.com/dmitrymomot/notifykit/pkg/queue"
	"github.com/dmitrymomot/notifykit/pkg/redis"
)

// PostgresBackends bundles the durable stores that share one connection pool:
// the notification queue, user preferences, the device token registry, and
// the relational audit trail.
type PostgresBackends struct {
	Pool    *pgxpool.Pool
	Queue   *queue.PostgresStorage
	Prefs   *prefs.PostgresStore
	Devices *device.PostgresStore
	Audit   *audit.PostgresStorage
}

// OpenPostgres connects with startup retry, applies pending migrations, and
// builds every store on the resulting pool. Store options are forwarded to
// the preference store, which is where deployments plug custom defaults.
func OpenPostgres(ctx context.Context, cfg pg.Config, log *slog.Logger, opts ...prefs.StoreOption) (*PostgresBackends, error) {
	if log == nil {
		log = slog.Default()
	}

	pool, err := pg.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pg.Migrate(ctx, pool, cfg, log); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresBackends{
		Pool:    pool,
		Queue:   queue.NewPostgresStorage(pool),
		Prefs:   prefs.NewPostgresStore(pool, opts...),
		Devices: device.NewPostgresStore(pool),
		Audit:   audit.NewPostgresStorage(pool),
	}, nil
}

// Options returns the engine options that swap the in-memory defaults for
// the pool-backed stores. The device registry is not engine-owned, so
// callers hand Devices to their push providers directly.
func (b *PostgresBackends) Options() []Option {
	return []Option{
		WithQueueStorage(b.Queue),
		WithPreferencesStore(b.Prefs),
		WithAuditStorage(b.Audit),
	}
}

// Readiness feeds ops.RouterOptions.Readiness.
func (b *PostgresBackends) Readiness() func(context.Context) error {
	return pg.Healthcheck(b.Pool)
}

// Close releases the pool. Call after the engine has shut down.
func (b *PostgresBackends) Close() {
	b.Pool.Close()
}

// RedisBackends bundles the shared-state stores Redis carries: the presence
// tracker and the frequency-cap usage counters.
type RedisBackends struct {
	Client  *goredis.Client
	Tracker *presence.RedisTracker
	Usage   *prefs.RedisUsageStore
}

// OpenRedis dials Redis with startup retry and builds both stores on the
// resulting client.
func OpenRedis(ctx context.Context, cfg redis.Config, tracker presence.RedisTrackerConfig, usage prefs.RedisUsageConfig) (*RedisBackends, error) {
	client, err := redis.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &RedisBackends{
		Client:  client,
		Tracker: presence.NewRedisTracker(client, tracker),
		Usage:   prefs.NewRedisUsageStore(client, usage),
	}, nil
}

// Options returns the engine options that swap the in-memory defaults for
// the Redis-backed stores.
func (b *RedisBackends) Options() []Option {
	return []Option{
		WithPresenceTracker(b.Tracker),
		WithUsageStore(b.Usage),
	}
}

// Readiness feeds ops.RouterOptions.Readiness.
func (b *RedisBackends) Readiness() func(context.Context) error {
	return redis.Healthcheck(b.Client)
}

// Close releases the client. Call after the engine has shut down.
func (b *RedisBackends) Close() error {
	return b.Client.Close()
}

// MongoAuditBackend routes the delivery audit trail to MongoDB for
// deployments that keep the append-heavy event stream out of PostgreSQL.
type MongoAuditBackend struct {
	Client *gomongo.Client
	Trail  *audit.MongoStorage
}

// OpenMongoAudit dials MongoDB with startup retry and builds the audit
// storage on the named database and collection.
func OpenMongoAudit(ctx context.Context, cfg mongo.Config, database, collection string) (*MongoAuditBackend, error) {
	client, err := mongo.New(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &MongoAuditBackend{
		Client: client,
		Trail:  audit.NewMongoStorage(client.Database(database), collection),
	}, nil
}

// Option returns the engine option that routes the audit trail to MongoDB.
// Apply it after PostgresBackends.Options to override the relational trail.
func (b *MongoAuditBackend) Option() Option {
	return WithAuditStorage(b.Trail)
}

// Readiness feeds ops.RouterOptions.Readiness.
func (b *MongoAuditBackend) Readiness() func(context.Context) error {
	return mongo.Healthcheck(b.Client)
}

// Close disconnects the client. Call after the engine has shut down.
func (b *MongoAuditBackend) Close(ctx context.Context) error {
	return b.Client.Disconnect(ctx)
}

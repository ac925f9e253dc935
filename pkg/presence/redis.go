package presence

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultKeyPrefix = "presence:"
	defaultTTL       = 5 * time.Minute

	fieldKind     = "kind"
	fieldLastSeen = "last_seen"
)

// RedisTrackerConfig controls Redis-backed presence tracking.
type RedisTrackerConfig struct {
	KeyPrefix string        `env:"PRESENCE_REDIS_KEY_PREFIX" envDefault:"presence:"`
	TTL       time.Duration `env:"PRESENCE_TTL" envDefault:"5m"`
}

// RedisTracker stores presence in Redis with a TTL so crashed clients fall
// offline automatically once their heartbeat stops. Fits deployments where
// several processes share one presence view.
type RedisTracker struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

// NewRedisTracker creates a tracker on an existing Redis client. Zero config
// fields fall back to the package defaults.
func NewRedisTracker(client redis.UniversalClient, cfg RedisTrackerConfig) *RedisTracker {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = defaultKeyPrefix
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}
	return &RedisTracker{
		client:    client,
		keyPrefix: cfg.KeyPrefix,
		ttl:       cfg.TTL,
	}
}

func (t *RedisTracker) key(userID uuid.UUID) string {
	return t.keyPrefix + userID.String()
}

func (t *RedisTracker) SetOnline(ctx context.Context, userID uuid.UUID, kind Kind) error {
	switch kind {
	case KindSocket, KindPush:
	default:
		return ErrInvalidKind
	}

	key := t.key(userID)
	_, err := t.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			fieldKind, string(kind),
			fieldLastSeen, strconv.FormatInt(time.Now().Unix(), 10),
		)
		pipe.Expire(ctx, key, t.ttl)
		return nil
	})
	if err != nil {
		return errors.Join(ErrUnavailable, err)
	}
	return nil
}

func (t *RedisTracker) SetOffline(ctx context.Context, userID uuid.UUID) error {
	if err := t.client.Del(ctx, t.key(userID)).Err(); err != nil {
		return errors.Join(ErrUnavailable, err)
	}
	return nil
}

func (t *RedisTracker) IsOnline(ctx context.Context, userID uuid.UUID) (bool, error) {
	n, err := t.client.Exists(ctx, t.key(userID)).Result()
	if err != nil {
		return false, errors.Join(ErrUnavailable, err)
	}
	return n > 0, nil
}

func (t *RedisTracker) Get(ctx context.Context, userID uuid.UUID) (Status, error) {
	fields, err := t.client.HGetAll(ctx, t.key(userID)).Result()
	if err != nil {
		return Status{}, errors.Join(ErrUnavailable, err)
	}
	if len(fields) == 0 {
		return Status{UserID: userID, Online: false, Kind: KindNone}, nil
	}

	status := Status{UserID: userID, Online: true, Kind: Kind(fields[fieldKind])}
	if raw, ok := fields[fieldLastSeen]; ok {
		if unix, err := strconv.ParseInt(raw, 10, 64); err == nil {
			status.LastSeen = time.Unix(unix, 0)
		}
	}
	return status, nil
}

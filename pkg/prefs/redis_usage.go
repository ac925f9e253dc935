package prefs

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultUsageKeyPrefix = "notify:usage:"

// reserveScript implements check-and-increment for both rolling windows in a
// single atomic step. The sorted set holds one member per delivered
// notification scored by its unix-milli timestamp; membership older than the
// daily window is pruned on every call.
var reserveScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local hour_ago = ARGV[2]
local day_ago = tonumber(ARGV[3])
local per_hour = tonumber(ARGV[4])
local per_day = tonumber(ARGV[5])
local member = ARGV[6]

redis.call('ZREMRANGEBYSCORE', key, 0, day_ago)
local daily = redis.call('ZCARD', key)
local hourly = redis.call('ZCOUNT', key, '(' .. hour_ago, '+inf')

if per_hour > 0 and hourly >= per_hour then
  return {0, hourly, daily}
end
if per_day > 0 and daily >= per_day then
  return {0, hourly, daily}
end

redis.call('ZADD', key, now, member)
redis.call('PEXPIRE', key, 90000000)
return {1, hourly + 1, daily + 1}
`)

// RedisUsageConfig controls Redis-backed usage metering.
type RedisUsageConfig struct {
	KeyPrefix string `env:"USAGE_REDIS_KEY_PREFIX" envDefault:"notify:usage:"`
}

// RedisUsageStore meters usage in Redis sorted sets so several processes
// share one cap view. Reservations run as a Lua script, which gives the same
// atomicity as the in-memory mutex.
type RedisUsageStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisUsageStore creates a usage meter on an existing Redis client.
func NewRedisUsageStore(client redis.UniversalClient, cfg RedisUsageConfig) *RedisUsageStore {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = defaultUsageKeyPrefix
	}
	return &RedisUsageStore{client: client, keyPrefix: cfg.KeyPrefix}
}

func (s *RedisUsageStore) key(userID uuid.UUID) string {
	return s.keyPrefix + userID.String()
}

func (s *RedisUsageStore) Reserve(ctx context.Context, userID uuid.UUID, limits Limits) (Usage, bool, error) {
	now := time.Now()
	args := []any{
		now.UnixMilli(),
		strconv.FormatInt(now.Add(-time.Hour).UnixMilli(), 10),
		now.Add(-24 * time.Hour).UnixMilli(),
		limits.PerHour,
		limits.PerDay,
		uuid.NewString(),
	}

	res, err := reserveScript.Run(ctx, s.client, []string{s.key(userID)}, args...).Int64Slice()
	if err != nil {
		return Usage{}, false, errors.Join(ErrStorageFailure, err)
	}
	if len(res) != 3 {
		return Usage{}, false, ErrStorageFailure
	}

	usage := Usage{Hourly: int(res[1]), Daily: int(res[2])}
	return usage, res[0] == 1, nil
}

func (s *RedisUsageStore) Current(ctx context.Context, userID uuid.UUID) (Usage, error) {
	now := time.Now()
	key := s.key(userID)
	hourAgo := "(" + strconv.FormatInt(now.Add(-time.Hour).UnixMilli(), 10)
	dayAgo := "(" + strconv.FormatInt(now.Add(-24*time.Hour).UnixMilli(), 10)

	pipe := s.client.Pipeline()
	hourly := pipe.ZCount(ctx, key, hourAgo, "+inf")
	daily := pipe.ZCount(ctx, key, dayAgo, "+inf")
	if _, err := pipe.Exec(ctx); err != nil {
		return Usage{}, errors.Join(ErrStorageFailure, err)
	}

	return Usage{Hourly: int(hourly.Val()), Daily: int(daily.Val())}, nil
}

package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/tiffintracker/tiffin/internal/config"
)

const redisKeyPrefix = "tiffin:lock:"

// RedisLocker is a Locker backed by Redis, for setups where several processes
// write to the same store.
type RedisLocker struct {
	client  *redislock.Client
	ttl     time.Duration
	backoff time.Duration
}

func NewRedisLocker(client redis.UniversalClient, ttl time.Duration) *RedisLocker {
	return &RedisLocker{
		client:  redislock.New(client),
		ttl:     ttl,
		backoff: 50 * time.Millisecond,
	}
}

// NewRedisClient connects to the Redis instance described by cfg and checks it is reachable.
func NewRedisClient(ctx context.Context, cfg config.Lock) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("could not connect to redis at %s: %w", cfg.RedisAddr, err)
	}
	return rdb, nil
}

// Lock retries with a linear backoff until the lock is obtained, ctx is done or
// the TTL elapses.
func (r *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	lockKey := redisKeyPrefix + key
	l, err := r.client.Obtain(ctx, lockKey, r.ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(r.backoff),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%w: %s", ErrNotObtained, key)
	} else if err != nil {
		return nil, fmt.Errorf("could not obtain redis lock %s: %w", lockKey, err)
	}

	return func() {
		// Release must not be tied to a request context that may already be cancelled.
		if err := l.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			log.WithField("key", lockKey).Warnf("could not release redis lock: %v", err)
		}
	}, nil
}

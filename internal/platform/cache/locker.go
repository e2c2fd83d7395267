package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/shared"
)

const (
	defaultLockTTL = 30 * time.Second
	lockRetryStep  = 100 * time.Millisecond
	lockRetries    = 30
)

// Locker obtains reconciliation locks from Redis.
type Locker struct {
	client *redislock.Client
	ttl    time.Duration
}

// NewLocker wraps client. A non-positive ttl falls back to 30s.
func NewLocker(client redis.UniversalClient, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &Locker{client: redislock.New(client), ttl: ttl}
}

// Obtain waits up to ~3s for key before giving up with shared.ErrLockNotObtained.
func (l *Locker) Obtain(ctx context.Context, key string) (func(context.Context) error, error) {
	lock, err := l.client.Obtain(ctx, key, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(lockRetryStep), lockRetries),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("platform/cache: %s: %w", key, shared.ErrLockNotObtained)
	}
	if err != nil {
		return nil, fmt.Errorf("platform/cache: obtain %s: %w", key, err)
	}
	return func(ctx context.Context) error {
		err := lock.Release(ctx)
		if errors.Is(err, redislock.ErrLockNotHeld) {
			// ttl ran out before release; the work already committed.
			return nil
		}
		return err
	}, nil
}

package locker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisLocker implements DistributedLocker with Redsync (Redlock on a single pool).
type RedisLocker struct {
	client  *redis.Client
	rs      *redsync.Redsync
	logger  *zap.Logger
	mutexes map[string]*redsync.Mutex
	mu      sync.Mutex
}

// NewRedisLocker creates a new Redis-based distributed locker.
func NewRedisLocker(client *redis.Client, logger *zap.Logger) *RedisLocker {
	return &RedisLocker{
		client:  client,
		rs:      redsync.New(goredis.NewPool(client)),
		logger:  logger,
		mutexes: make(map[string]*redsync.Mutex),
	}
}

// Acquire takes the lock with a random token as value.
func (r *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return r.AcquireAs(ctx, key, "", ttl)
}

// AcquireAs takes the lock with owner as value. An empty owner falls back to
// a random token. Owners must be unique per acquisition since Redsync only
// releases a lock whose value matches.
func (r *RedisLocker) AcquireAs(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	opts := []redsync.Option{
		redsync.WithExpiry(ttl),
		redsync.WithTries(1), // non-blocking
	}
	if owner != "" {
		opts = append(opts, redsync.WithGenValueFunc(func() (string, error) {
			return owner, nil
		}))
	}
	mutex := r.rs.NewMutex(key, opts...)

	if err := mutex.LockContext(ctx); err != nil {
		// Contention surfaces either as ErrFailed or as a wrapped "lock already taken".
		if errors.Is(err, redsync.ErrFailed) || strings.Contains(err.Error(), "lock already taken") {
			r.logger.Debug("lock already held",
				zap.String("key", key),
			)
			return false, nil
		}

		return false, fmt.Errorf("acquire lock %s: %w", key, err)
	}

	r.mu.Lock()
	r.mutexes[key] = mutex
	r.mu.Unlock()

	r.logger.Debug("lock acquired",
		zap.String("key", key),
		zap.String("owner", owner),
		zap.Duration("ttl", ttl),
	)

	return true, nil
}

// Release releases the lock if and only if this instance owns it.
func (r *RedisLocker) Release(ctx context.Context, key string) error {
	r.mu.Lock()
	mutex, exists := r.mutexes[key]
	if exists {
		delete(r.mutexes, key)
	}
	r.mu.Unlock()

	if !exists {
		r.logger.Debug("lock not owned by this instance",
			zap.String("key", key),
		)
		return nil
	}

	ok, err := mutex.UnlockContext(ctx)
	if err != nil {
		// An expired lock is reported as an error by Redsync; nothing is left to release.
		if errors.Is(err, redsync.ErrLockAlreadyExpired) {
			r.logger.Debug("lock already expired", zap.String("key", key))
			return nil
		}

		return fmt.Errorf("release lock %s: %w", key, err)
	}

	r.logger.Debug("lock released",
		zap.String("key", key),
		zap.Bool("owned", ok),
	)

	return nil
}

// Owner reads the value of the current holder.
func (r *RedisLocker) Owner(ctx context.Context, key string) (string, error) {
	owner, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading lock owner %s: %w", key, err)
	}

	return owner, nil
}

package redis

import (
	"context"
	"time"

	"go.uber.org/zap"

	"provider-sync-service/internal/domain"
	"provider-sync-service/pkg/locker"
)

// ScopeLock implements domain.ScopeLock on a distributed locker. The holder's
// worker id is stored as the lock value; the marker expires after ttl if a
// worker dies without clearing it.
type ScopeLock struct {
	locker    locker.DistributedLocker
	logger    *zap.Logger
	keyPrefix string
	ttl       time.Duration
}

// NewScopeLock creates a new scope lock.
func NewScopeLock(l locker.DistributedLocker, logger *zap.Logger, keyPrefix string, ttl time.Duration) *ScopeLock {
	return &ScopeLock{
		locker:    l,
		logger:    logger,
		keyPrefix: keyPrefix,
		ttl:       ttl,
	}
}

// MarkSyncing marks the scope as syncing for workerID.
func (l *ScopeLock) MarkSyncing(ctx context.Context, scopeKey, workerID string) error {
	key := l.buildKey(scopeKey)

	acquired, err := l.locker.AcquireAs(ctx, key, workerID, l.ttl)
	if err != nil {
		return err
	}
	if !acquired {
		holder, err := l.locker.Owner(ctx, key)
		if err != nil {
			l.logger.Warn("failed to read syncing marker holder", zap.String("key", key), zap.Error(err))
		}

		return &domain.ScopeSyncingError{Scope: scopeKey, Holder: holder}
	}

	return nil
}

// ClearSyncing removes the marker set by this instance.
func (l *ScopeLock) ClearSyncing(ctx context.Context, scopeKey string) error {
	return l.locker.Release(ctx, l.buildKey(scopeKey))
}

func (l *ScopeLock) buildKey(scopeKey string) string {
	return l.keyPrefix + ":" + scopeKey
}

// Package locker provides distributed locks shared by every service instance.
package locker

import (
	"context"
	"time"
)

// DistributedLocker provides distributed lock capabilities across multiple instances.
// Implementations must be safe for concurrent use.
//
// Typical usage:
//
//	acquired, err := locker.Acquire(ctx, "sync:scheduler", time.Hour)
//	if err != nil {
//	    return err
//	}
//	if !acquired {
//	    return nil
//	}
//	defer locker.Release(ctx, "sync:scheduler")
type DistributedLocker interface {
	// Acquire attempts to take the lock without waiting.
	// Returns false when another holder has it. The lock expires after ttl.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// AcquireAs is Acquire with owner stored as the lock value, so Owner can report it.
	AcquireAs(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)

	// Release releases a lock taken by this instance. Releasing a lock
	// this instance does not hold is a no-op.
	Release(ctx context.Context, key string) error

	// Owner returns the value stored by the current holder, or "" when the key is free.
	Owner(ctx context.Context, key string) (string, error)
}

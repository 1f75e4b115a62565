package locker

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testLockKey = "test:lock"

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, client
}

// TestRedisLocker_Acquire tests that a free key is acquired once.
func TestRedisLocker_Acquire(t *testing.T) {
	_, client := setupTestRedis(t)
	first := NewRedisLocker(client, zap.NewNop())
	second := NewRedisLocker(client, zap.NewNop())
	ctx := context.Background()

	acquired, err := first.Acquire(ctx, testLockKey, 5*time.Second)
	require.NoError(t, err)
	assert.True(t, acquired)

	acquired, _ = second.Acquire(ctx, testLockKey, 5*time.Second)
	assert.False(t, acquired, "a held lock must not be acquired twice")
}

// TestRedisLocker_Release tests that a released lock can be taken again.
func TestRedisLocker_Release(t *testing.T) {
	_, client := setupTestRedis(t)
	l := NewRedisLocker(client, zap.NewNop())
	ctx := context.Background()

	acquired, err := l.Acquire(ctx, testLockKey, 5*time.Second)
	require.NoError(t, err)
	require.True(t, acquired)

	require.NoError(t, l.Release(ctx, testLockKey))

	acquired, err = l.Acquire(ctx, testLockKey, 5*time.Second)
	require.NoError(t, err)
	assert.True(t, acquired)
}

// TestRedisLocker_Release_NotOwned tests that releasing another instance's lock is a no-op.
func TestRedisLocker_Release_NotOwned(t *testing.T) {
	mr, client := setupTestRedis(t)
	owner := NewRedisLocker(client, zap.NewNop())
	other := NewRedisLocker(client, zap.NewNop())
	ctx := context.Background()

	acquired, err := owner.Acquire(ctx, testLockKey, 5*time.Second)
	require.NoError(t, err)
	require.True(t, acquired)

	require.NoError(t, other.Release(ctx, testLockKey))
	assert.True(t, mr.Exists(testLockKey))

	require.NoError(t, owner.Release(ctx, testLockKey))
	assert.False(t, mr.Exists(testLockKey))
}

// TestRedisLocker_Release_Expired tests that releasing an expired lock is not an error.
func TestRedisLocker_Release_Expired(t *testing.T) {
	mr, client := setupTestRedis(t)
	l := NewRedisLocker(client, zap.NewNop())
	ctx := context.Background()

	acquired, err := l.Acquire(ctx, testLockKey, time.Second)
	require.NoError(t, err)
	require.True(t, acquired)
	mr.FastForward(2 * time.Second)

	assert.NoError(t, l.Release(ctx, testLockKey))
}

// TestRedisLocker_AcquireAs tests that the owner is stored as the lock value.
func TestRedisLocker_AcquireAs(t *testing.T) {
	_, client := setupTestRedis(t)
	l := NewRedisLocker(client, zap.NewNop())
	ctx := context.Background()

	owner, err := l.Owner(ctx, testLockKey)
	require.NoError(t, err)
	assert.Empty(t, owner)

	acquired, err := l.AcquireAs(ctx, testLockKey, "worker-1", 5*time.Second)
	require.NoError(t, err)
	require.True(t, acquired)

	owner, err = l.Owner(ctx, testLockKey)
	require.NoError(t, err)
	assert.Equal(t, "worker-1", owner)

	require.NoError(t, l.Release(ctx, testLockKey))
	owner, err = l.Owner(ctx, testLockKey)
	require.NoError(t, err)
	assert.Empty(t, owner)
}

// TestRedisLocker_ConcurrentAcquisition tests that exactly one of several instances wins.
func TestRedisLocker_ConcurrentAcquisition(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()

	const numInstances = 5
	results := make(chan bool, numInstances)
	for range numInstances {
		go func() {
			acquired, _ := NewRedisLocker(client, zap.NewNop()).Acquire(ctx, testLockKey, 2*time.Second)
			results <- acquired
		}()
	}

	successCount := 0
	for range numInstances {
		if <-results {
			successCount++
		}
	}

	assert.Equal(t, 1, successCount)
}

// TestRedisLocker_ContextCancellation tests that a cancelled context is an error, not contention.
func TestRedisLocker_ContextCancellation(t *testing.T) {
	_, client := setupTestRedis(t)
	l := NewRedisLocker(client, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	acquired, err := l.Acquire(ctx, testLockKey, 5*time.Second)
	assert.Error(t, err)
	assert.False(t, acquired)
}

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotLockExcludesConcurrentHolder(t *testing.T) {
	ctx := context.Background()
	locker := NewRedisSlotLocker(testRedis(t), 5*time.Second)

	var second error
	err := locker.WithSlotLock(ctx, "2026-04-01T10:00:00Z", func(ctx context.Context) error {
		// While the first caller holds the lock, a second reserve attempt on
		// the same time range must bounce.
		second = locker.WithSlotLock(ctx, "2026-04-01T10:00:00Z", func(ctx context.Context) error {
			t.Fatal("second caller must not enter the critical section")
			return nil
		})
		return nil
	})
	require.NoError(t, err)
	assert.ErrorIs(t, second, ErrLockNotAcquired)
}

func TestSlotLockReleasesAfterUse(t *testing.T) {
	ctx := context.Background()
	locker := NewRedisSlotLocker(testRedis(t), 5*time.Second)

	require.NoError(t, locker.WithSlotLock(ctx, "k", func(ctx context.Context) error { return nil }))

	entered := false
	require.NoError(t, locker.WithSlotLock(ctx, "k", func(ctx context.Context) error {
		entered = true
		return nil
	}))
	assert.True(t, entered)
}

func TestSlotLocksAreIndependentPerTimeRange(t *testing.T) {
	ctx := context.Background()
	locker := NewRedisSlotLocker(testRedis(t), 5*time.Second)

	err := locker.WithSlotLock(ctx, "2026-04-01T10:00:00Z", func(ctx context.Context) error {
		return locker.WithSlotLock(ctx, "2026-04-01T11:00:00Z", func(ctx context.Context) error {
			return nil
		})
	})
	assert.NoError(t, err)
}

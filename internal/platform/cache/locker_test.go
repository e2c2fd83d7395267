package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/shared"
)

func newTestLocker(t *testing.T) (*Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLocker(client, time.Minute), mr
}

func TestLockerObtainAndRelease(t *testing.T) {
	locker, mr := newTestLocker(t)
	ctx := context.Background()

	release, err := locker.Obtain(ctx, shared.InvoiceLockKey())
	require.NoError(t, err)
	assert.True(t, mr.Exists(shared.InvoiceLockKey()))

	require.NoError(t, release(ctx))
	assert.False(t, mr.Exists(shared.InvoiceLockKey()))

	release, err = locker.Obtain(ctx, shared.InvoiceLockKey())
	require.NoError(t, err)
	require.NoError(t, release(ctx))
}

func TestLockerHeldKeyIsConflict(t *testing.T) {
	locker, _ := newTestLocker(t)
	ctx := context.Background()

	release, err := locker.Obtain(ctx, shared.PayrollLockKey("2024-01"))
	require.NoError(t, err)
	defer func() { _ = release(ctx) }()

	short, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()
	_, err = locker.Obtain(short, shared.PayrollLockKey("2024-01"))
	require.Error(t, err)

	other, err := locker.Obtain(ctx, shared.PayrollLockKey("2024-02"))
	require.NoError(t, err)
	require.NoError(t, other(ctx))
}

func TestLockerReleaseAfterExpiry(t *testing.T) {
	locker, mr := newTestLocker(t)
	ctx := context.Background()

	release, err := locker.Obtain(ctx, shared.InstallmentLockKey())
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)
	assert.NoError(t, release(ctx))
}

func TestWithLockRunsUnderRedis(t *testing.T) {
	locker, mr := newTestLocker(t)
	ran := false
	err := shared.WithLock(context.Background(), locker, "recon:test", func(context.Context) error {
		ran = true
		assert.True(t, mr.Exists("recon:test"))
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.False(t, mr.Exists("recon:test"))
}

func TestNewPingsServer(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := New(context.Background(), mr.Addr(), 4)
	require.NoError(t, err)
	assert.Equal(t, 4, client.Options().PoolSize)
	require.NoError(t, client.Close())

	mr.Close()
	_, err = New(context.Background(), mr.Addr(), 0)
	assert.ErrorContains(t, err, "platform/cache: ping")
}

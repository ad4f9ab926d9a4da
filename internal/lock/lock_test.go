package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLockers(t *testing.T) map[string]func() Locker {
	t.Helper()

	return map[string]func() Locker{
		"memory": func() Locker {
			ml := NewMemoryLocker()
			t.Cleanup(ml.Stop)
			return ml
		},
		"redis": func() Locker {
			mr := miniredis.RunT(t)
			client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { _ = client.Close() })
			return NewRedisLocker(client)
		},
	}
}

func TestLocker_AcquireRelease(t *testing.T) {
	for name, newLocker := range newLockers(t) {
		t.Run(name, func(t *testing.T) {
			l := newLocker()
			ctx := context.Background()

			ok, err := l.Acquire(ctx, "k", time.Minute)
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = l.Acquire(ctx, "k", time.Minute)
			require.NoError(t, err)
			assert.False(t, ok)

			released, err := l.Release(ctx, "k")
			require.NoError(t, err)
			assert.True(t, released)

			released, err = l.Release(ctx, "k")
			require.NoError(t, err)
			assert.False(t, released)

			ok, err = l.Acquire(ctx, "k", time.Minute)
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestWithLock_SerializesCriticalSection(t *testing.T) {
	for name, newLocker := range newLockers(t) {
		t.Run(name, func(t *testing.T) {
			l := newLocker()
			policy := RetryPolicy{TTL: time.Second, MaxRetries: 200, RetryDelay: time.Millisecond}

			var inside, maxInside int32
			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					err := WithLock(context.Background(), l, Keys.Username("alice"), policy, func(ctx context.Context) error {
						n := atomic.AddInt32(&inside, 1)
						for {
							m := atomic.LoadInt32(&maxInside)
							if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
								break
							}
						}
						time.Sleep(time.Millisecond)
						atomic.AddInt32(&inside, -1)
						return nil
					})
					assert.NoError(t, err)
				}()
			}
			wg.Wait()

			assert.Equal(t, int32(1), atomic.LoadInt32(&maxInside))
		})
	}
}

func TestWithLock_NotAcquired(t *testing.T) {
	l := NewMemoryLocker()
	defer l.Stop()
	ctx := context.Background()

	ok, err := l.Acquire(ctx, Keys.Username("bob"), time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	called := false
	err = WithLock(ctx, l, Keys.Username("bob"), RetryPolicy{TTL: time.Second, MaxRetries: 1, RetryDelay: time.Millisecond}, func(ctx context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrNotAcquired)
	assert.False(t, called)
}

func TestWithLock_ReleasesOnError(t *testing.T) {
	l := NewMemoryLocker()
	defer l.Stop()
	ctx := context.Background()
	boom := errors.New("boom")

	err := WithLock(ctx, l, "k", DefaultRetryPolicy, func(ctx context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)

	ok, err := l.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLocker_DoesNotReleaseForeignLock(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	a := NewRedisLocker(client)
	b := NewRedisLocker(client)
	ctx := context.Background()

	ok, err := a.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	released, err := b.Release(ctx, "k")
	require.NoError(t, err)
	assert.False(t, released)
	assert.True(t, mr.Exists("k"))

	mr.FastForward(2 * time.Minute)
	ok, err = b.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	released, err = a.Release(ctx, "k")
	require.NoError(t, err)
	assert.False(t, released)
	assert.True(t, mr.Exists("k"))
}

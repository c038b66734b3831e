package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLockerFailsFastWithoutWait(t *testing.T) {
	l := NewMemoryLocker(0)
	release, err := l.Acquire(context.Background(), 1)
	require.NoError(t, err)

	_, err = l.Acquire(context.Background(), 1)
	assert.ErrorIs(t, err, ErrLocked)

	// Other jobs are independent
	other, err := l.Acquire(context.Background(), 2)
	require.NoError(t, err)
	other()

	release()
	again, err := l.Acquire(context.Background(), 1)
	require.NoError(t, err)
	again()
}

func TestMemoryLockerWaitsForRelease(t *testing.T) {
	l := NewMemoryLocker(time.Second)
	release, err := l.Acquire(context.Background(), 7)
	require.NoError(t, err)

	go func() {
		time.Sleep(20 * time.Millisecond)
		release()
	}()

	second, err := l.Acquire(context.Background(), 7)
	require.NoError(t, err)
	second()
}

func TestMemoryLockerHonoursContext(t *testing.T) {
	l := NewMemoryLocker(time.Minute)
	release, err := l.Acquire(context.Background(), 1)
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx, 1)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMemoryLockerIsExclusive(t *testing.T) {
	l := NewMemoryLocker(5 * time.Second)
	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(context.Background(), 3)
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside)
}

func setupMockRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return mr, redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestRedisLockerExclusive(t *testing.T) {
	mr, client := setupMockRedis(t)
	l := NewRedisLocker(client, 30*time.Second, 0, nil)

	release, err := l.Acquire(context.Background(), 5)
	require.NoError(t, err)
	assert.True(t, mr.Exists("smgantt:lock:construction:5"))

	_, err = l.Acquire(context.Background(), 5)
	assert.ErrorIs(t, err, ErrLocked)

	release()
	assert.False(t, mr.Exists("smgantt:lock:construction:5"))

	again, err := l.Acquire(context.Background(), 5)
	require.NoError(t, err)
	again()
}

func TestRedisLockerReleaseKeepsForeignToken(t *testing.T) {
	mr, client := setupMockRedis(t)
	l := NewRedisLocker(client, time.Second, 0, nil)

	release, err := l.Acquire(context.Background(), 9)
	require.NoError(t, err)

	// Lock expired and another holder took it over
	mr.FastForward(2 * time.Second)
	require.NoError(t, mr.Set("smgantt:lock:construction:9", "someone-else"))

	release()
	got, err := mr.Get("smgantt:lock:construction:9")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestRedisLockerWaits(t *testing.T) {
	_, client := setupMockRedis(t)
	l := NewRedisLocker(client, 30*time.Second, time.Second, nil)

	release, err := l.Acquire(context.Background(), 1)
	require.NoError(t, err)
	go func() {
		time.Sleep(50 * time.Millisecond)
		release()
	}()

	second, err := l.Acquire(context.Background(), 1)
	require.NoError(t, err)
	second()
}

func TestRedisLockerExtendsHeldLock(t *testing.T) {
	mr, client := setupMockRedis(t)
	l := NewRedisLocker(client, 300*time.Millisecond, 0, nil)
	l.refresh = 50 * time.Millisecond
	key := "smgantt:lock:construction:4"

	release, err := l.Acquire(context.Background(), 4)
	require.NoError(t, err)

	// Without a refresh the key would be gone after 300ms
	mr.FastForward(250 * time.Millisecond)
	require.Eventually(t, func() bool {
		return mr.TTL(key) > 200*time.Millisecond
	}, time.Second, 10*time.Millisecond)
	mr.FastForward(250 * time.Millisecond)
	assert.True(t, mr.Exists(key))

	release()
	assert.False(t, mr.Exists(key))

	// The refresh stopped with the release
	time.Sleep(120 * time.Millisecond)
	assert.False(t, mr.Exists(key))
}

func TestRedisLockerStopsExtendingForeignToken(t *testing.T) {
	mr, client := setupMockRedis(t)
	l := NewRedisLocker(client, 300*time.Millisecond, 0, nil)
	l.refresh = 20 * time.Millisecond
	key := "smgantt:lock:construction:6"

	release, err := l.Acquire(context.Background(), 6)
	require.NoError(t, err)
	defer release()

	require.NoError(t, mr.Set(key, "someone-else"))
	mr.SetTTL(key, time.Second)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, time.Second, mr.TTL(key))
}

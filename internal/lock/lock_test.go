package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestLocalSerializesSameKey(t *testing.T) {
	locker := NewLocal()

	var active, maxActive int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Acquire(context.Background(), "ALU-01")
			require.NoError(t, err)
			current := atomic.AddInt32(&active, 1)
			for {
				seen := atomic.LoadInt32(&maxActive)
				if current <= seen || atomic.CompareAndSwapInt32(&maxActive, seen, current) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&active, -1)
			release()
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), maxActive)
	require.Equal(t, 0, locker.size())
}

func TestLocalDifferentKeysDoNotBlock(t *testing.T) {
	locker := NewLocal()

	releaseA, err := locker.Acquire(context.Background(), "A")
	require.NoError(t, err)
	defer releaseA()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	releaseB, err := locker.Acquire(ctx, "B")
	require.NoError(t, err)
	releaseB()
}

func TestLocalHonoursContext(t *testing.T) {
	locker := NewLocal()

	release, err := locker.Acquire(context.Background(), "A")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locker.Acquire(ctx, "A")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	release()
	require.Equal(t, 0, locker.size())
}

func TestRedisLockExclusiveAndReleased(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()

	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	locker := NewRedis(client, "grading:folder", time.Minute)
	locker.poll = 5 * time.Millisecond

	release, err := locker.Acquire(context.Background(), "ALU-01")
	require.NoError(t, err)
	require.True(t, mini.Exists("grading:folder:ALU-01"))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = locker.Acquire(ctx, "ALU-01")
	require.ErrorIs(t, err, ErrLockTimeout)

	release()
	require.False(t, mini.Exists("grading:folder:ALU-01"))

	release, err = locker.Acquire(context.Background(), "ALU-01")
	require.NoError(t, err)
	release()
}

func TestRedisReleaseKeepsForeignToken(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()

	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	locker := NewRedis(client, "", time.Minute)

	release, err := locker.Acquire(context.Background(), "ALU-02")
	require.NoError(t, err)

	require.NoError(t, mini.Set("lock:ALU-02", "someone-else"))
	release()

	value, err := mini.Get("lock:ALU-02")
	require.NoError(t, err)
	require.Equal(t, "someone-else", value)
}

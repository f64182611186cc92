package lock

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseLocker(t *testing.T, l Locker) {
	ctx := context.Background()
	key := "user:" + uuid.NewString()

	release, err := l.TryAcquire(ctx, key)
	require.NoError(t, err)

	_, err = l.TryAcquire(ctx, key)
	assert.ErrorIs(t, err, ErrHeld)

	other, err := l.TryAcquire(ctx, key+":other")
	require.NoError(t, err)
	assert.NoError(t, other())

	assert.NoError(t, release())
	assert.NoError(t, release())

	again, err := l.TryAcquire(ctx, key)
	require.NoError(t, err)
	assert.NoError(t, again())
}

func TestLocal(t *testing.T) {
	exerciseLocker(t, NewLocal())
}

func TestLocalConcurrentSingleWinner(t *testing.T) {
	l := NewLocal()
	var wins int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := l.TryAcquire(context.Background(), "k"); err == nil {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	close(start)
	wg.Wait()
	assert.EqualValues(t, 1, wins)
}

// TestRedis runs against a real server when REDIS_ADDR is set.
func TestRedis(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())
	exerciseLocker(t, NewRedis(client, "test:synthesis:", time.Minute))
}

func TestRedisReleaseReportsFailure(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	l := NewRedis(client, "test:synthesis:", time.Minute)
	key := "user:" + uuid.NewString()

	release, err := l.TryAcquire(context.Background(), key)
	require.NoError(t, err)
	require.NoError(t, client.Close())

	err = release()
	require.Error(t, err)
	assert.Contains(t, err.Error(), key)
	assert.Equal(t, err, release(), "later calls return the first result")
}

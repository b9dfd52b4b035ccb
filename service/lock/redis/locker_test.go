package redis

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/fingov/model/types"
	"github.com/viant/fingov/service/lock"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, goredislib.UniversalClient) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredislib.NewClient(&goredislib.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestLocker_WithLock(t *testing.T) {
	mr, client := setupTestRedis(t)
	locker := New(client, DefaultOptions())

	executed := false
	err := locker.WithLock(context.Background(), "transaction/tx-1", func(ctx context.Context) error {
		executed = true
		assert.True(t, mr.Exists("fingov:lock:transaction/tx-1"))
		return nil
	})
	require.NoError(t, err)
	assert.True(t, executed)
	assert.False(t, mr.Exists("fingov:lock:transaction/tx-1"))

	failure := errors.New("boom")
	err = locker.WithLock(context.Background(), "transaction/tx-1", func(ctx context.Context) error { return failure })
	assert.ErrorIs(t, err, failure)
}

func TestLocker_Contention(t *testing.T) {
	_, client := setupTestRedis(t)
	locker := New(client, Options{Prefix: "test:", Expiry: 5 * time.Second, Tries: 2, RetryDelay: 10 * time.Millisecond})

	held := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = locker.WithLock(context.Background(), "budget/b-1", func(ctx context.Context) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held
	err := locker.WithLock(context.Background(), "budget/b-1", func(ctx context.Context) error { return nil })
	assert.True(t, types.IsRetryable(err), "got %v", err)
	assert.ErrorIs(t, err, lock.ErrLockTimeout)
	close(release)
	<-done
}

func TestLocker_Serializes(t *testing.T) {
	_, client := setupTestRedis(t)
	locker := New(client, Options{Tries: 200, RetryDelay: 5 * time.Millisecond})
	var inside, violations int32
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := locker.WithLock(context.Background(), "scope/t1", func(ctx context.Context) error {
				if atomic.AddInt32(&inside, 1) > 1 {
					atomic.AddInt32(&violations, 1)
				}
				time.Sleep(2 * time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 0, violations)
}

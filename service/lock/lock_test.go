package lock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/fingov/model/types"
)

func TestMemory_Exclusive(t *testing.T) {
	locker := NewMemory(time.Second)
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := locker.WithLock(context.Background(), Key("transaction", "tx-1"), func(ctx context.Context) error {
				mu.Lock()
				inside++
				if inside > maxSeen {
					maxSeen = inside
				}
				mu.Unlock()
				time.Sleep(time.Millisecond)
				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
	assert.Empty(t, locker.locks)
}

func TestMemory_BoundedWait(t *testing.T) {
	type testCase struct {
		name   string
		key    string
		cancel bool
		assert func(t *testing.T, err error)
	}
	tests := []testCase{
		{
			name: "same key times out as retryable",
			key:  "transaction/tx-1",
			assert: func(t *testing.T, err error) {
				assert.True(t, types.IsRetryable(err))
				assert.True(t, errors.Is(err, ErrLockTimeout))
			},
		},
		{
			name:   "cancelled context",
			key:    "transaction/tx-1",
			cancel: true,
			assert: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, context.Canceled)
			},
		},
		{
			name: "other key is independent",
			key:  "transaction/tx-2",
			assert: func(t *testing.T, err error) {
				assert.NoError(t, err)
			},
		},
		{
			name: "empty key",
			assert: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrEmptyKey)
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			locker := NewMemory(20 * time.Millisecond)
			held := make(chan struct{})
			release := make(chan struct{})
			done := make(chan struct{})
			go func() {
				defer close(done)
				_ = locker.WithLock(context.Background(), "transaction/tx-1", func(ctx context.Context) error {
					close(held)
					<-release
					return nil
				})
			}()
			<-held
			ctx := context.Background()
			if tc.cancel {
				var cancel context.CancelFunc
				ctx, cancel = context.WithCancel(ctx)
				cancel()
			}
			err := locker.WithLock(ctx, tc.key, func(ctx context.Context) error { return nil })
			tc.assert(t, err)
			close(release)
			<-done
		})
	}
}

func TestMemory_PropagatesError(t *testing.T) {
	locker := NewMemory(0)
	failure := errors.New("boom")
	err := locker.WithLock(context.Background(), "k", func(ctx context.Context) error { return failure })
	require.ErrorIs(t, err, failure)
	require.NoError(t, locker.WithLock(context.Background(), "k", func(ctx context.Context) error { return nil }))
}

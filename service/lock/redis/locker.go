// Package redis implements lock.Locker with the RedLock algorithm (redsync)
// so engine instances sharing a Redis deployment serialize commits per entity.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	goredislib "github.com/redis/go-redis/v9"
	"github.com/viant/fingov/model/types"
	"github.com/viant/fingov/service/lock"
	"go.uber.org/zap"
)

// Options configures lock acquisition.
type Options struct {
	Prefix     string        `json:"prefix" yaml:"prefix" mapstructure:"prefix"`
	Expiry     time.Duration `json:"expiry" yaml:"expiry" mapstructure:"expiry"`
	Tries      int           `json:"tries" yaml:"tries" mapstructure:"tries"`
	RetryDelay time.Duration `json:"retryDelay" yaml:"retryDelay" mapstructure:"retryDelay"`
}

// DefaultOptions bounds the wait to roughly Tries*RetryDelay.
func DefaultOptions() Options {
	return Options{
		Prefix:     "fingov:lock:",
		Expiry:     10 * time.Second,
		Tries:      32,
		RetryDelay: 100 * time.Millisecond,
	}
}

// Option customises a Locker.
type Option func(*Locker)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Locker) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// Locker is a distributed lock.Locker.
type Locker struct {
	redsync *redsync.Redsync
	options Options
	logger  *zap.Logger
}

// New creates a Locker backed by client.
func New(client goredislib.UniversalClient, options Options, opts ...Option) *Locker {
	defaults := DefaultOptions()
	if options.Expiry <= 0 {
		options.Expiry = defaults.Expiry
	}
	if options.Tries < 1 {
		options.Tries = defaults.Tries
	}
	if options.RetryDelay <= 0 {
		options.RetryDelay = defaults.RetryDelay
	}
	ret := &Locker{
		redsync: redsync.New(goredis.NewPool(client)),
		options: options,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// WithLock implements lock.Locker.
func (l *Locker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if key == "" {
		return lock.ErrEmptyKey
	}
	mutex := l.redsync.NewMutex(
		l.options.Prefix+key,
		redsync.WithExpiry(l.options.Expiry),
		redsync.WithTries(l.options.Tries),
		redsync.WithRetryDelay(l.options.RetryDelay),
	)
	if err := mutex.LockContext(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		l.logger.Debug("lock not acquired", zap.String("lock_key", key), zap.Error(err))
		return &types.RetryableError{Op: "lock " + key, Err: fmt.Errorf("%w: %v", lock.ErrLockTimeout, err)}
	}
	defer func() {
		if ok, err := mutex.UnlockContext(context.WithoutCancel(ctx)); !ok || err != nil {
			l.logger.Warn("failed to release lock", zap.String("lock_key", key), zap.Bool("unlock_ok", ok), zap.Error(err))
		}
	}()
	return fn(ctx)
}

var _ lock.Locker = (*Locker)(nil)

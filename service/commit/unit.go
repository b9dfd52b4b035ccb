// Package commit runs state-committing operations as atomic units: entity lock,
// repository transaction, retry from fresh reads on stale versions, then
// asynchronous post-commit hooks.
package commit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/viant/fingov/internal/clock"
	"github.com/viant/fingov/model/audit"
	"github.com/viant/fingov/model/types"
	"github.com/viant/fingov/service/dao"
	"github.com/viant/fingov/service/lock"
	"github.com/viant/fingov/tracing"
	"go.uber.org/zap"
)

// Relay delivers committed audit entries to the external sink.
type Relay interface {
	Relay(ctx context.Context, entries []*audit.Entry)
}

// Retry bounds stale-version retries.
type Retry struct {
	MaxAttempts     int           `json:"maxAttempts" yaml:"maxAttempts" mapstructure:"maxAttempts"`
	InitialInterval time.Duration `json:"initialInterval" yaml:"initialInterval" mapstructure:"initialInterval"`
	MaxInterval     time.Duration `json:"maxInterval" yaml:"maxInterval" mapstructure:"maxInterval"`
}

// DefaultRetry returns the default retry bounds.
func DefaultRetry() Retry {
	return Retry{MaxAttempts: 5, InitialInterval: 10 * time.Millisecond, MaxInterval: 200 * time.Millisecond}
}

// Unit executes functions as serializable units of work.
type Unit struct {
	repo   dao.Repository
	locker lock.Locker
	retry  Retry
	relay  Relay
	logger *zap.Logger
	wg     sync.WaitGroup
}

// Option customises a Unit.
type Option func(*Unit)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(u *Unit) {
		if logger != nil {
			u.logger = logger
		}
	}
}

// WithRetry sets stale-version retry bounds.
func WithRetry(retry Retry) Option {
	return func(u *Unit) {
		if retry.MaxAttempts > 0 {
			u.retry = retry
		}
	}
}

// WithRelay sets the audit relay notified after every commit.
func WithRelay(relay Relay) Option {
	return func(u *Unit) { u.relay = relay }
}

// New creates a Unit.
func New(repo dao.Repository, locker lock.Locker, opts ...Option) *Unit {
	ret := &Unit{repo: repo, locker: locker, retry: DefaultRetry(), logger: zap.NewNop()}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.locker == nil {
		ret.locker = lock.NewMemory(lock.DefaultWait)
	}
	return ret
}

// Repository returns the underlying repository.
func (u *Unit) Repository() dao.Repository { return u.repo }

// Run executes fn under the lock named key inside a repository transaction.
// fn must read everything it decides on through the scope's transaction: on
// dao.ErrStaleVersion the whole function is re-run from fresh reads. Exhausted
// retries surface as types.RetryableError.
func (u *Unit) Run(ctx context.Context, key string, fn func(ctx context.Context, scope *Scope) error) (err error) {
	ctx, span := tracing.Start(ctx, "commit", tracing.Internal)
	span.Set(tracing.KeyLock, key)
	defer func() { span.End(err) }()

	return u.locker.WithLock(ctx, key, func(ctx context.Context) error {
		var committed *Scope
		attempt := 0
		operation := func() (struct{}, error) {
			attempt++
			scope := &Scope{now: clock.Now()}
			txErr := u.repo.InTx(ctx, func(ctx context.Context, tx dao.Tx) error {
				scope.tx = tx
				return fn(ctx, scope)
			})
			if txErr == nil {
				committed = scope
				return struct{}{}, nil
			}
			if errors.Is(txErr, dao.ErrStaleVersion) {
				u.logger.Debug("stale version, retrying", zap.String("key", key), zap.Int("attempt", attempt))
				return struct{}{}, txErr
			}
			return struct{}{}, backoff.Permanent(txErr)
		}

		policy := backoff.NewExponentialBackOff()
		policy.InitialInterval = u.retry.InitialInterval
		policy.MaxInterval = u.retry.MaxInterval
		_, err := backoff.Retry(ctx, operation,
			backoff.WithBackOff(policy),
			backoff.WithMaxTries(uint(u.retry.MaxAttempts)))
		if err != nil {
			if errors.Is(err, dao.ErrStaleVersion) {
				return &types.RetryableError{Op: "commit " + key, Err: err}
			}
			return err
		}
		u.afterCommit(ctx, key, committed)
		return nil
	})
}

func (u *Unit) afterCommit(ctx context.Context, key string, scope *Scope) {
	if scope == nil || (len(scope.entries) == 0 && len(scope.hooks) == 0) {
		return
	}
	ctx = context.WithoutCancel(ctx)
	u.wg.Add(1)
	go func() {
		defer u.wg.Done()
		if u.relay != nil && len(scope.entries) > 0 {
			u.guard(key, func() { u.relay.Relay(ctx, scope.entries) })
		}
		for _, hook := range scope.hooks {
			u.guard(key, func() { hook(ctx) })
		}
	}()
}

func (u *Unit) guard(key string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			u.logger.Error("post-commit hook panicked", zap.String("key", key), zap.Any("panic", r))
		}
	}()
	fn()
}

// Wait blocks until every scheduled post-commit hook returned.
func (u *Unit) Wait() {
	u.wg.Wait()
}

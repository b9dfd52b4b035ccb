package fingov

import (
	"context"
	"sync"
	"time"

	"github.com/viant/fingov/service/audit"
	"github.com/viant/fingov/service/commit"
	"github.com/viant/fingov/service/notify"
	"go.uber.org/zap"
)

// Runtime owns the engine's background work: notification delivery and
// audit outbox redelivery.
type Runtime struct {
	unit          *commit.Unit
	dispatcher    *notify.Dispatcher
	recorder      *audit.Recorder
	sweepInterval time.Duration
	logger        *zap.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// Start starts runtime
func (r *Runtime) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return nil
	}
	r.started = true
	ctx, r.cancel = context.WithCancel(ctx)
	r.dispatcher.Start(ctx)
	done := make(chan struct{})
	r.done = done
	if r.sweepInterval <= 0 {
		close(done)
		return nil
	}
	go func() {
		defer close(done)
		r.recorder.Sweep(ctx, r.sweepInterval)
	}()
	return nil
}

// Shutdown waits for post-commit hooks, drains queued notifications and stops
// background delivery. Entries still in the outbox are redelivered once.
// Notifications queued on a runtime that was never started are dropped.
func (r *Runtime) Shutdown(ctx context.Context) error {
	r.unit.Wait()
	r.mu.Lock()
	started, cancel, done := r.started, r.cancel, r.done
	r.started, r.cancel, r.done = false, nil, nil
	r.mu.Unlock()
	if !started {
		if pending := r.dispatcher.Pending(); pending > 0 {
			r.logger.Warn("runtime not started, notifications dropped", zap.Int("count", pending))
		}
		return nil
	}
	r.dispatcher.Drain()
	r.dispatcher.Stop()
	cancel()
	<-done
	if _, err := r.recorder.Redeliver(ctx); err != nil {
		r.logger.Warn("final audit redelivery failed", zap.Error(err))
	}
	return nil
}

// Redeliver retries undelivered audit entries now.
func (r *Runtime) Redeliver(ctx context.Context) (int, error) {
	return r.recorder.Redeliver(ctx)
}

// FailedNotifications returns notifications that exhausted their retries.
func (r *Runtime) FailedNotifications() []*notify.Notification {
	return r.dispatcher.Failed()
}

package event

import (
	"context"
	"errors"
	"sync"

	"github.com/viant/fingov/service/messaging"
	"go.uber.org/zap"
)

// Handler processes one event. A returned error nacks the message.
type Handler[T any] func(ctx context.Context, event *Event[T]) error

// Listener consumes events from a queue until stopped.
type Listener[T any] struct {
	queue   messaging.Queue[Event[T]]
	handler Handler[T]
	logger  *zap.Logger
	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewListener creates a listener; logger may be nil.
func NewListener[T any](queue messaging.Queue[Event[T]], handler Handler[T], logger *zap.Logger) *Listener[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Listener[T]{queue: queue, handler: handler, logger: logger}
}

// Start launches the consume loop. Calling Start on a running listener is a no-op.
func (l *Listener[T]) Start(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		return
	}
	ctx, l.cancel = context.WithCancel(ctx)
	l.done = make(chan struct{})
	go l.run(ctx, l.done)
}

func (l *Listener[T]) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		msg, err := l.queue.Consume(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			l.logger.Warn("failed to consume event", zap.Error(err))
			continue
		}
		if msg == nil {
			continue
		}
		if err := l.handler(ctx, msg.T()); err != nil {
			l.logger.Warn("event handler failed",
				zap.String("event_type", msg.T().Type),
				zap.Int("attempt", msg.Attempt()),
				zap.Error(err))
			if nackErr := msg.Nack(err); nackErr != nil {
				l.logger.Error("failed to nack event", zap.Error(nackErr))
			}
			continue
		}
		if ackErr := msg.Ack(); ackErr != nil {
			l.logger.Error("failed to ack event", zap.Error(ackErr))
		}
	}
}

// Stop cancels the consume loop and waits for it to exit.
func (l *Listener[T]) Stop() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

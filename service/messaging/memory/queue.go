package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/viant/fingov/service/messaging"
)

// ErrProcessed is returned when a message is acknowledged twice.
var ErrProcessed = errors.New("message already processed")

// Config for memory queue implementation
type Config struct {
	MaxRetries  int           `json:"maxRetries" yaml:"maxRetries" mapstructure:"maxRetries"`
	RetryDelay  time.Duration `json:"retryDelay" yaml:"retryDelay" mapstructure:"retryDelay"`
	DeadLetter  bool          `json:"deadLetter" yaml:"deadLetter" mapstructure:"deadLetter"`
	QueueBuffer int           `json:"queueBuffer" yaml:"queueBuffer" mapstructure:"queueBuffer"`
}

// DefaultConfig returns a standard configuration for memory queue
func DefaultConfig() Config {
	return Config{
		MaxRetries:  3,
		RetryDelay:  100 * time.Millisecond,
		DeadLetter:  true,
		QueueBuffer: 256,
	}
}

// Message implements messaging.Message for the in-memory queue
type Message[T any] struct {
	id        string
	payload   T
	queue     *Queue[T]
	attempt   int
	mu        sync.Mutex
	processed bool
	lastErr   error
}

// ID returns the message identifier, stable across redeliveries.
func (m *Message[T]) ID() string { return m.id }

// T returns the message payload
func (m *Message[T]) T() *T { return &m.payload }

// Attempt returns the delivery attempt.
func (m *Message[T]) Attempt() int { return m.attempt }

// Err returns the error recorded by the last Nack.
func (m *Message[T]) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Ack acknowledges the message as processed successfully
func (m *Message[T]) Ack() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return ErrProcessed
	}
	m.processed = true
	m.queue.done()
	return nil
}

// Nack requeues the message after RetryDelay or moves it to the dead letter
// queue once MaxRetries redeliveries were used.
func (m *Message[T]) Nack(err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return ErrProcessed
	}
	m.processed = true
	m.lastErr = err
	if m.attempt <= m.queue.config.MaxRetries {
		retry := &Message[T]{id: m.id, payload: m.payload, queue: m.queue, attempt: m.attempt + 1}
		time.AfterFunc(m.queue.config.RetryDelay, func() { m.queue.requeue(retry) })
		return nil
	}
	m.queue.deadLetter(m)
	return nil
}

// Queue implements an in-memory messaging.Queue
type Queue[T any] struct {
	messages chan *Message[T]
	config   Config
	dlqMu    sync.Mutex
	dlq      []*Message[T]
	inFlight sync.WaitGroup
}

// NewQueue creates a new in-memory queue
func NewQueue[T any](config Config) *Queue[T] {
	if config.QueueBuffer <= 0 {
		config.QueueBuffer = DefaultConfig().QueueBuffer
	}
	return &Queue[T]{
		messages: make(chan *Message[T], config.QueueBuffer),
		config:   config,
	}
}

// Publish adds a copy of t to the queue
func (q *Queue[T]) Publish(ctx context.Context, t *T) error {
	if t == nil {
		return errors.New("payload was nil")
	}
	msg := &Message[T]{id: uuid.New().String(), payload: *t, queue: q, attempt: 1}
	q.inFlight.Add(1)
	select {
	case q.messages <- msg:
		return nil
	case <-ctx.Done():
		q.inFlight.Done()
		return ctx.Err()
	}
}

// Consume retrieves a single item from the queue
func (q *Queue[T]) Consume(ctx context.Context) (messaging.Message[T], error) {
	select {
	case msg := <-q.messages:
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *Queue[T]) requeue(msg *Message[T]) {
	select {
	case q.messages <- msg:
	default:
		q.deadLetter(msg)
	}
}

func (q *Queue[T]) deadLetter(msg *Message[T]) {
	if q.config.DeadLetter {
		q.dlqMu.Lock()
		q.dlq = append(q.dlq, msg)
		q.dlqMu.Unlock()
	}
	q.done()
}

func (q *Queue[T]) done() { q.inFlight.Done() }

// Drain blocks until every published message was acknowledged or dead-lettered.
func (q *Queue[T]) Drain() { q.inFlight.Wait() }

// Size returns the current number of messages waiting in the queue
func (q *Queue[T]) Size() int { return len(q.messages) }

// DeadLetters returns messages that exhausted their retries.
func (q *Queue[T]) DeadLetters() []*Message[T] {
	q.dlqMu.Lock()
	defer q.dlqMu.Unlock()
	return append([]*Message[T](nil), q.dlq...)
}

// ensure Queue implements messaging.Queue interface
var _ messaging.Queue[any] = (*Queue[any])(nil)

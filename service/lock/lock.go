// Package lock serializes state-committing operations per entity. A caller
// that cannot obtain the lock within the configured wait receives a
// types.RetryableError; the operation is never skipped.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/viant/fingov/model/types"
)

var (
	// ErrLockTimeout is wrapped in a RetryableError when the bounded wait elapses.
	ErrLockTimeout = errors.New("lock wait exceeded")
	// ErrEmptyKey is returned for a blank lock key.
	ErrEmptyKey = errors.New("lock key cannot be empty")
)

// Locker runs fn while holding the lock named by key.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// DefaultWait is the bounded lock wait used when none is configured.
const DefaultWait = 5 * time.Second

type entry struct {
	ch   chan struct{}
	refs int
}

// Memory is an in-process keyed lock.
type Memory struct {
	mu    sync.Mutex
	locks map[string]*entry
	wait  time.Duration
}

// NewMemory creates an in-process Locker waiting at most wait for a key.
func NewMemory(wait time.Duration) *Memory {
	if wait <= 0 {
		wait = DefaultWait
	}
	return &Memory{locks: make(map[string]*entry), wait: wait}
}

// WithLock implements Locker.
func (m *Memory) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if key == "" {
		return ErrEmptyKey
	}
	e := m.ref(key)
	defer m.unref(key)

	timer := time.NewTimer(m.wait)
	defer timer.Stop()
	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return &types.RetryableError{Op: "lock " + key, Err: ErrLockTimeout}
	}
	defer func() { <-e.ch }()
	return fn(ctx)
}

func (m *Memory) ref(key string) *entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.locks[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		m.locks[key] = e
	}
	e.refs++
	return e
}

func (m *Memory) unref(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.locks[key]
	e.refs--
	if e.refs == 0 {
		delete(m.locks, key)
	}
}

// Key builds a lock key for an entity.
func Key(entityType, id string) string {
	return entityType + "/" + id
}

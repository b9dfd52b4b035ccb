package store

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/viant/fingov/service/dao"
	"github.com/viant/fingov/service/dao/criteria"
)

// MemoryStore is a generic in-memory implementation of dao.Service.
// It keeps copies of entities of type *T mapped by key K, so callers never
// share memory with the store. Entities implementing dao.Versioned are
// checked for stale writes.
type MemoryStore[K cmp.Ordered, T any] struct {
	mu          sync.RWMutex
	records     map[K]*T
	keySelector func(*T) K
}

// NewMemoryStore creates a new MemoryStore.
// keySelector extracts the entity key (usually the ID field) from a value.
func NewMemoryStore[K cmp.Ordered, T any](keySelector func(*T) K) *MemoryStore[K, T] {
	return &MemoryStore[K, T]{
		records:     make(map[K]*T),
		keySelector: keySelector,
	}
}

// Save stores a record, enforcing the optimistic version.
func (s *MemoryStore[K, T]) Save(_ context.Context, v *T) error {
	if v == nil {
		return dao.ErrNilEntity
	}
	key := s.keySelector(v)
	var zero K
	if key == zero {
		return dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := advanceVersion(s.records[key], v); err != nil {
		return err
	}
	s.records[key] = clone(v)
	return nil
}

// Load returns a copy of the record, or nil when absent.
func (s *MemoryStore[K, T]) Load(_ context.Context, key K) (*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.records[key]
	if !ok {
		return nil, nil
	}
	return clone(v), nil
}

// Delete removes a record.
func (s *MemoryStore[K, T]) Delete(_ context.Context, key K) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

// List returns copies of records matching parameters, ordered by key.
func (s *MemoryStore[K, T]) List(_ context.Context, parameters ...*dao.Parameter) ([]*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]K, 0, len(s.records))
	for k := range s.records {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := make([]*T, 0, len(keys))
	for _, k := range keys {
		v := s.records[k]
		if criteria.Match(v, parameters) {
			out = append(out, clone(v))
		}
	}
	return out, nil
}

func (s *MemoryStore[K, T]) peek(key K) (*T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.records[key]
	return v, ok
}

func (s *MemoryStore[K, T]) apply(key K, v *T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v == nil {
		delete(s.records, key)
		return
	}
	s.records[key] = v
}

func (s *MemoryStore[K, T]) keys() []K {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ret := make([]K, 0, len(s.records))
	for k := range s.records {
		ret = append(ret, k)
	}
	return ret
}

// advanceVersion validates v against the stored record and bumps its version.
func advanceVersion[T any](stored *T, v *T) error {
	versioned, ok := any(v).(dao.Versioned)
	if !ok {
		return nil
	}
	var current int64
	if stored != nil {
		current = any(stored).(dao.Versioned).GetVersion()
	}
	if versioned.GetVersion() != current {
		return dao.ErrStaleVersion
	}
	versioned.SetVersion(current + 1)
	return nil
}

func clone[T any](v *T) *T {
	if v == nil {
		return nil
	}
	if cloner, ok := any(v).(interface{ Clone() *T }); ok {
		return cloner.Clone()
	}
	ret := *v
	return &ret
}

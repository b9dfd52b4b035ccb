package store

import (
	"cmp"
	"context"
	"slices"

	"github.com/viant/fingov/service/dao"
	"github.com/viant/fingov/service/dao/criteria"
)

// overlay buffers writes made inside a transaction on top of a MemoryStore.
// A nil pending value marks a deletion.
type overlay[K cmp.Ordered, T any] struct {
	base    *MemoryStore[K, T]
	pending map[K]*T
}

func newOverlay[K cmp.Ordered, T any](base *MemoryStore[K, T]) *overlay[K, T] {
	return &overlay[K, T]{base: base, pending: make(map[K]*T)}
}

func (o *overlay[K, T]) current(key K) *T {
	if v, ok := o.pending[key]; ok {
		return v
	}
	v, _ := o.base.peek(key)
	return v
}

func (o *overlay[K, T]) Save(_ context.Context, v *T) error {
	if v == nil {
		return dao.ErrNilEntity
	}
	key := o.base.keySelector(v)
	var zero K
	if key == zero {
		return dao.ErrInvalidID
	}
	if err := advanceVersion(o.current(key), v); err != nil {
		return err
	}
	o.pending[key] = clone(v)
	return nil
}

func (o *overlay[K, T]) Load(_ context.Context, key K) (*T, error) {
	return clone(o.current(key)), nil
}

func (o *overlay[K, T]) Delete(_ context.Context, key K) error {
	o.pending[key] = nil
	return nil
}

func (o *overlay[K, T]) List(_ context.Context, parameters ...*dao.Parameter) ([]*T, error) {
	keys := o.base.keys()
	for k := range o.pending {
		if _, ok := o.base.peek(k); !ok {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	out := make([]*T, 0, len(keys))
	for _, k := range keys {
		v := o.current(k)
		if v != nil && criteria.Match(v, parameters) {
			out = append(out, clone(v))
		}
	}
	return out, nil
}

func (o *overlay[K, T]) commit() {
	for k, v := range o.pending {
		o.base.apply(k, v)
	}
}

package dao

import (
	"context"
)

// Service is a keyed entity store. Implementations bound to a Tx see the
// transaction's own uncommitted writes.
type Service[K comparable, T any] interface {
	Save(ctx context.Context, t *T) error

	Load(ctx context.Context, id K) (*T, error)

	Delete(ctx context.Context, id K) error

	List(ctx context.Context, parameters ...*Parameter) ([]*T, error)
}

// Versioned entities carry an optimistic concurrency token. Saving an entity
// whose version differs from the stored one fails with ErrStaleVersion; a
// successful save increments the version. Version 0 means "create".
type Versioned interface {
	GetVersion() int64
	SetVersion(version int64)
}

// Fielder exposes named string attributes used by List parameters.
type Fielder interface {
	Field(name string) (string, bool)
}

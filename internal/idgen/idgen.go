package idgen

import "github.com/google/uuid"

// NewFunc returns a new globally unique identifier. Tests may replace it.
var NewFunc = func() string { return uuid.New().String() }

// New returns a new identifier.
func New() string { return NewFunc() }

// Prefixed returns a new identifier qualified with kind, e.g. "apr_<uuid>".
func Prefixed(kind string) string {
	if kind == "" {
		return New()
	}
	return kind + "_" + New()
}

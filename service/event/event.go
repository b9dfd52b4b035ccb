// Package event carries typed domain events over a messaging.Queue.
package event

import (
	"time"

	"github.com/viant/fingov/internal/clock"
)

// Event wraps a payload with its type and publication time.
type Event[T any] struct {
	Type      string                 `json:"type"`
	CreatedAt time.Time              `json:"createdAt"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Data      T                      `json:"data"`
}

// NewEvent creates an event of the given type.
func NewEvent[T any](eventType string, data T) *Event[T] {
	return &Event[T]{
		Type:      eventType,
		CreatedAt: clock.Now(),
		Metadata:  make(map[string]interface{}),
		Data:      data,
	}
}

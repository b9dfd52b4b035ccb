// Package audit relays committed audit entries to an append-only sink.
// Entries are staged in the repository outbox inside the committing
// transaction, delivered after commit and removed from the outbox once the
// sink accepted them. Delivery failures are logged and retried by Redeliver;
// they never affect the committed operation.
package audit

import (
	"context"
	"sync"

	"github.com/viant/fingov/model/audit"
)

// Sink is the external append-only decision log.
type Sink interface {
	Append(ctx context.Context, entry *audit.Entry) error
}

// MemorySink keeps entries in memory.
type MemorySink struct {
	mu      sync.Mutex
	entries []*audit.Entry
	failure error
}

// NewMemorySink creates an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Append implements Sink.
func (s *MemorySink) Append(_ context.Context, entry *audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failure != nil {
		return s.failure
	}
	s.entries = append(s.entries, entry.Clone())
	return nil
}

// SetFailure makes every following Append fail with err; nil restores delivery.
func (s *MemorySink) SetFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failure = err
}

// Entries returns delivered entries in delivery order.
func (s *MemorySink) Entries() []*audit.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*audit.Entry(nil), s.entries...)
}

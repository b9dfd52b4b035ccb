package commit

import (
	"context"
	"time"

	"github.com/viant/fingov/internal/idgen"
	"github.com/viant/fingov/model/audit"
	"github.com/viant/fingov/service/dao"
)

// Scope is the view of one commit attempt: the repository transaction, the
// attempt timestamp, staged audit entries and post-commit hooks. A retried
// attempt starts from a fresh Scope.
type Scope struct {
	tx      dao.Tx
	now     time.Time
	entries []*audit.Entry
	hooks   []func(ctx context.Context)
}

// Tx returns the repository transaction of this attempt.
func (s *Scope) Tx() dao.Tx { return s.tx }

// Now returns the attempt timestamp shared by every write of the attempt.
func (s *Scope) Now() time.Time { return s.now }

// Audit stages an audit entry in the outbox of the current transaction.
func (s *Scope) Audit(ctx context.Context, action, entityType, entityID, actorID string, oldValues, newValues map[string]interface{}) error {
	entry := &audit.Entry{
		ID:         idgen.New(),
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		OldValues:  oldValues,
		NewValues:  newValues,
		ActorID:    actorID,
		Timestamp:  s.now,
	}
	if err := s.tx.Outbox().Save(ctx, entry); err != nil {
		return err
	}
	s.entries = append(s.entries, entry)
	return nil
}

// AfterCommit registers fn to run asynchronously once the transaction committed.
// fn is discarded when the attempt fails or is retried.
func (s *Scope) AfterCommit(fn func(ctx context.Context)) {
	s.hooks = append(s.hooks, fn)
}

// Entries returns audit entries staged so far.
func (s *Scope) Entries() []*audit.Entry { return s.entries }

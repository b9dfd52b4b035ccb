package audit

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/viant/fingov/model/audit"
	"github.com/viant/fingov/model/types"
	"github.com/viant/fingov/service/dao"
	"go.uber.org/zap"
)

// Recorder moves outbox entries to the Sink. An entry is handed to the sink by
// at most one delivery at a time and only while it is still in the outbox.
type Recorder struct {
	repo     dao.Repository
	sink     Sink
	logger   *zap.Logger
	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewRecorder creates a Recorder; logger may be nil.
func NewRecorder(repo dao.Repository, sink Sink, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{repo: repo, sink: sink, logger: logger, inFlight: map[string]struct{}{}}
}

// Relay delivers entries and clears the delivered ones from the outbox.
func (r *Recorder) Relay(ctx context.Context, entries []*audit.Entry) {
	r.deliver(ctx, entries)
}

// Redeliver retries every entry still in the outbox, oldest first, and
// returns how many were delivered.
func (r *Recorder) Redeliver(ctx context.Context) (int, error) {
	var pending []*audit.Entry
	err := r.repo.InTx(ctx, func(ctx context.Context, tx dao.Tx) error {
		var err error
		pending, err = tx.Outbox().List(ctx)
		return err
	})
	if err != nil {
		return 0, err
	}
	sort.SliceStable(pending, func(i, j int) bool { return pending[i].Timestamp.Before(pending[j].Timestamp) })
	return r.deliver(ctx, pending), nil
}

// Sweep calls Redeliver every interval until ctx is done.
func (r *Recorder) Sweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Redeliver(ctx); err != nil && ctx.Err() == nil {
				r.logger.Warn("audit redelivery failed", zap.Error(err))
			}
		}
	}
}

func (r *Recorder) claim(entries []*audit.Entry) []*audit.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ret []*audit.Entry
	for _, entry := range entries {
		if _, ok := r.inFlight[entry.ID]; ok {
			continue
		}
		r.inFlight[entry.ID] = struct{}{}
		ret = append(ret, entry)
	}
	return ret
}

func (r *Recorder) release(entries []*audit.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, entry := range entries {
		delete(r.inFlight, entry.ID)
	}
}

// outstanding filters entries down to the ones still in the outbox.
func (r *Recorder) outstanding(ctx context.Context, entries []*audit.Entry) ([]*audit.Entry, error) {
	var staged []*audit.Entry
	err := r.repo.InTx(ctx, func(ctx context.Context, tx dao.Tx) error {
		var err error
		staged, err = tx.Outbox().List(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	ids := make(map[string]bool, len(staged))
	for _, entry := range staged {
		ids[entry.ID] = true
	}
	var ret []*audit.Entry
	for _, entry := range entries {
		if ids[entry.ID] {
			ret = append(ret, entry)
		}
	}
	return ret, nil
}

func (r *Recorder) deliver(ctx context.Context, entries []*audit.Entry) int {
	claimed := r.claim(entries)
	if len(claimed) == 0 {
		return 0
	}
	defer r.release(claimed)
	outstanding, err := r.outstanding(ctx, claimed)
	if err != nil {
		r.logger.Warn("failed to read audit outbox", zap.Error(err))
		return 0
	}
	var delivered []string
	for _, entry := range outstanding {
		if err := r.sink.Append(ctx, entry); err != nil {
			failure := &types.TransientError{Op: "audit append", Err: err}
			r.logger.Warn("audit entry not delivered",
				zap.String("entity_id", entry.EntityID),
				zap.String("action", entry.Action),
				zap.Error(failure))
			continue
		}
		delivered = append(delivered, entry.ID)
	}
	if len(delivered) == 0 {
		return 0
	}
	err = r.repo.InTx(ctx, func(ctx context.Context, tx dao.Tx) error {
		for _, id := range delivered {
			if err := tx.Outbox().Delete(ctx, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		r.logger.Warn("failed to clear audit outbox", zap.Int("count", len(delivered)), zap.Error(err))
	}
	return len(delivered)
}

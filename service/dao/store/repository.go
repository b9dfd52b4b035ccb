package store

import (
	"context"

	"github.com/viant/fingov/model/audit"
	"github.com/viant/fingov/model/exception"
	"github.com/viant/fingov/model/ledger"
	"github.com/viant/fingov/model/quorum"
	"github.com/viant/fingov/model/role"
	"github.com/viant/fingov/service/dao"
)

// Repository is an in-memory dao.Repository. Transactions are serialized and
// buffered, so a failed transaction leaves no trace.
type Repository struct {
	sem             chan struct{}
	transactions    *MemoryStore[string, ledger.Transaction]
	approvals       *MemoryStore[string, ledger.Approval]
	instruments     *MemoryStore[string, ledger.Instrument]
	budgets         *MemoryStore[string, ledger.Budget]
	members         *MemoryStore[string, role.Member]
	exceptions      *MemoryStore[string, exception.CapException]
	pointers        *MemoryStore[string, exception.Pointer]
	families        *MemoryStore[string, quorum.Family]
	acknowledgments *MemoryStore[string, quorum.Acknowledgment]
	outbox          *MemoryStore[string, audit.Entry]
}

// NewRepository creates an empty in-memory repository.
func NewRepository() *Repository {
	return &Repository{
		sem:             make(chan struct{}, 1),
		transactions:    NewMemoryStore[string, ledger.Transaction](dao.TransactionKey),
		approvals:       NewMemoryStore[string, ledger.Approval](dao.ApprovalKey),
		instruments:     NewMemoryStore[string, ledger.Instrument](dao.InstrumentKey),
		budgets:         NewMemoryStore[string, ledger.Budget](dao.BudgetKey),
		members:         NewMemoryStore[string, role.Member](dao.MemberKey),
		exceptions:      NewMemoryStore[string, exception.CapException](dao.ExceptionKey),
		pointers:        NewMemoryStore[string, exception.Pointer](dao.PointerKey),
		families:        NewMemoryStore[string, quorum.Family](dao.FamilyKey),
		acknowledgments: NewMemoryStore[string, quorum.Acknowledgment](dao.AcknowledgmentKey),
		outbox:          NewMemoryStore[string, audit.Entry](dao.EntryKey),
	}
}

// InTx runs fn with exclusive access and commits its writes when it succeeds.
func (r *Repository) InTx(ctx context.Context, fn func(ctx context.Context, tx dao.Tx) error) error {
	select {
	case r.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-r.sem }()

	tx := &memoryTx{
		transactions:    newOverlay(r.transactions),
		approvals:       newOverlay(r.approvals),
		instruments:     newOverlay(r.instruments),
		budgets:         newOverlay(r.budgets),
		members:         newOverlay(r.members),
		exceptions:      newOverlay(r.exceptions),
		pointers:        newOverlay(r.pointers),
		families:        newOverlay(r.families),
		acknowledgments: newOverlay(r.acknowledgments),
		outbox:          newOverlay(r.outbox),
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

// Close releases nothing; it exists to satisfy dao.Repository.
func (r *Repository) Close() error { return nil }

type memoryTx struct {
	transactions    *overlay[string, ledger.Transaction]
	approvals       *overlay[string, ledger.Approval]
	instruments     *overlay[string, ledger.Instrument]
	budgets         *overlay[string, ledger.Budget]
	members         *overlay[string, role.Member]
	exceptions      *overlay[string, exception.CapException]
	pointers        *overlay[string, exception.Pointer]
	families        *overlay[string, quorum.Family]
	acknowledgments *overlay[string, quorum.Acknowledgment]
	outbox          *overlay[string, audit.Entry]
}

func (t *memoryTx) commit() {
	t.transactions.commit()
	t.approvals.commit()
	t.instruments.commit()
	t.budgets.commit()
	t.members.commit()
	t.exceptions.commit()
	t.pointers.commit()
	t.families.commit()
	t.acknowledgments.commit()
	t.outbox.commit()
}

func (t *memoryTx) Transactions() dao.Service[string, ledger.Transaction] { return t.transactions }
func (t *memoryTx) Approvals() dao.Service[string, ledger.Approval]       { return t.approvals }
func (t *memoryTx) Instruments() dao.Service[string, ledger.Instrument]   { return t.instruments }
func (t *memoryTx) Budgets() dao.Service[string, ledger.Budget]           { return t.budgets }
func (t *memoryTx) Members() dao.Service[string, role.Member]             { return t.members }
func (t *memoryTx) Exceptions() dao.Service[string, exception.CapException] {
	return t.exceptions
}
func (t *memoryTx) ExceptionPointers() dao.Service[string, exception.Pointer] { return t.pointers }
func (t *memoryTx) Families() dao.Service[string, quorum.Family]              { return t.families }
func (t *memoryTx) Acknowledgments() dao.Service[string, quorum.Acknowledgment] {
	return t.acknowledgments
}
func (t *memoryTx) Outbox() dao.Service[string, audit.Entry] { return t.outbox }

var _ dao.Repository = (*Repository)(nil)

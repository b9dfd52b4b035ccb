package dao

import (
	"context"

	"github.com/viant/fingov/model/audit"
	"github.com/viant/fingov/model/exception"
	"github.com/viant/fingov/model/ledger"
	"github.com/viant/fingov/model/quorum"
	"github.com/viant/fingov/model/role"
)

// Tx exposes the entity stores visible inside one atomic unit of work.
type Tx interface {
	Transactions() Service[string, ledger.Transaction]
	Approvals() Service[string, ledger.Approval]
	Instruments() Service[string, ledger.Instrument]
	Budgets() Service[string, ledger.Budget]
	Members() Service[string, role.Member]
	Exceptions() Service[string, exception.CapException]
	ExceptionPointers() Service[string, exception.Pointer]
	Families() Service[string, quorum.Family]
	Acknowledgments() Service[string, quorum.Acknowledgment]
	Outbox() Service[string, audit.Entry]
}

// Repository runs functions inside serializable transactions. When fn returns
// an error nothing it wrote is observable; otherwise all writes commit together.
type Repository interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Close() error
}

// Keys of every entity type, shared by repository implementations.
func TransactionKey(t *ledger.Transaction) string       { return t.ID }
func ApprovalKey(a *ledger.Approval) string             { return a.ID }
func InstrumentKey(i *ledger.Instrument) string         { return i.TransactionID }
func BudgetKey(b *ledger.Budget) string                 { return b.ID }
func MemberKey(m *role.Member) string                   { return m.ID }
func ExceptionKey(e *exception.CapException) string     { return e.ID }
func PointerKey(p *exception.Pointer) string            { return p.ScopeKey }
func FamilyKey(f *quorum.Family) string                 { return f.ID }
func AcknowledgmentKey(a *quorum.Acknowledgment) string { return a.ID }
func EntryKey(e *audit.Entry) string                    { return e.ID }

// MustLoad loads id and converts a missing record into ErrNotFound.
func MustLoad[K comparable, T any](ctx context.Context, srv Service[K, T], id K) (*T, error) {
	ret, err := srv.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if ret == nil {
		return nil, ErrNotFound
	}
	return ret, nil
}

package lifecycle

import (
	"context"
	"fmt"

	"github.com/viant/fingov/model/ledger"
	mpolicy "github.com/viant/fingov/model/policy"
	"github.com/viant/fingov/service/dao"
	"github.com/viant/fingov/service/exception"
)

// Violations computes the policy violations of transaction. Overrides of
// violations that are still present carry over; fixed ones disappear.
func Violations(ctx context.Context, tx dao.Tx, resolved *mpolicy.Context, transaction *ledger.Transaction) ([]ledger.Violation, error) {
	var ret []ledger.Violation
	if transaction.CategoryID == "" {
		ret = append(ret, ledger.Violation{
			Code:     ledger.ViolationMissingCategory,
			Severity: ledger.SeverityError,
			Message:  "transaction has no category",
		})
	}
	if !transaction.HasEvidence() {
		switch {
		case transaction.Amount >= resolved.EvidenceThreshold():
			ret = append(ret, ledger.Violation{
				Code:     ledger.ViolationMissingEvidence,
				Severity: ledger.SeverityError,
				Message:  fmt.Sprintf("evidence required from %d", resolved.EvidenceThreshold()),
			})
		case transaction.ManualReview:
			ret = append(ret, ledger.Violation{
				Code:     ledger.ViolationMissingEvidence,
				Severity: ledger.SeverityError,
				Message:  "evidence required for manual review",
			})
		}
	}
	if transaction.Type == ledger.TypeExpense {
		violation, err := spendCapViolation(ctx, tx, resolved, transaction)
		if err != nil {
			return nil, err
		}
		if violation != nil {
			ret = append(ret, *violation)
		}
	}
	if transaction.Amount == 0 {
		ret = append(ret, ledger.Violation{
			Code:     ledger.ViolationZeroAmount,
			Severity: ledger.SeverityWarning,
			Message:  "transaction amount is zero",
		})
	}
	overridden := map[string]bool{}
	for _, v := range transaction.Violations {
		if v.Overridden {
			overridden[v.Code] = true
		}
	}
	for i := range ret {
		ret[i].Overridden = overridden[ret[i].Code]
	}
	return ret, nil
}

// spendCapViolation compares the team's committed spending in the
// transaction's dimension, this transaction included, with the effective cap.
func spendCapViolation(ctx context.Context, tx dao.Tx, resolved *mpolicy.Context, transaction *ledger.Transaction) (*ledger.Violation, error) {
	effective, err := exception.EffectiveCap(ctx, tx, resolved, transaction.Dimension)
	if err != nil || !effective.Configured {
		return nil, err
	}
	parameters := []*dao.Parameter{
		dao.NewParameter("TeamID", transaction.TeamID),
		dao.NewParameter("Type", string(ledger.TypeExpense)),
	}
	if transaction.Dimension != "" {
		parameters = append(parameters, dao.NewParameter("Dimension", transaction.Dimension))
	}
	expenses, err := tx.Transactions().List(ctx, parameters...)
	if err != nil {
		return nil, err
	}
	spent := transaction.Amount
	for _, expense := range expenses {
		if expense.ID == transaction.ID || expense.Status == ledger.StatusRejected {
			continue
		}
		spent += expense.Amount
	}
	if spent <= effective.Effective {
		return nil, nil
	}
	return &ledger.Violation{
		Code:     ledger.ViolationSpendCapExceeded,
		Severity: ledger.SeverityError,
		Message:  fmt.Sprintf("spending %d exceeds effective cap %d of %s", spent, effective.Effective, effective.Scope.Key()),
	}, nil
}

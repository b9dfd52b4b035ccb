// Package gate evaluates ordered precondition checklists. A gate passes only
// when every check passes; evaluation stops at the first failing check, which
// may report several reasons at once.
package gate

import (
	"context"
	"fmt"
	"strings"

	"github.com/viant/fingov/model/ledger"
	"github.com/viant/fingov/model/types"
)

// Reason codes reported by the builders.
const (
	ReasonSignersMissing   = "signers_missing"
	ReasonSignerIncomplete = "signer_incomplete"
	ReasonPaymentMethod    = "payment_method_mismatch"
	ReasonInvalidState     = "invalid_state"
	ReasonExceedsThreshold = "exceeds_threshold"
	ReasonManualReview     = "manual_review"
)

// Check returns nil when its precondition holds, otherwise a
// *types.PreconditionFailure or *types.ConflictError.
type Check func(ctx context.Context) error

// Gate is an ordered checklist.
type Gate struct {
	checks []Check
}

// New creates a gate evaluating checks in order.
func New(checks ...Check) *Gate {
	return &Gate{checks: checks}
}

// Add appends checks and returns the gate.
func (g *Gate) Add(checks ...Check) *Gate {
	g.checks = append(g.checks, checks...)
	return g
}

// Check runs checks in order and returns the first failure.
func (g *Gate) Check(ctx context.Context) error {
	for _, check := range g.checks {
		if check == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := check(ctx); err != nil {
			return err
		}
	}
	return nil
}

// RequireSigners passes when at least required signers are given and every
// signer is identified by user id or name.
func RequireSigners(signers []ledger.Signer, required int, currentState ledger.Status) Check {
	return func(ctx context.Context) error {
		var reasons []types.Reason
		satisfied := 0
		for i, signer := range signers {
			if !signer.Satisfied() {
				reasons = append(reasons, types.Reason{Code: ReasonSignerIncomplete, Message: fmt.Sprintf("signer %d has neither user id nor name", i+1)})
				continue
			}
			satisfied++
		}
		if satisfied < required {
			reasons = append(reasons, types.Reason{Code: ReasonSignersMissing, Message: fmt.Sprintf("%d signers required, %d given", required, satisfied)})
		}
		if len(reasons) > 0 {
			return types.NewPreconditionFailure(string(currentState), reasons...)
		}
		return nil
	}
}

// RequirePaymentMethod passes when actual equals expected.
func RequirePaymentMethod(actual, expected ledger.PaymentMethod, currentState ledger.Status) Check {
	return func(ctx context.Context) error {
		if strings.EqualFold(string(actual), string(expected)) {
			return nil
		}
		return types.NewPreconditionFailure(string(currentState), types.Reason{
			Code:    ReasonPaymentMethod,
			Message: fmt.Sprintf("action requires payment method %s, transaction uses %s", expected, orNone(string(actual))),
		})
	}
}

// RequireState passes when actual equals expected. On mismatch the actual
// state is reported; when the same action already ran (alreadyApplied) the
// failure is a ConflictError instead of a PreconditionFailure.
func RequireState(entity, id string, actual, expected ledger.Status, alreadyApplied bool) Check {
	return func(ctx context.Context) error {
		if actual == expected {
			return nil
		}
		if alreadyApplied {
			return types.NewConflictError(entity, id, string(actual), "already processed")
		}
		return types.NewPreconditionFailure(string(actual), types.Reason{
			Code:    ReasonInvalidState,
			Message: fmt.Sprintf("expected state %s, found %s", expected, actual),
		})
	}
}

// RequireUnique passes when no metadata record exists yet.
func RequireUnique(entity, id string, existing int, currentState ledger.Status) Check {
	return func(ctx context.Context) error {
		if existing == 0 {
			return nil
		}
		return types.NewConflictError(entity, id, string(currentState), fmt.Sprintf("%d record(s) already exist", existing))
	}
}

// RequireEvidence passes when evidence is attached or not needed. Evidence is
// mandatory from threshold (inclusive) or when the manual review flag is set;
// both reasons are reported when both apply.
func RequireEvidence(transaction *ledger.Transaction, threshold int64) Check {
	return func(ctx context.Context) error {
		if transaction.HasEvidence() {
			return nil
		}
		var reasons []types.Reason
		if transaction.Amount >= threshold {
			reasons = append(reasons, types.Reason{Code: ReasonExceedsThreshold, Message: fmt.Sprintf("amount %d reaches evidence threshold %d", transaction.Amount, threshold)})
		}
		if transaction.ManualReview {
			reasons = append(reasons, types.Reason{Code: ReasonManualReview, Message: "transaction is flagged for manual review"})
		}
		if len(reasons) == 0 {
			return nil
		}
		return types.NewPreconditionFailure(string(transaction.Status), reasons...)
	}
}

func orNone(value string) string {
	if value == "" {
		return "none"
	}
	return value
}

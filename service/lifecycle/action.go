package lifecycle

import (
	"fmt"
	"strings"

	"github.com/viant/fingov/model/ledger"
	"github.com/viant/fingov/model/types"
	"github.com/viant/fingov/service/approval"
)

// Action is a transition request on a transaction.
type Action string

const (
	ActionEvaluate Action = "evaluate"
	ActionIssue    Action = "issue"
	ActionApprove  Action = "approve"
	ActionResolve  Action = "resolve"
	ActionReject   Action = "reject"
)

// ParseAction converts a textual action.
func ParseAction(value string) (Action, error) {
	action := Action(strings.ToLower(strings.TrimSpace(value)))
	switch action {
	case ActionEvaluate, ActionIssue, ActionApprove, ActionResolve, ActionReject:
		return action, nil
	}
	return "", types.NewValidationError("action", "unsupported action %q", value)
}

// Payload carries action specific input.
type Payload struct {
	Comment       string           `json:"comment,omitempty"`
	Justification string           `json:"justification,omitempty"`
	Instrument    *InstrumentInput `json:"instrument,omitempty"`
}

// InstrumentInput describes the cheque to issue.
type InstrumentInput struct {
	Number  string          `json:"number"`
	Signers []ledger.Signer `json:"signers"`
}

// Result is the outcome of a committed lifecycle operation.
type Result struct {
	Transaction   *ledger.Transaction   `json:"transaction"`
	PreviousState ledger.Status         `json:"previousState,omitempty"`
	NewState      ledger.Status         `json:"newState"`
	Requirement   *approval.Requirement `json:"requirement,omitempty"`
	Approvals     []*ledger.Approval    `json:"approvals,omitempty"`
	Instrument    *ledger.Instrument    `json:"instrument,omitempty"`
}

// SubmitInput describes a new transaction.
type SubmitInput struct {
	ID            string               `json:"id,omitempty"`
	TeamID        string               `json:"teamId"`
	CreatorID     string               `json:"creatorId"`
	CategoryID    string               `json:"categoryId,omitempty"`
	Type          ledger.Type          `json:"type"`
	Amount        int64                `json:"amount"`
	Vendor        string               `json:"vendor,omitempty"`
	Description   string               `json:"description,omitempty"`
	PaymentMethod ledger.PaymentMethod `json:"paymentMethod,omitempty"`
	Dimension     string               `json:"dimension,omitempty"`
	EvidenceIDs   []string             `json:"evidenceIds,omitempty"`
	ManualReview  bool                 `json:"manualReview,omitempty"`
}

// Validate checks caller input.
func (in *SubmitInput) Validate() error {
	switch {
	case strings.TrimSpace(in.TeamID) == "":
		return types.NewValidationError("teamId", "is required")
	case strings.TrimSpace(in.CreatorID) == "":
		return types.NewValidationError("creatorId", "is required")
	case !in.Type.Valid():
		return types.NewValidationError("type", "unsupported transaction type %q", in.Type)
	case in.Amount < 0:
		return types.NewValidationError("amount", "must be >= 0, got %d", in.Amount)
	case in.Type == ledger.TypeExpense && !in.PaymentMethod.Valid():
		return types.NewValidationError("paymentMethod", "unsupported payment method %q", in.PaymentMethod)
	case in.PaymentMethod != "" && !in.PaymentMethod.Valid():
		return types.NewValidationError("paymentMethod", "unsupported payment method %q", in.PaymentMethod)
	}
	return nil
}

// Patch lists editable transaction fields. Nil fields are left unchanged.
type Patch struct {
	CategoryID   *string   `json:"categoryId,omitempty"`
	EvidenceIDs  *[]string `json:"evidenceIds,omitempty"`
	Vendor       *string   `json:"vendor,omitempty"`
	Description  *string   `json:"description,omitempty"`
	ManualReview *bool     `json:"manualReview,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p *Patch) Empty() bool {
	return p == nil || (p.CategoryID == nil && p.EvidenceIDs == nil && p.Vendor == nil && p.Description == nil && p.ManualReview == nil)
}

func (p *Patch) apply(transaction *ledger.Transaction) map[string]interface{} {
	changed := map[string]interface{}{}
	if p.CategoryID != nil {
		transaction.CategoryID = strings.TrimSpace(*p.CategoryID)
		changed["categoryId"] = transaction.CategoryID
	}
	if p.EvidenceIDs != nil {
		transaction.EvidenceIDs = append([]string(nil), (*p.EvidenceIDs)...)
		changed["evidenceIds"] = transaction.EvidenceIDs
	}
	if p.Vendor != nil {
		transaction.Vendor = *p.Vendor
		changed["vendor"] = transaction.Vendor
	}
	if p.Description != nil {
		transaction.Description = *p.Description
		changed["description"] = transaction.Description
	}
	if p.ManualReview != nil {
		transaction.ManualReview = *p.ManualReview
		changed["manualReview"] = transaction.ManualReview
	}
	return changed
}

// CloseResult lists transactions locked by a season closure.
type CloseResult struct {
	TeamID string   `json:"teamId"`
	Locked []string `json:"locked"`
}

func describe(violations []ledger.Violation) string {
	codes := make([]string, 0, len(violations))
	for _, v := range violations {
		codes = append(codes, fmt.Sprintf("%s(%s)", v.Code, v.Severity))
	}
	return strings.Join(codes, ", ")
}

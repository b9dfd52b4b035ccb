package ledger

import (
	"time"
)

// Type distinguishes money in from money out.
type Type string

const (
	TypeIncome  Type = "INCOME"
	TypeExpense Type = "EXPENSE"
)

// Valid reports whether t is a known transaction type.
func (t Type) Valid() bool { return t == TypeIncome || t == TypeExpense }

// PaymentMethod identifies how an expense is paid.
type PaymentMethod string

const (
	PaymentCheque PaymentMethod = "CHEQUE"
	PaymentEFT    PaymentMethod = "EFT"
	PaymentCash   PaymentMethod = "CASH"
	PaymentCard   PaymentMethod = "CARD"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCheque, PaymentEFT, PaymentCash, PaymentCard:
		return true
	}
	return false
}

// Transaction is a team ledger entry governed by the approval rules.
// Amount is expressed in minor currency units.
type Transaction struct {
	ID                    string        `json:"id"`
	TeamID                string        `json:"teamId"`
	CreatorID             string        `json:"creatorId"`
	CategoryID            string        `json:"categoryId,omitempty"`
	Type                  Type          `json:"type"`
	Amount                int64         `json:"amount"`
	Vendor                string        `json:"vendor,omitempty"`
	Description           string        `json:"description,omitempty"`
	PaymentMethod         PaymentMethod `json:"paymentMethod,omitempty"`
	Dimension             string        `json:"dimension,omitempty"`
	EvidenceIDs           []string      `json:"evidenceIds,omitempty"`
	ManualReview          bool          `json:"manualReview,omitempty"`
	Status                Status        `json:"status"`
	RequiredApprovals     int           `json:"requiredApprovals"`
	Violations            []Violation   `json:"violations,omitempty"`
	OverrideJustification string        `json:"overrideJustification,omitempty"`
	CreatedAt             time.Time     `json:"createdAt"`
	UpdatedAt             time.Time     `json:"updatedAt"`
	Version               int64         `json:"version"`
}

func (t *Transaction) GetVersion() int64  { return t.Version }
func (t *Transaction) SetVersion(v int64) { t.Version = v }

// HasEvidence reports whether at least one supporting document is attached.
func (t *Transaction) HasEvidence() bool {
	for _, id := range t.EvidenceIDs {
		if id != "" {
			return true
		}
	}
	return false
}

// BlockingViolations returns ERROR/CRITICAL violations that were not overridden.
func (t *Transaction) BlockingViolations() []Violation {
	var ret []Violation
	for _, v := range t.Violations {
		if v.Blocking() {
			ret = append(ret, v)
		}
	}
	return ret
}

// HasSevereViolation reports whether any ERROR/CRITICAL violation is present,
// overridden or not.
func (t *Transaction) HasSevereViolation() bool {
	for _, v := range t.Violations {
		if v.Severity.Severe() {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (t *Transaction) Clone() *Transaction {
	ret := *t
	ret.EvidenceIDs = append([]string(nil), t.EvidenceIDs...)
	ret.Violations = append([]Violation(nil), t.Violations...)
	return &ret
}

// Field exposes filterable attributes.
func (t *Transaction) Field(name string) (string, bool) {
	switch name {
	case "TeamID":
		return t.TeamID, true
	case "Status":
		return string(t.Status), true
	case "CreatorID":
		return t.CreatorID, true
	case "Type":
		return string(t.Type), true
	case "Dimension":
		return t.Dimension, true
	}
	return "", false
}

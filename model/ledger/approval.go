package ledger

import (
	"time"

	"github.com/viant/fingov/model/types"
)

// ApprovalStatus is the state of a single approver's decision.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "PENDING"
	ApprovalApproved ApprovalStatus = "APPROVED"
	ApprovalRejected ApprovalStatus = "REJECTED"
)

// Approval records one routed approver for a transaction.
type Approval struct {
	ID            string         `json:"id"`
	TransactionID string         `json:"transactionId"`
	ApproverID    string         `json:"approverId"`
	CreatorID     string         `json:"creatorId"`
	Status        ApprovalStatus `json:"status"`
	Comment       string         `json:"comment,omitempty"`
	ApprovedAt    *time.Time     `json:"approvedAt,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	Version       int64          `json:"version"`
}

// NewApproval creates a pending approval. Self-approval is a configuration
// error and is never produced.
func NewApproval(id, transactionID, approverID, creatorID string, now time.Time) (*Approval, error) {
	if approverID == "" {
		return nil, types.NewConfigurationError("approval", "no approver resolved for transaction %s", transactionID)
	}
	if approverID == creatorID {
		return nil, types.NewConfigurationError("approval", "approver %s is the creator of transaction %s", approverID, transactionID)
	}
	return &Approval{
		ID:            id,
		TransactionID: transactionID,
		ApproverID:    approverID,
		CreatorID:     creatorID,
		Status:        ApprovalPending,
		CreatedAt:     now,
	}, nil
}

func (a *Approval) GetVersion() int64  { return a.Version }
func (a *Approval) SetVersion(v int64) { a.Version = v }

// Field exposes filterable attributes.
func (a *Approval) Field(name string) (string, bool) {
	switch name {
	case "TransactionID":
		return a.TransactionID, true
	case "ApproverID":
		return a.ApproverID, true
	case "Status":
		return string(a.Status), true
	}
	return "", false
}

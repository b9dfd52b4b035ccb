// Package exception defines spend-cap exception requests and the pointer that
// materializes the single current request of a scope.
package exception

import (
	"fmt"
	"strings"
	"time"

	"github.com/viant/fingov/model/policy"
)

// Status is the decision state of a cap exception.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusApproved   Status = "APPROVED"
	StatusDenied     Status = "DENIED"
	StatusSuperseded Status = "SUPERSEDED"
)

// Active reports whether a request in status s may be the current one.
func (s Status) Active() bool { return s == StatusPending || s == StatusApproved }

// Decision is a reviewer verdict on a pending request.
type Decision string

const (
	DecisionApprove Decision = "APPROVE"
	DecisionDeny    Decision = "DENY"
)

// ParseDecision converts a textual decision.
func ParseDecision(value string) (Decision, error) {
	switch Decision(strings.ToUpper(strings.TrimSpace(value))) {
	case DecisionApprove, "APPROVED":
		return DecisionApprove, nil
	case DecisionDeny, "DENIED":
		return DecisionDeny, nil
	}
	return "", fmt.Errorf("unknown decision: %q", value)
}

// CapException requests a temporary increase of a spend cap. Records are
// never deleted: a superseded request stays in history with status SUPERSEDED
// and SupersededBy set.
type CapException struct {
	ID             string       `json:"id"`
	Scope          policy.Scope `json:"scope"`
	ScopeKey       string       `json:"scopeKey"`
	RequestedDelta int64        `json:"requestedDelta"`
	Justification  string       `json:"justification"`
	Status         Status       `json:"status"`
	Sequence       int64        `json:"sequence"`
	RequestedBy    string       `json:"requestedBy"`
	ReviewedBy     string       `json:"reviewedBy,omitempty"`
	ReviewReason   string       `json:"reviewReason,omitempty"`
	DecidedAt      *time.Time   `json:"decidedAt,omitempty"`
	SupersededBy   string       `json:"supersededBy,omitempty"`
	SupersededAt   *time.Time   `json:"supersededAt,omitempty"`
	CreatedAt      time.Time    `json:"createdAt"`
	Version        int64        `json:"version"`
}

func (e *CapException) GetVersion() int64  { return e.Version }
func (e *CapException) SetVersion(v int64) { e.Version = v }

// Superseded reports whether a newer request replaced this one.
func (e *CapException) Superseded() bool {
	return e.Status == StatusSuperseded || e.SupersededBy != ""
}

// Active reports whether e is PENDING or APPROVED and not superseded. At most
// one record per scope is active.
func (e *CapException) Active() bool { return e.Status.Active() && !e.Superseded() }

// Field exposes filterable attributes.
func (e *CapException) Field(name string) (string, bool) {
	switch name {
	case "ScopeKey":
		return e.ScopeKey, true
	case "Status":
		return string(e.Status), true
	}
	return "", false
}

// Pointer names the current request of a scope. CurrentID is empty when the
// scope has no active request.
type Pointer struct {
	ScopeKey  string `json:"scopeKey"`
	CurrentID string `json:"currentId,omitempty"`
	Version   int64  `json:"version"`
}

func (p *Pointer) GetVersion() int64  { return p.Version }
func (p *Pointer) SetVersion(v int64) { p.Version = v }

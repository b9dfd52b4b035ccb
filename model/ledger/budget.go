package ledger

import "time"

// BudgetStatus is the lifecycle state of a team budget.
type BudgetStatus string

const (
	BudgetDraft    BudgetStatus = "DRAFT"
	BudgetProposed BudgetStatus = "PROPOSED"
	BudgetLocked   BudgetStatus = "LOCKED"
)

// Budget is the season budget whose lock is decided by family acknowledgment.
type Budget struct {
	ID       string       `json:"id"`
	TeamID   string       `json:"teamId"`
	Season   string       `json:"season,omitempty"`
	Status   BudgetStatus `json:"status"`
	LockedAt *time.Time   `json:"lockedAt,omitempty"`
	LockedBy string       `json:"lockedBy,omitempty"`
	Version  int64        `json:"version"`
}

func (b *Budget) GetVersion() int64  { return b.Version }
func (b *Budget) SetVersion(v int64) { b.Version = v }

// Field exposes filterable attributes.
func (b *Budget) Field(name string) (string, bool) {
	switch name {
	case "TeamID":
		return b.TeamID, true
	case "Status":
		return string(b.Status), true
	}
	return "", false
}

package approval

import (
	"github.com/viant/fingov/model/ledger"
	"github.com/viant/fingov/model/policy"
)

// Requirement is the number of approvals an amount needs and the tier that
// produced it. Tier is nil when no tier matched.
type Requirement struct {
	RequiredApprovals int          `json:"requiredApprovals"`
	Tier              *policy.Tier `json:"tier,omitempty"`
}

// Evaluate returns the approval requirement for amount. Only expenses are
// evaluated. Empty tiers fall back to policy.DefaultTier.
func Evaluate(amount int64, txType ledger.Type, tiers policy.Tiers) Requirement {
	if txType != ledger.TypeExpense {
		return Requirement{}
	}
	if len(tiers) == 0 {
		tiers = policy.Tiers{policy.DefaultTier()}
	}
	for _, tier := range tiers.Clone() {
		if tier.Contains(amount) {
			matched := tier
			return Requirement{RequiredApprovals: tier.RequiredApprovals, Tier: &matched}
		}
	}
	return Requirement{}
}

// Package policy holds the value types of the governance policy: approval
// tiers, evidence and spend-cap thresholds, quorum rules and the immutable
// per-operation Context snapshot resolved from the catalog.
package policy

import (
	"fmt"
	"sort"

	"github.com/viant/fingov/model/quorum"
)

// DefaultTierMin is the lower bound of the fallback tier used when a team has
// no tiers configured.
const DefaultTierMin int64 = 20000

// Tier maps an inclusive amount range to a required approval count.
// A nil Max means the range is unbounded.
type Tier struct {
	Min               int64  `json:"min" yaml:"min"`
	Max               *int64 `json:"max,omitempty" yaml:"max,omitempty"`
	RequiredApprovals int    `json:"requiredApprovals" yaml:"requiredApprovals"`
}

// Contains reports whether amount falls in the tier range.
func (t Tier) Contains(amount int64) bool {
	if amount < t.Min {
		return false
	}
	return t.Max == nil || amount <= *t.Max
}

// Bounded reports whether the tier has an upper bound.
func (t Tier) Bounded() bool { return t.Max != nil }

func (t Tier) String() string {
	if t.Max == nil {
		return fmt.Sprintf("[%d, +inf) -> %d", t.Min, t.RequiredApprovals)
	}
	return fmt.Sprintf("[%d, %d] -> %d", t.Min, *t.Max, t.RequiredApprovals)
}

func (t Tier) clone() Tier {
	if t.Max != nil {
		upper := *t.Max
		t.Max = &upper
	}
	return t
}

// DefaultTier is applied when no tier is configured.
func DefaultTier() Tier {
	return Tier{Min: DefaultTierMin, RequiredApprovals: 1}
}

// Tiers is an ordered, disjoint tier list.
type Tiers []Tier

// Validate checks that tiers are well formed, ascending by Min and disjoint.
func (t Tiers) Validate() error {
	for i, tier := range t {
		if tier.Min < 0 {
			return fmt.Errorf("tier %d: min must be >= 0", i)
		}
		if tier.Max != nil && *tier.Max < tier.Min {
			return fmt.Errorf("tier %d: max %d below min %d", i, *tier.Max, tier.Min)
		}
		if tier.RequiredApprovals < 0 {
			return fmt.Errorf("tier %d: required approvals must be >= 0", i)
		}
		if i == 0 {
			continue
		}
		prev := t[i-1]
		if tier.Min <= prev.Min {
			return fmt.Errorf("tier %d: min %d not ascending", i, tier.Min)
		}
		if prev.Max == nil || *prev.Max >= tier.Min {
			return fmt.Errorf("tier %d overlaps tier %d", i, i-1)
		}
	}
	return nil
}

// Clone returns a deep copy.
func (t Tiers) Clone() Tiers {
	if t == nil {
		return nil
	}
	ret := make(Tiers, len(t))
	for i, tier := range t {
		ret[i] = tier.clone()
	}
	return ret
}

// Sorted returns a copy ordered by Min; it does not repair overlaps.
func (t Tiers) Sorted() Tiers {
	ret := t.Clone()
	sort.SliceStable(ret, func(i, j int) bool { return ret[i].Min < ret[j].Min })
	return ret
}

// Scope identifies a spend cap: a team plus an optional dimension such as an
// age group or skill level.
type Scope struct {
	TeamID    string `json:"teamId" yaml:"teamId"`
	Dimension string `json:"dimension,omitempty" yaml:"dimension,omitempty"`
}

// Key returns the canonical string key of the scope.
func (s Scope) Key() string {
	if s.Dimension == "" {
		return s.TeamID
	}
	return s.TeamID + "/" + s.Dimension
}

// SpendCap is the base cap for a scope, in minor units.
type SpendCap struct {
	Scope  Scope `json:"scope" yaml:"scope"`
	Amount int64 `json:"amount" yaml:"amount"`
}

// Bounds is an inclusive override range.
type Bounds struct {
	Min int `json:"min" yaml:"min"`
	Max int `json:"max" yaml:"max"`
}

// Contains reports whether value lies within the bounds.
func (b Bounds) Contains(value int) bool { return value >= b.Min && value <= b.Max }

// GovernanceRules configure the budget acknowledgment quorum.
type GovernanceRules struct {
	Mode              quorum.Mode               `json:"mode" yaml:"mode"`
	Threshold         int                       `json:"threshold" yaml:"threshold"`
	EligibleFamilies  quorum.EligibleDefinition `json:"eligibleFamilies" yaml:"eligibleFamilies"`
	AllowTeamOverride bool                      `json:"allowTeamOverride" yaml:"allowTeamOverride"`
	CountBounds       Bounds                    `json:"countBounds" yaml:"countBounds"`
	PercentBounds     Bounds                    `json:"percentBounds" yaml:"percentBounds"`
}

// OverrideBounds returns the override range for the active mode.
func (g GovernanceRules) OverrideBounds() Bounds {
	if g.Mode == quorum.ModePercent {
		return g.PercentBounds
	}
	return g.CountBounds
}

// ValidateThreshold checks threshold against the mode's intrinsic range.
func ValidateThreshold(mode quorum.Mode, threshold int) error {
	switch mode {
	case quorum.ModeCount:
		if threshold < 1 {
			return fmt.Errorf("count threshold must be >= 1, got %d", threshold)
		}
	case quorum.ModePercent:
		if threshold < 1 || threshold > 100 {
			return fmt.Errorf("percent threshold must be in [1,100], got %d", threshold)
		}
	default:
		return fmt.Errorf("unknown quorum mode: %q", mode)
	}
	return nil
}

// Validate checks rule consistency.
func (g GovernanceRules) Validate() error {
	if err := ValidateThreshold(g.Mode, g.Threshold); err != nil {
		return err
	}
	if g.EligibleFamilies != quorum.ActiveRoster {
		return fmt.Errorf("unsupported eligible family definition: %q", g.EligibleFamilies)
	}
	if g.AllowTeamOverride {
		bounds := g.OverrideBounds()
		if bounds.Min > bounds.Max {
			return fmt.Errorf("override bounds min %d exceeds max %d", bounds.Min, bounds.Max)
		}
		if err := ValidateThreshold(g.Mode, bounds.Min); err != nil {
			return fmt.Errorf("override min: %w", err)
		}
		if err := ValidateThreshold(g.Mode, bounds.Max); err != nil {
			return fmt.Errorf("override max: %w", err)
		}
	}
	return nil
}

package policy

import (
	"sort"
	"time"
)

// Context is the immutable policy snapshot resolved for one team at the start
// of an operation. Every decision taken during the operation reads from the
// same Context so it can be reproduced from the snapshot alone.
type Context struct {
	teamID            string
	tiers             Tiers
	defaulted         bool
	evidenceThreshold int64
	requiredSigners   int
	spendCaps         map[string]SpendCap
	governance        GovernanceRules
	revision          int64
	resolvedAt        time.Time
}

// Snapshot is the exported, serialisable form of a Context.
type Snapshot struct {
	TeamID            string          `json:"teamId"`
	Tiers             Tiers           `json:"tiers"`
	DefaultTier       bool            `json:"defaultTier"`
	EvidenceThreshold int64           `json:"evidenceThreshold"`
	RequiredSigners   int             `json:"requiredSigners"`
	SpendCaps         []SpendCap      `json:"spendCaps,omitempty"`
	Governance        GovernanceRules `json:"governance"`
	Revision          int64           `json:"revision"`
	ResolvedAt        time.Time       `json:"resolvedAt"`
}

// NewContext builds a Context from a snapshot. Empty tiers fall back to
// DefaultTier.
func NewContext(s Snapshot) *Context {
	ret := &Context{
		teamID:            s.TeamID,
		tiers:             s.Tiers.Clone(),
		evidenceThreshold: s.EvidenceThreshold,
		requiredSigners:   s.RequiredSigners,
		spendCaps:         make(map[string]SpendCap, len(s.SpendCaps)),
		governance:        s.Governance,
		revision:          s.Revision,
		resolvedAt:        s.ResolvedAt,
	}
	if len(ret.tiers) == 0 {
		ret.tiers = Tiers{DefaultTier()}
		ret.defaulted = true
	}
	for _, c := range s.SpendCaps {
		ret.spendCaps[c.Scope.Key()] = c
	}
	return ret
}

func (c *Context) TeamID() string { return c.teamID }

// Tiers returns a copy of the effective tiers.
func (c *Context) Tiers() Tiers { return c.tiers.Clone() }

// DefaultTier reports whether the tiers are the built-in fallback.
func (c *Context) DefaultTier() bool { return c.defaulted }

func (c *Context) EvidenceThreshold() int64 { return c.evidenceThreshold }

func (c *Context) RequiredSigners() int { return c.requiredSigners }

func (c *Context) Governance() GovernanceRules { return c.governance }

func (c *Context) Revision() int64 { return c.revision }

// SpendCap returns the base cap for the team dimension, if one is configured.
func (c *Context) SpendCap(dimension string) (SpendCap, bool) {
	ret, ok := c.spendCaps[Scope{TeamID: c.teamID, Dimension: dimension}.Key()]
	return ret, ok
}

// Snapshot exports the context.
func (c *Context) Snapshot() Snapshot {
	ret := Snapshot{
		TeamID:            c.teamID,
		Tiers:             c.tiers.Clone(),
		DefaultTier:       c.defaulted,
		EvidenceThreshold: c.evidenceThreshold,
		RequiredSigners:   c.requiredSigners,
		Governance:        c.governance,
		Revision:          c.revision,
		ResolvedAt:        c.resolvedAt,
	}
	for _, spendCap := range c.spendCaps {
		ret.SpendCaps = append(ret.SpendCaps, spendCap)
	}
	sort.Slice(ret.SpendCaps, func(i, j int) bool {
		return ret.SpendCaps[i].Scope.Key() < ret.SpendCaps[j].Scope.Key()
	})
	return ret
}

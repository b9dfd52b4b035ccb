package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/viant/fingov/model/quorum"
)

func bound(v int64) *int64 { return &v }

func TestTiers_Validate(t *testing.T) {
	type testCase struct {
		name     string
		tiers    Tiers
		hasError bool
	}
	tests := []testCase{
		{name: "empty", tiers: nil},
		{name: "disjoint", tiers: Tiers{
			{Min: 20000, Max: bound(49999), RequiredApprovals: 1},
			{Min: 50000, RequiredApprovals: 2},
		}},
		{name: "overlapping", hasError: true, tiers: Tiers{
			{Min: 20000, Max: bound(50000), RequiredApprovals: 1},
			{Min: 50000, RequiredApprovals: 2},
		}},
		{name: "follows unbounded", hasError: true, tiers: Tiers{
			{Min: 0, RequiredApprovals: 1},
			{Min: 50000, RequiredApprovals: 2},
		}},
		{name: "unordered", hasError: true, tiers: Tiers{
			{Min: 50000, RequiredApprovals: 2},
			{Min: 20000, Max: bound(30000), RequiredApprovals: 1},
		}},
		{name: "inverted range", hasError: true, tiers: Tiers{{Min: 10, Max: bound(5)}}},
		{name: "negative approvals", hasError: true, tiers: Tiers{{Min: 10, RequiredApprovals: -1}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.tiers.Validate()
			if tc.hasError {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestTier_Contains(t *testing.T) {
	tier := Tier{Min: 20000, Max: bound(49999), RequiredApprovals: 1}
	assert.False(t, tier.Contains(19999))
	assert.True(t, tier.Contains(20000))
	assert.True(t, tier.Contains(49999))
	assert.False(t, tier.Contains(50000))
	assert.True(t, DefaultTier().Contains(1<<40))
}

func TestGovernanceRules_Validate(t *testing.T) {
	valid := GovernanceRules{Mode: quorum.ModePercent, Threshold: 80, EligibleFamilies: quorum.ActiveRoster,
		AllowTeamOverride: true, PercentBounds: Bounds{Min: 50, Max: 100}}
	assert.NoError(t, valid.Validate())

	unsupported := valid
	unsupported.EligibleFamilies = "ALL_REGISTERED"
	assert.Error(t, unsupported.Validate())

	outOfRange := valid
	outOfRange.Threshold = 101
	assert.Error(t, outOfRange.Validate())

	badBounds := valid
	badBounds.PercentBounds = Bounds{Min: 90, Max: 60}
	assert.Error(t, badBounds.Validate())

	count := GovernanceRules{Mode: quorum.ModeCount, Threshold: 0, EligibleFamilies: quorum.ActiveRoster}
	assert.Error(t, count.Validate())
}

func TestContext_Defaults(t *testing.T) {
	ctx := NewContext(Snapshot{TeamID: "t1", EvidenceThreshold: 50000,
		SpendCaps: []SpendCap{{Scope: Scope{TeamID: "t1", Dimension: "U12"}, Amount: 100000}}})
	assert.True(t, ctx.DefaultTier())
	assert.Equal(t, Tiers{DefaultTier()}, ctx.Tiers())

	spendCap, ok := ctx.SpendCap("U12")
	assert.True(t, ok)
	assert.EqualValues(t, 100000, spendCap.Amount)
	_, ok = ctx.SpendCap("U14")
	assert.False(t, ok)

	tiers := ctx.Tiers()
	tiers[0].Min = 1
	assert.EqualValues(t, DefaultTierMin, ctx.Tiers()[0].Min)
}

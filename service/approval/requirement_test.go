package approval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/fingov/model/ledger"
	"github.com/viant/fingov/model/policy"
)

func TestEvaluate(t *testing.T) {
	upper := func(v int64) *int64 { return &v }
	tiers := policy.Tiers{
		{Min: 20000, Max: upper(49999), RequiredApprovals: 1},
		{Min: 50000, Max: upper(199999), RequiredApprovals: 2},
		{Min: 200000, RequiredApprovals: 3},
	}
	type testCase struct {
		name     string
		amount   int64
		txType   ledger.Type
		tiers    policy.Tiers
		expected int
		tierMin  int64
		noTier   bool
	}
	tests := []testCase{
		{name: "lower bound inclusive", amount: 20000, txType: ledger.TypeExpense, tiers: tiers, expected: 1, tierMin: 20000},
		{name: "upper bound inclusive", amount: 49999, txType: ledger.TypeExpense, tiers: tiers, expected: 1, tierMin: 20000},
		{name: "next tier", amount: 50000, txType: ledger.TypeExpense, tiers: tiers, expected: 2, tierMin: 50000},
		{name: "unbounded tier", amount: 10000000, txType: ledger.TypeExpense, tiers: tiers, expected: 3, tierMin: 200000},
		{name: "below every tier", amount: 19999, txType: ledger.TypeExpense, tiers: tiers, noTier: true},
		{name: "income never needs approval", amount: 500000, txType: ledger.TypeIncome, tiers: tiers, noTier: true},
		{name: "default tier", amount: 20000, txType: ledger.TypeExpense, expected: 1, tierMin: policy.DefaultTierMin},
		{name: "default tier below min", amount: 19999, txType: ledger.TypeExpense, noTier: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			actual := Evaluate(tc.amount, tc.txType, tc.tiers)
			assert.Equal(t, tc.expected, actual.RequiredApprovals)
			if tc.noTier {
				assert.Nil(t, actual.Tier)
				return
			}
			if assert.NotNil(t, actual.Tier) {
				assert.Equal(t, tc.tierMin, actual.Tier.Min)
			}
		})
	}
}

func TestEvaluate_DoesNotAliasTiers(t *testing.T) {
	upper := int64(49999)
	tiers := policy.Tiers{{Min: 20000, Max: &upper, RequiredApprovals: 1}}
	actual := Evaluate(20000, ledger.TypeExpense, tiers)
	*actual.Tier.Max = 1
	assert.Equal(t, int64(49999), *tiers[0].Max)
}

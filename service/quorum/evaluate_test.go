package quorum

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/fingov/model/quorum"
	"github.com/viant/fingov/model/types"
)

func families(n int) []string {
	ret := make([]string, n)
	for i := range ret {
		ret[i] = fmt.Sprintf("fam-%02d", i)
	}
	return ret
}

func acks(familyIDs ...string) []*quorum.Acknowledgment {
	var ret []*quorum.Acknowledgment
	for _, id := range familyIDs {
		ret = append(ret, &quorum.Acknowledgment{ID: "ack-" + id, BudgetID: "b1", FamilyID: id, Acknowledged: true})
	}
	return ret
}

func TestEvaluate(t *testing.T) {
	ten := families(10)
	type testCase struct {
		name          string
		mode          quorum.Mode
		threshold     int
		eligible      []string
		acks          []*quorum.Acknowledgment
		expectMet     bool
		expectCount   int
		expectPercent string
	}
	tests := []testCase{
		{name: "percent met at threshold", mode: quorum.ModePercent, threshold: 80, eligible: ten, acks: acks(ten[:8]...), expectMet: true, expectCount: 8, expectPercent: "80"},
		{name: "percent not met", mode: quorum.ModePercent, threshold: 80, eligible: ten, acks: acks(ten[:7]...), expectCount: 7, expectPercent: "70"},
		{name: "no eligible families", mode: quorum.ModePercent, threshold: 1, eligible: nil, acks: acks("fam-00"), expectPercent: "0"},
		{name: "count threshold one", mode: quorum.ModeCount, threshold: 1, eligible: ten, acks: acks(ten[3]), expectMet: true, expectCount: 1, expectPercent: "10"},
		{name: "count not met", mode: quorum.ModeCount, threshold: 3, eligible: ten, acks: acks(ten[:2]...), expectCount: 2, expectPercent: "20"},
		{name: "duplicates counted once", mode: quorum.ModeCount, threshold: 2, eligible: ten, acks: acks(ten[0], ten[0], ten[0]), expectCount: 1, expectPercent: "10"},
		{name: "ineligible ignored", mode: quorum.ModeCount, threshold: 1, eligible: ten[:2], acks: acks("fam-09"), expectPercent: "0"},
		{name: "fractional percent", mode: quorum.ModePercent, threshold: 66, eligible: families(3), acks: acks("fam-00", "fam-01"), expectMet: true, expectCount: 2, expectPercent: "66.67"},
		{name: "percent rounds down below threshold", mode: quorum.ModePercent, threshold: 67, eligible: families(3), acks: acks("fam-00", "fam-01"), expectCount: 2, expectPercent: "66.67"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			actual, err := Evaluate(tc.mode, tc.threshold, tc.eligible, tc.acks)
			require.NoError(t, err)
			assert.Equal(t, tc.expectMet, actual.Met)
			assert.Equal(t, tc.expectCount, actual.Count)
			assert.Equal(t, tc.expectPercent, actual.Percent.String())
		})
	}
}

func TestEvaluate_UnacknowledgedIgnored(t *testing.T) {
	records := acks("fam-00", "fam-01")
	records[1].Acknowledged = false
	actual, err := Evaluate(quorum.ModeCount, 2, families(2), records)
	require.NoError(t, err)
	assert.False(t, actual.Met)
	assert.Equal(t, 1, actual.Count)
}

func TestEvaluate_InvalidThreshold(t *testing.T) {
	type testCase struct {
		name      string
		mode      quorum.Mode
		threshold int
	}
	tests := []testCase{
		{name: "count zero", mode: quorum.ModeCount, threshold: 0},
		{name: "percent zero", mode: quorum.ModePercent, threshold: 0},
		{name: "percent over hundred", mode: quorum.ModePercent, threshold: 101},
		{name: "unknown mode", mode: quorum.Mode("MAJORITY"), threshold: 50},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Evaluate(tc.mode, tc.threshold, families(3), nil)
			var validationErr *types.ValidationError
			assert.ErrorAs(t, err, &validationErr)
		})
	}
}

// Package quorum decides whether enough families acknowledged a budget and
// locks the budget once they have.
package quorum

import (
	"github.com/shopspring/decimal"
	mpolicy "github.com/viant/fingov/model/policy"
	"github.com/viant/fingov/model/quorum"
	"github.com/viant/fingov/model/types"
)

// Evaluate counts distinct eligible families with a positive acknowledgment
// and compares the count with threshold. In PERCENT mode the comparison is
// count*100 >= threshold*eligible; no eligible families never meets quorum.
func Evaluate(mode quorum.Mode, threshold int, eligible []string, acks []*quorum.Acknowledgment) (quorum.Result, error) {
	if err := mpolicy.ValidateThreshold(mode, threshold); err != nil {
		return quorum.Result{}, types.NewValidationError("threshold", "%v", err)
	}
	families := make(map[string]bool, len(eligible))
	for _, id := range eligible {
		if id != "" {
			families[id] = true
		}
	}
	counted := make(map[string]bool, len(acks))
	for _, ack := range acks {
		if ack == nil || !ack.Acknowledged || !families[ack.FamilyID] {
			continue
		}
		counted[ack.FamilyID] = true
	}
	ret := quorum.Result{
		Mode:      mode,
		Threshold: threshold,
		Count:     len(counted),
		Eligible:  len(families),
		Percent:   decimal.Zero,
	}
	if ret.Eligible > 0 {
		ret.Percent = decimal.NewFromInt(int64(ret.Count)).
			Mul(decimal.NewFromInt(100)).
			DivRound(decimal.NewFromInt(int64(ret.Eligible)), 2)
	}
	switch mode {
	case quorum.ModeCount:
		ret.Met = ret.Eligible > 0 && ret.Count >= threshold
	case quorum.ModePercent:
		ret.Met = ret.Eligible > 0 && int64(ret.Count)*100 >= int64(threshold)*int64(ret.Eligible)
	}
	return ret, nil
}

package main

import (
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/viant/fingov/model/quorum"
	svcquorum "github.com/viant/fingov/service/quorum"
)

func (a *app) quorumCmd() *cobra.Command {
	var (
		mode      string
		threshold int
		eligible  []string
		acked     []string
	)
	cmd := &cobra.Command{
		Use:     "quorum",
		Short:   "Evaluate an acknowledgment quorum",
		Example: `  fingov quorum --mode PERCENT --threshold 50 --eligible f1,f2,f3 --ack f1,f2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := quorum.ParseMode(mode)
			if err != nil {
				return err
			}
			acks := make([]*quorum.Acknowledgment, 0, len(acked))
			for _, familyID := range acked {
				acks = append(acks, &quorum.Acknowledgment{FamilyID: strings.TrimSpace(familyID), Acknowledged: true})
			}
			result, err := svcquorum.Evaluate(parsed, threshold, eligible, acks)
			if err != nil {
				return err
			}
			if err = pterm.DefaultTable.WithHasHeader().WithData(pterm.TableData{
				{"Mode", "Threshold", "Acknowledged", "Eligible", "Percent", "Met"},
				{string(result.Mode), strconv.Itoa(result.Threshold), strconv.Itoa(result.Count), strconv.Itoa(result.Eligible), result.Percent.StringFixed(2) + "%", strconv.FormatBool(result.Met)},
			}).Render(); err != nil {
				return err
			}
			if !result.Met {
				pterm.Warning.Printfln("Quorum not met: %d of %d families", result.Count, result.Eligible)
				return nil
			}
			pterm.Success.Println("Quorum met")
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", string(quorum.ModePercent), "COUNT or PERCENT")
	cmd.Flags().IntVar(&threshold, "threshold", 50, "families (COUNT) or percent (PERCENT)")
	cmd.Flags().StringSliceVar(&eligible, "eligible", nil, "eligible family ids")
	cmd.Flags().StringSliceVar(&acked, "ack", nil, "acknowledged family ids")
	return cmd
}

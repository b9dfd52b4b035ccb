package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/viant/fingov/model/ledger"
	"github.com/viant/fingov/model/types"
	"github.com/viant/fingov/service/notify"
)

func (a *app) evaluateCmd() *cobra.Command {
	var (
		teamID string
		amount int64
		txType string
	)
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Show how many approvals an amount requires for a team",
		Example: `  # 1,250.00 expense of team u11
  fingov evaluate --team u11 --amount 125000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed := ledger.Type(strings.ToUpper(txType))
			if !parsed.Valid() {
				return types.NewValidationError("type", "unsupported transaction type %q", txType)
			}
			srv, err := a.newService(cmd.Context())
			if err != nil {
				return err
			}
			defer srv.Close(context.Background())
			requirement, err := srv.ApprovalRequirement(teamID, amount, parsed)
			if err != nil {
				return err
			}
			resolved, err := srv.Policy(teamID)
			if err != nil {
				return err
			}
			tier := "none"
			if requirement.Tier != nil {
				tier = requirement.Tier.String()
			}
			evidence := "no"
			if parsed == ledger.TypeExpense && amount >= resolved.EvidenceThreshold() {
				evidence = "yes"
			}
			return pterm.DefaultTable.WithHasHeader().WithData(pterm.TableData{
				{"Team", "Type", "Amount", "Tier", "Required approvals", "Evidence required"},
				{teamID, string(parsed), notify.FormatAmount(amount), tier, strconv.Itoa(requirement.RequiredApprovals), evidence},
			}).Render()
		},
	}
	cmd.Flags().StringVarP(&teamID, "team", "t", "", "team id")
	cmd.Flags().Int64VarP(&amount, "amount", "a", 0, "amount in minor units")
	cmd.Flags().StringVar(&txType, "type", string(ledger.TypeExpense), fmt.Sprintf("%s or %s", ledger.TypeExpense, ledger.TypeIncome))
	_ = cmd.MarkFlagRequired("team")
	return cmd
}

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/viant/fingov/model/exception"
	mpolicy "github.com/viant/fingov/model/policy"
	"github.com/viant/fingov/service/notify"
)

func (a *app) exceptionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exception",
		Short: "Request and decide spend cap exceptions",
	}
	cmd.AddCommand(a.exceptionSubmitCmd())
	cmd.AddCommand(a.exceptionDecideCmd())
	return cmd
}

func (a *app) exceptionSubmitCmd() *cobra.Command {
	var (
		scope         mpolicy.Scope
		delta         int64
		requester     string
		justification string
	)
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Request a spend cap increase",
		Example: `  fingov exception submit --team u11 --dimension travel --delta 25000 --requester coach
  fingov exception submit --team u11 --delta 10000 --requester coach --justification "tournament fees"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(justification) == "" {
				var err error
				if justification, err = promptJustification(); err != nil {
					return err
				}
			}
			srv, err := a.startService(cmd.Context())
			if err != nil {
				return err
			}
			defer srv.Close(context.Background())
			ret, err := srv.SubmitException(cmd.Context(), scope, delta, justification, requester)
			if err != nil {
				return err
			}
			pterm.Success.Printfln("Exception %s submitted for %s (+%s), sequence %d", ret.ID, ret.ScopeKey, notify.FormatAmount(ret.RequestedDelta), ret.Sequence)
			return nil
		},
	}
	cmd.Flags().StringVarP(&scope.TeamID, "team", "t", "", "team id")
	cmd.Flags().StringVar(&scope.Dimension, "dimension", "", "spend cap dimension (empty caps the whole team)")
	cmd.Flags().Int64Var(&delta, "delta", 0, "requested increase in minor units")
	cmd.Flags().StringVar(&requester, "requester", "", "requesting user id")
	cmd.Flags().StringVar(&justification, "justification", "", "justification (prompted when omitted)")
	_ = cmd.MarkFlagRequired("team")
	_ = cmd.MarkFlagRequired("requester")
	return cmd
}

func (a *app) exceptionDecideCmd() *cobra.Command {
	var (
		reviewer string
		reason   string
	)
	cmd := &cobra.Command{
		Use:   "decide <id> <APPROVE|DENY>",
		Short: "Approve or deny the current exception request of a scope",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			decision, err := exception.ParseDecision(args[1])
			if err != nil {
				return err
			}
			srv, err := a.startService(cmd.Context())
			if err != nil {
				return err
			}
			defer srv.Close(context.Background())
			ret, err := srv.DecideException(cmd.Context(), args[0], decision, reviewer, reason)
			if err != nil {
				return err
			}
			pterm.Success.Printfln("Exception %s is %s", ret.ID, ret.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&reviewer, "reviewer", "", "reviewing user id")
	cmd.Flags().StringVar(&reason, "reason", "", "decision reason")
	_ = cmd.MarkFlagRequired("reviewer")
	return cmd
}

func promptJustification() (string, error) {
	if info, err := os.Stdin.Stat(); err != nil || info.Mode()&os.ModeCharDevice == 0 {
		return "", fmt.Errorf("justification is required")
	}
	var justification string
	err := huh.NewText().
		Title("Justification").
		Description("Why does this scope need a higher cap?").
		Value(&justification).
		Validate(func(s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("justification is required")
			}
			return nil
		}).
		Run()
	return justification, err
}

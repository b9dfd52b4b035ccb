package main

import (
	"context"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func (a *app) rosterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roster",
		Short: "Manage team rosters",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "import <location>...",
		Short: "Import roster documents into the configured store",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			srv, err := a.startService(cmd.Context())
			if err != nil {
				return err
			}
			defer srv.Close(context.Background())
			data := pterm.TableData{{"Team", "Members", "Families", "New budgets"}}
			for _, location := range args {
				result, err := srv.LoadRoster(cmd.Context(), location)
				if err != nil {
					return err
				}
				data = append(data, []string{result.TeamID, strconv.Itoa(result.Members), strconv.Itoa(result.Families), strconv.Itoa(result.Budgets)})
			}
			return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
		},
	})
	return cmd
}

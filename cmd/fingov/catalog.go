package main

import (
	"context"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	mpolicy "github.com/viant/fingov/model/policy"
	"github.com/viant/fingov/policy"
)

func (a *app) catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect policy catalogs",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "validate [location]",
		Short: "Validate a policy catalog and print the resolved team policies",
		Long: `Validate loads the catalog document (any afs location, relative to policy.baseURL)
and reports the first configuration error. Without a location the configured
policy.url is validated.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			srv, err := a.newService(cmd.Context())
			if err != nil {
				return err
			}
			defer srv.Close(context.Background())
			catalog := srv.Catalog()
			if len(args) == 1 {
				if catalog, err = srv.LoadCatalog(cmd.Context(), args[0]); err != nil {
					return err
				}
			}
			if err = renderCatalog(catalog); err != nil {
				return err
			}
			pterm.Success.Println("Catalog is valid")
			return nil
		},
	})
	return cmd
}

func renderCatalog(catalog *policy.Catalog) error {
	defaults := catalog.Defaults()
	data := pterm.TableData{
		{"Team", "Tiers", "Evidence threshold", "Signers", "Quorum", "Spend caps"},
		{"(defaults)", tierCount(defaults.Tiers), strconv.FormatInt(defaults.EvidenceThreshold, 10), strconv.Itoa(defaults.RequiredSigners), quorumOf(defaults.Governance), "0"},
	}
	for _, teamID := range catalog.Teams() {
		resolved, err := catalog.Resolve(teamID)
		if err != nil {
			return err
		}
		snapshot := resolved.Snapshot()
		data = append(data, []string{
			teamID,
			tierCount(snapshot.Tiers),
			strconv.FormatInt(snapshot.EvidenceThreshold, 10),
			strconv.Itoa(snapshot.RequiredSigners),
			quorumOf(snapshot.Governance),
			strconv.Itoa(len(snapshot.SpendCaps)),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func tierCount(tiers mpolicy.Tiers) string {
	if len(tiers) == 0 {
		return "default"
	}
	return strconv.Itoa(len(tiers))
}

func quorumOf(rules mpolicy.GovernanceRules) string {
	return string(rules.Mode) + " " + strconv.Itoa(rules.Threshold)
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	fhttp "github.com/viant/fingov/service/http"
	"go.uber.org/zap"
)

func (a *app) serveCmd() *cobra.Command {
	var (
		addr    string
		rosters []string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the governance engine HTTP API",
		Example: `  # Serve with a config file and preload a roster
  fingov serve -c fingov.yaml --roster rosters/u11.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			srv, err := a.newService(ctx)
			if err != nil {
				return err
			}
			if err = srv.Start(ctx); err != nil {
				return err
			}
			defer func() {
				if err := srv.Close(context.Background()); err != nil {
					a.logger.Warn("shutdown failed", zap.Error(err))
				}
			}()
			for _, location := range rosters {
				result, err := srv.LoadRoster(ctx, location)
				if err != nil {
					return err
				}
				pterm.Info.Printf("Roster %s: %d member(s), %d famil(ies), %d budget(s)\n", result.TeamID, result.Members, result.Families, result.Budgets)
			}
			if addr == "" {
				addr = a.config.HTTP.Addr
			}
			pterm.Success.Printf("Listening on %s\n", addr)
			handler := fhttp.New(srv, fhttp.WithLogger(a.logger))
			return fhttp.Serve(ctx, addr, handler.Router(), a.config.HTTP.ShutdownTimeout, a.logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to http.addr)")
	cmd.Flags().StringArrayVar(&rosters, "roster", nil, "roster document to import before serving (repeatable)")
	return cmd
}

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/viant/fingov"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const envPrefix = "FINGOV"

// app carries state shared by commands.
type app struct {
	cfgFile string
	config  *fingov.Config
	logger  *zap.Logger
}

// Execute runs the command line and returns the process exit code.
func Execute(args []string) int {
	pterm.Error.Prefix = pterm.Prefix{
		Text:  " ERROR ",
		Style: pterm.NewStyle(pterm.BgLightRed, pterm.FgBlack),
	}
	a := &app{}
	root := a.rootCmd()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		pterm.Error.Println(capitalize(describe(err)))
		return 1
	}
	return 0
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "fingov",
		Short:         "fingov is a financial governance and approval rule engine",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig(a.cfgFile)
			if err != nil {
				return err
			}
			a.config = config
			a.logger, err = newLogger(config.Log)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (yaml or json)")
	root.AddCommand(a.serveCmd())
	root.AddCommand(a.evaluateCmd())
	root.AddCommand(a.quorumCmd())
	root.AddCommand(a.catalogCmd())
	root.AddCommand(a.exceptionCmd())
	root.AddCommand(a.rosterCmd())
	return root
}

// loadConfig layers the config file and FINGOV_ environment variables over
// fingov.DefaultConfig.
func loadConfig(cfgFile string) (*fingov.Config, error) {
	v := viper.New()
	defaults, err := yaml.Marshal(fingov.DefaultConfig())
	if err != nil {
		return nil, err
	}
	v.SetConfigType("yaml")
	if err = v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return nil, fmt.Errorf("failed to read defaults: %w", err)
	}
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err = v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	ret := &fingov.Config{}
	if err = v.Unmarshal(ret); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err = ret.Validate(); err != nil {
		return nil, err
	}
	return ret, nil
}

func (a *app) newService(ctx context.Context) (*fingov.Service, error) {
	return fingov.New(ctx, fingov.WithConfig(a.config), fingov.WithLogger(a.logger))
}

// startService creates a started service so notifications and audit entries
// queued by a one-shot command are delivered on Close.
func (a *app) startService(ctx context.Context) (*fingov.Service, error) {
	srv, err := a.newService(ctx)
	if err != nil {
		return nil, err
	}
	if err = srv.Start(ctx); err != nil {
		_ = srv.Close(context.Background())
		return nil, err
	}
	return srv, nil
}

func capitalize(s string) string {
	if len(s) == 0 {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func describe(err error) string {
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		var messages []string
		for _, e := range joined.Unwrap() {
			messages = append(messages, e.Error())
		}
		return strings.Join(messages, "; ")
	}
	return err.Error()
}

package main

import (
	"os"

	"github.com/foxseedlab/tunesmith/internal/config"
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"
)

type commandContext struct {
	cfg      *config.Config
	injector do.Injector
}

func (c *commandContext) ensure() error {
	if c.cfg != nil {
		return nil
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	initLogger(cfg, os.Stderr)
	c.cfg = cfg
	c.injector = setupDI(cfg)
	return nil
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "tunesmith",
		Short:         "Music tag editor, cutter and voice converter chat bot",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return ctx.ensure()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), ctx)
		},
	}

	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newMigrateCommand(ctx))
	rootCmd.AddCommand(newStatsCommand(ctx))
	rootCmd.AddCommand(newAdminCommand(ctx))

	return rootCmd
}

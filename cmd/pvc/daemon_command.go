package main

import (
	"github.com/spf13/cobra"

	"plexconverter/internal/daemonrun"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	var (
		logLevel string
		dev      bool
		once     bool
	)

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the background coordinator in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel:    logLevel,
				Development: dev,
				Once:        once,
			})
		},
	}

	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override logging.level")
	cmd.Flags().BoolVar(&dev, "dev", false, "Include source locations in log output")
	cmd.Flags().BoolVar(&once, "once", false, "Run one coordination cycle and exit")
	return cmd
}

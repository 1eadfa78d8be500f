package main

import (
	"context"
	"os"

	"log/slog"

	"github.com/spf13/cobra"
	"github.com/stackmint/stackmint/internal/logging"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "stackmint",
		Short:   "StackMint cluster control plane",
		Long:    "StackMint provisions and supervises container clusters on an OpenStack substrate.",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Show help by default when no subcommand is provided.
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultConfig := os.Getenv("STACKMINT_CONFIG")
	cmd.PersistentFlags().String("config", defaultConfig, "Configuration file (env STACKMINT_CONFIG)")
	cmd.PersistentFlags().String("log-format", "human", "Log format (human|text|json) (env STACKMINT_LOG_FORMAT)")

	cmd.PersistentPreRunE = func(c *cobra.Command, _ []string) error {
		format, _ := c.Flags().GetString("log-format")
		if env := os.Getenv("STACKMINT_LOG_FORMAT"); env != "" { // env overrides flag
			format = env
		}
		l, err := logging.New(format, slog.LevelInfo)
		if err != nil {
			return err
		}
		ctx := logging.WithLogger(c.Context(), l)
		c.SetContext(ctx)
		return nil
	}

	cmd.AddCommand(newCmdVersion())
	cmd.AddCommand(newCmdConfig())
	cmd.AddCommand(newCmdMigrate())
	cmd.AddCommand(newCmdServe())
	return cmd
}

func main() {
	root := newRootCmd()
	root.SetContext(context.Background())
	executed, err := root.ExecuteC()
	if err != nil {
		ctx := root.Context()
		if executed != nil {
			ctx = executed.Context()
		}
		logging.FromContext(ctx).Error(ctx, "failed", "error", err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/feishu-sync/feishu-sync/internal/sync"
	"github.com/feishu-sync/feishu-sync/internal/version"
)

func init() {
	rootCmd.AddCommand(newDaemonCmd())
}

func newDaemonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the sync daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			slog.Info("feishu-sync", "version", version.Short())

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			m, err := sync.NewManager(cfg)
			if err != nil {
				return err
			}

			defer slog.Info("Bye!")
			if err := m.Run(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("daemon", "error", err)
				return err
			}
			return nil
		},
	}
}

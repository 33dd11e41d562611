package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/feishu-sync/feishu-sync/internal/config"
	"github.com/feishu-sync/feishu-sync/internal/supervisor"
)

const syncWorker = "sync"

func init() {
	rootCmd.AddCommand(newStartCmd(), newStopCmd(), newStatusCmd())
}

func newSupervisor() *supervisor.Supervisor {
	return supervisor.New(config.DefaultConfigDir)
}

func newStartCmd() *cobra.Command {
	var authHelper string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the sync daemon in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			// fail fast on a broken config before detaching
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			sup := newSupervisor()

			if authHelper != "" {
				pid, err := sup.Start("auth", authHelper)
				switch {
				case errors.Is(err, supervisor.ErrAlreadyRunning):
					fmt.Printf("%s auth helper already running (pid %d)\n", cyan("•"), pid)
				case err != nil:
					return err
				default:
					fmt.Printf("%s auth helper started (pid %d)\n", green("✓"), pid)
				}
			}

			self, err := os.Executable()
			if err != nil {
				return err
			}
			workerArgs := []string{"daemon"}
			if cfg.Path != "" {
				workerArgs = append(workerArgs, "--config", cfg.Path)
			}

			pid, err := sup.Start(syncWorker, self, workerArgs...)
			if errors.Is(err, supervisor.ErrAlreadyRunning) {
				fmt.Printf("%s daemon already running (pid %d)\n", cyan("•"), pid)
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Printf("%s daemon started (pid %d)\n", green("✓"), pid)
			fmt.Printf("  syncing %s\n", cfg.Sync.FolderPath)
			fmt.Printf("  logs at %s\n", sup.LogPath(syncWorker))
			return nil
		},
	}
	cmd.Flags().StringVar(&authHelper, "auth-helper", "", "token refresh helper to run alongside the daemon")
	return cmd
}

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the background sync daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			sup := newSupervisor()

			stopped := false
			for _, name := range []string{syncWorker, "auth"} {
				err := sup.Stop(name)
				switch {
				case errors.Is(err, supervisor.ErrNotRunning):
					continue
				case err != nil:
					return err
				}
				fmt.Printf("%s %s stopped\n", green("✓"), name)
				stopped = true
			}
			if !stopped {
				fmt.Println("nothing to stop")
			}
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			sup := newSupervisor()

			for _, name := range []string{syncWorker, "auth"} {
				if pid, running := sup.Status(name); running {
					fmt.Printf("%s %s running (pid %d)\n", green("●"), name, pid)
				} else {
					fmt.Printf("%s %s stopped\n", red("●"), name)
				}
			}
			return nil
		},
	}
}

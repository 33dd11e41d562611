package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/feishu-sync/feishu-sync/internal/feishu"
	"github.com/feishu-sync/feishu-sync/internal/sync"
)

func init() {
	rootCmd.AddCommand(newSyncCmd())
}

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one reconciliation pass and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			token, err := cfg.Token()
			if err != nil {
				return err
			}
			sdk, err := feishu.New(feishu.DefaultBaseURL, token)
			if err != nil {
				return err
			}
			defer sdk.Close()

			r := sync.NewReconciler(sync.NewRemoteAPI(sdk), cfg.Sync.FolderPath, cfg.WikiSpaceID, nil)
			counters, err := r.Run(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("%s %s\n", green("synced"), cfg.Sync.FolderPath)
			fmt.Printf("  downloaded: %d\n", counters.Downloaded)
			fmt.Printf("  uploaded:   %d\n", counters.Uploaded)
			fmt.Printf("  deleted:    %d local, %d remote\n", counters.DeletedLocal, counters.DeletedRemote)
			if counters.Conflicts > 0 {
				fmt.Printf("  %s  %d (see *.remote.md copies)\n", red("conflicts:"), counters.Conflicts)
			}
			fmt.Printf("  unchanged:  %d\n", counters.Skipped)
			return nil
		},
	}
}

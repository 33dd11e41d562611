package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/feishu-sync/feishu-sync/internal/config"
	"github.com/feishu-sync/feishu-sync/internal/version"
)

var (
	red   = color.New(color.FgHiRed, color.Bold).SprintFunc()
	green = color.New(color.FgHiGreen).SprintFunc()
	cyan  = color.New(color.FgHiCyan).SprintFunc()
)

var rootCmd = &cobra.Command{
	Use:     "feishu-sync",
	Short:   "Two-way sync between a Feishu wiki space and a local Markdown folder",
	Version: version.Detailed(),
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default "+config.DefaultConfigPath+")")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
}

func main() {
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if debug, _ := cmd.Flags().GetBool("debug"); debug {
			level = slog.LevelDebug
		}
		handler := tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: "15:04:05.000",
			NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
		})
		slog.SetDefault(slog.New(handler))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

// flags override the S3TUI_* environment
type flags struct {
	dataDir     string
	credsFile   string
	concurrency int
	logLevel    string
	credential  string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := fang.Execute(ctx, newRootCmd()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:   "s3tui",
		Short: "A terminal file manager for S3 compatible object stores",
		Long:  "s3tui queues uploads and downloads, and picks up unfinished transfers from the last session.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), f, nil)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&f.dataDir, "data-dir", "", "directory for credentials, state and logs (env S3TUI_DATA)")
	pf.StringVar(&f.credsFile, "creds-file", "", "single credential file instead of <data-dir>/creds (env S3TUI_CREDS_FILE)")
	pf.IntVar(&f.concurrency, "concurrency", 0, "transfers allowed to run at once (env S3TUI_CONCURRENCY)")
	pf.StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error (env S3TUI_LOG_LEVEL)")
	pf.StringVar(&f.credential, "credential", "", "credential name to use for new selections (default: the selected one)")

	cmd.AddCommand(newUploadCmd(&f), newDownloadCmd(&f), newStatusCmd(&f), newBucketsCmd(&f))
	return cmd
}

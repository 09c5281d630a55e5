package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/eztutor/drive-export/internal/config"
	"github.com/eztutor/drive-export/internal/crypto"
	"github.com/eztutor/drive-export/internal/entrypoint"
	"github.com/eztutor/drive-export/internal/retryqueue"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	serve := newServeCommand()

	root := &cobra.Command{
		Use:          "drive-export",
		Short:        "Export lessons and quizzes to Google Drive",
		Version:      fmt.Sprintf("%s (%s)", Version, Commit),
		SilenceUsage: true,
		// Running without a subcommand starts the server.
		RunE: serve.RunE,
	}
	root.AddCommand(serve, newGenerateKeyCommand(), newDrainQueueCommand())
	return root
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server with the retry worker and task queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return entrypoint.Run(config.NewConfig(), Version)
		},
	}
}

func newGenerateKeyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "generate-key",
		Short: "Print a random hex key for ENCRYPTION_KEY",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := crypto.GenerateKey()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}
}

func newDrainQueueCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "drain-queue",
		Short: "Process due export retries until none remain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			counts, err := entrypoint.DrainQueue(ctx, config.NewConfig(), limit)
			printOutcomes(cmd, counts)
			return err
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of items to process (0 means no limit)")
	return cmd
}

func printOutcomes(cmd *cobra.Command, counts map[retryqueue.Outcome]int) {
	if len(counts) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no due exports")
		return
	}
	outcomes := make([]string, 0, len(counts))
	for outcome := range counts {
		outcomes = append(outcomes, string(outcome))
	}
	sort.Strings(outcomes)
	for _, outcome := range outcomes {
		fmt.Fprintf(cmd.OutOrStdout(), "%-14s %d\n", outcome, counts[retryqueue.Outcome(outcome)])
	}
}

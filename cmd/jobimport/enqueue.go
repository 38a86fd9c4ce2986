package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	enqueueNoAI bool
	enqueueAs   string
	enqueueRun  bool
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue <url>...",
	Short: "Add job page URLs to the import queue",
	Long:  "Adds each URL to the import queue unless it is already queued or imported. With --run, processes one batch afterwards.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runEnqueue,
}

func init() {
	enqueueCmd.Flags().BoolVar(&enqueueNoAI, "no-ai", false, "use heuristic extraction only (implied when ai.enabled is false)")
	enqueueCmd.Flags().StringVar(&enqueueAs, "as", "cli", "submitter recorded on the queue items")
	enqueueCmd.Flags().BoolVar(&enqueueRun, "run", false, "process a batch after enqueueing")
	rootCmd.AddCommand(enqueueCmd)
}

func runEnqueue(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := mustOpenApp(ctx, logger)
	defer a.Close()

	res, err := a.processor.Enqueue(ctx, args, enqueueAs, a.cfg.AI.Enabled && !enqueueNoAI)
	if err != nil {
		logger.Error("enqueue failed", "added", res.Added, "error", err)
		os.Exit(1)
	}
	fmt.Printf("added %d, skipped %d\n", res.Added, res.Skipped)

	if !enqueueRun || res.Added == 0 {
		return nil
	}
	report, err := a.processor.RunBatch(ctx)
	if err != nil {
		logger.Error("batch failed", "error", err)
		os.Exit(1)
	}
	printBatch(report)
	return nil
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobimport/internal/importer"
	"github.com/amishk599/jobimport/internal/scheduler"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process one batch of pending imports",
	Long:  "Takes the run lock, processes up to batch_size pending items, sends the batch notification and exits.",
	RunE:  runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := mustOpenApp(ctx, logger)
	defer a.Close()

	locker, closeLocker, err := setupLocker(ctx, a.cfg, logger)
	if err != nil {
		logger.Error("failed to set up run lock", "error", err)
		os.Exit(1)
	}
	defer closeLocker()

	n := setupNotifier(a.cfg, &http.Client{Timeout: 30 * time.Second}, logger)
	runner := scheduler.NewRunner(a.processor, locker, n, logger)

	report, err := runner.RunNow(ctx)
	if err != nil {
		logger.Error("batch failed", "error", err)
		os.Exit(1)
	}
	printBatch(report)
	return nil
}

func printBatch(r importer.BatchReport) {
	if r.Empty() {
		fmt.Println("queue empty, nothing to do")
		return
	}
	for _, it := range r.Items {
		line := fmt.Sprintf("%-9s %s", it.Outcome, it.URL)
		if it.ListingID != "" {
			line += " -> " + it.ListingID
		}
		if it.Message != "" {
			line += " (" + it.Message + ")"
		}
		fmt.Println(line)
	}
	fmt.Printf("succeeded %d, failed %d, duplicates %d\n", r.Succeeded, r.Failed, r.Duplicates)
}

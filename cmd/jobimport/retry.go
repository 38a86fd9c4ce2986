package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var retryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Send every failed import back to pending",
	RunE:  runRetry,
}

func init() {
	rootCmd.AddCommand(retryCmd)
}

func runRetry(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)
	ctx := context.Background()

	a := mustOpenApp(ctx, logger)
	defer a.Close()

	n, err := a.processor.RetryFailed(ctx)
	if err != nil {
		logger.Error("retry failed", "error", err)
		os.Exit(1)
	}
	fmt.Printf("%d failed imports reset to pending\n", n)
	return nil
}

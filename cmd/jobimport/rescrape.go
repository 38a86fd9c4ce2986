package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobimport/internal/model"
)

var rescrapeCmd = &cobra.Command{
	Use:   "rescrape <id>",
	Short: "Queue an item again and refresh its listing in place",
	Args:  cobra.ExactArgs(1),
	RunE:  runRescrape,
}

func init() {
	rootCmd.AddCommand(rescrapeCmd)
}

func runRescrape(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)
	ctx := context.Background()

	a := mustOpenApp(ctx, logger)
	defer a.Close()

	item, err := a.processor.Rescrape(ctx, args[0])
	switch {
	case errors.Is(err, model.ErrNotFound):
		logger.Error("no such queue item", "id", args[0])
		os.Exit(1)
	case errors.Is(err, model.ErrInvalidTransition):
		logger.Error("item is being processed, try again later", "id", args[0])
		os.Exit(1)
	case err != nil:
		logger.Error("rescrape failed", "id", args[0], "error", err)
		os.Exit(1)
	}
	fmt.Printf("%s queued for rescrape (%s)\n", item.ID, item.URL)
	return nil
}

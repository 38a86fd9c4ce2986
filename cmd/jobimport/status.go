package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobimport/internal/importer"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show queue counts and recent imports",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "print the report as JSON")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)
	ctx := context.Background()

	a := mustOpenApp(ctx, logger)
	defer a.Close()

	report, err := a.processor.Status(ctx)
	if err != nil {
		logger.Error("failed to load status", "error", err)
		os.Exit(1)
	}

	if statusJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	printStatus(report)
	return nil
}

func printStatus(r importer.StatusReport) {
	c := r.Counts
	fmt.Printf("pending %d, processing %d, completed %d, failed %d\n\n", c.Pending, c.Processing, c.Completed, c.Failed)
	if len(r.Recent) == 0 {
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tRETRY\tUPDATED\tURL\tDETAIL")
	for _, it := range r.Recent {
		detail := it.Error
		if detail == "" {
			detail = it.Note
		}
		retry := ""
		if it.CanRetry {
			retry = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			it.ID, it.Status, retry, it.UpdatedAt.Local().Format("2006-01-02 15:04"), it.URL, detail)
	}
	w.Flush()
}

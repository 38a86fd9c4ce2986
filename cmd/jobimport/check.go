package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobimport/internal/model"
)

var checkAI bool

var checkCmd = &cobra.Command{
	Use:   "check <url>",
	Short: "Fetch and extract one page, print the result, exit",
	Long:  "One-shot extraction: fetches the page, runs extraction and prints the fields. Nothing is queued or stored.",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&checkAI, "ai", false, "try AI extraction first")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := mustOpenApp(ctx, logger)
	defer a.Close()

	logger.Info("check mode: nothing will be stored")

	fields, err := a.processor.Preview(ctx, args[0], checkAI)
	if err != nil {
		logger.Error("check failed", "url", args[0], "error", err)
		os.Exit(1)
	}
	printFields(fields)
	return nil
}

func printFields(f model.ExtractedFields) {
	fmt.Printf("Title:       %s\n", f.Title)
	fmt.Printf("Company:     %s\n", f.Company)
	fmt.Printf("Location:    %s\n", f.Location)
	fmt.Printf("Salary:      %s\n", f.Salary)
	fmt.Printf("Employment:  %s\n", f.EmploymentType)
	fmt.Printf("Type:        %s\n", f.Type)
	fmt.Printf("Tech stack:  %s\n", strings.Join(f.TechStack, ", "))
	if f.RequiredSkills.Len() > 0 {
		var skills []string
		for _, s := range f.RequiredSkills.Entries() {
			skills = append(skills, fmt.Sprintf("%s (%d)", s.Name, s.Level))
		}
		fmt.Printf("Skills:      %s\n", strings.Join(skills, ", "))
	}
	printList("Requirements", f.Requirements)
	printList("Responsibilities", f.Responsibilities)
	printList("Benefits", f.Benefits)
	fmt.Printf("\n%s\n", f.Description)
}

func printList(label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Printf("%s:\n", label)
	for _, it := range items {
		fmt.Printf("  - %s\n", it)
	}
}

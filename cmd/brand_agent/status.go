package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/brand-foundation/internal/db"
	"github.com/jonathan/brand-foundation/internal/foundation"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show a project's completion breakdown and run history",
	RunE:  runStatus,
}

var statusProjectID string

func init() {
	statusCmd.Flags().StringVarP(&statusProjectID, "project", "p", "", "Project ID (required)")
	if err := statusCmd.MarkFlagRequired("project"); err != nil {
		panic(fmt.Sprintf("failed to mark project flag as required: %v", err))
	}
	rootCmd.AddCommand(statusCmd)
}

func runStatus(_ *cobra.Command, _ []string) error {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is required")
	}

	projectID, err := uuid.Parse(statusProjectID)
	if err != nil {
		return fmt.Errorf("invalid project ID %q: %w", statusProjectID, err)
	}

	ctx := context.Background()
	database, err := db.Connect(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	project, err := database.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	if project == nil {
		return fmt.Errorf("project not found: %s", projectID)
	}

	catalog := foundation.DefaultCatalog()
	completions := catalog.Completions(&project.Record)

	fmt.Printf("Project: %s (%s)\n\n", project.Name, project.ID)
	for _, bucket := range catalog.Buckets() {
		fmt.Printf("  %-12s %3d%%  (weight %d)\n", bucket.ID, completions[bucket.ID], bucket.Weight)
	}
	fmt.Printf("\nOverall: %d%%\n", catalog.OverallCompletion(completions))
	fmt.Printf("Ready for analysis: %v\n", catalog.HasMinimumViableData(&project.Record))

	history, err := database.ListRuns(ctx, projectID)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(history) == 0 {
		fmt.Println("\nNo analyzer runs yet.")
		return nil
	}

	fmt.Println("\nRuns:")
	for _, run := range history {
		line := fmt.Sprintf("  %-12s %-12s retries=%d  %s", run.Status, run.AnalyzerType, run.RetryCount, run.CreatedAt.Format("2006-01-02 15:04:05"))
		if run.ErrorMessage != nil {
			line += "  " + *run.ErrorMessage
		}
		fmt.Println(line)
	}
	return nil
}

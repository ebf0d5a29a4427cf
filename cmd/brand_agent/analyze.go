package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/brand-foundation/internal/analyzers"
	"github.com/jonathan/brand-foundation/internal/db"
	"github.com/jonathan/brand-foundation/internal/fetch"
	"github.com/jonathan/brand-foundation/internal/foundation"
	"github.com/jonathan/brand-foundation/internal/llm"
	"github.com/jonathan/brand-foundation/internal/orchestrator"
	"github.com/jonathan/brand-foundation/internal/runs"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run analyzers for a project and wait for them to finish",
	Long:  "Evaluates analyzer triggers against the project's current record, runs whatever is eligible (or one named analyzer), and blocks until all work settles. Useful for scripting and local runs without the server.",
	RunE:  runAnalyze,
}

var (
	analyzeProjectID string
	analyzeType      string
	analyzeForce     bool
	analyzeAPIKey    string
)

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeProjectID, "project", "p", "", "Project ID (required)")
	analyzeCmd.Flags().StringVarP(&analyzeType, "type", "t", "", "Analyzer type to run (default: all eligible)")
	analyzeCmd.Flags().BoolVar(&analyzeForce, "force", false, "Skip trigger conditions (requires --type)")
	analyzeCmd.Flags().StringVar(&analyzeAPIKey, "api-key", "", "Gemini API key (overrides GEMINI_API_KEY env var)")

	if err := analyzeCmd.MarkFlagRequired("project"); err != nil {
		panic(fmt.Sprintf("failed to mark project flag as required: %v", err))
	}

	rootCmd.AddCommand(analyzeCmd)
}

// buildOrchestrator wires the production orchestrator for CLI use.
func buildOrchestrator(ctx context.Context, apiKey string) (*orchestrator.Orchestrator, *db.DB, error) {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return nil, nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	database, err := db.Connect(ctx, databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.EnsureSchema(ctx); err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	registry, err := analyzers.DefaultRegistry(foundation.DefaultCatalog())
	if err != nil {
		database.Close()
		return nil, nil, err
	}

	client, err := llm.NewGeminiClient(ctx, apiKey, llm.DefaultModels())
	if err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	fetcher := fetch.NewSiteFetcher(nil)
	executor := llm.NewExecutor(client, fetcher)
	manager := runs.NewManager(database)

	return orchestrator.New(registry, database, manager, executor), database, nil
}

func runAnalyze(_ *cobra.Command, _ []string) error {
	apiKey := analyzeAPIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return fmt.Errorf("API key required: set --api-key flag or GEMINI_API_KEY environment variable")
	}
	if analyzeForce && analyzeType == "" {
		return fmt.Errorf("--force requires --type")
	}

	projectID, err := uuid.Parse(analyzeProjectID)
	if err != nil {
		return fmt.Errorf("invalid project ID %q: %w", analyzeProjectID, err)
	}

	ctx := context.Background()
	orch, database, err := buildOrchestrator(ctx, apiKey)
	if err != nil {
		return err
	}
	defer database.Close()

	var started []string
	switch {
	case analyzeForce:
		run, err := orch.Force(ctx, projectID, analyzeType)
		if err != nil {
			return err
		}
		started = []string{run.AnalyzerType}
	case analyzeType != "":
		run, err := orch.TriggerOne(ctx, projectID, analyzeType)
		if err != nil {
			return err
		}
		if run == nil {
			fmt.Println("Trigger conditions not met; nothing to run.")
			return nil
		}
		started = []string{run.AnalyzerType}
	default:
		started, err = orch.TriggerEligible(ctx, projectID)
		if err != nil {
			return err
		}
		if len(started) == 0 {
			fmt.Println("No analyzers are eligible; nothing to run.")
			return nil
		}
	}

	fmt.Printf("Started: %v\n", started)
	orch.Wait()

	history, err := database.ListRuns(ctx, projectID)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	for _, analyzerType := range started {
		latest := runs.Latest(history, analyzerType)
		if latest == nil {
			continue
		}
		line := fmt.Sprintf("%-12s %s (retries: %d)", latest.Status, analyzerType, latest.RetryCount)
		if latest.ErrorMessage != nil {
			line += ": " + *latest.ErrorMessage
		}
		fmt.Println(line)
	}
	return nil
}

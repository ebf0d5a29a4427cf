// Package main provides the entry point for the brand foundation agent.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "brand_agent",
	Short: "Brand foundation HTTP API server",
	Long:  "Brand foundation tracks brand onboarding data, scores its completeness, and runs LLM analyzers that enrich the record as enough material accumulates.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/brand-foundation/internal/config"
	"github.com/jonathan/brand-foundation/internal/server"
)

var (
	servePort       int
	serveConfigPath string
	serveUseBrowser bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes the project, completion, and analyzer endpoints.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default: config file, then 8080)")
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to JSON config file")
	serveCmd.Flags().BoolVar(&serveUseBrowser, "use-browser", true, "Render JavaScript-heavy sites in a headless browser")
	rootCmd.AddCommand(serveCmd)
}

// loadMergedConfig resolves the effective config: flags, then the config
// file, then the environment.
func loadMergedConfig() (*config.Config, error) {
	envCfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}

	cfg := *envCfg
	if serveConfigPath != "" {
		fileCfg, err := config.LoadConfig(serveConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg.MergeWithDefaults(*envCfg)
	} else {
		cfg = cfg.MergeWithDefaults(config.Config{})
	}

	if servePort != 0 {
		cfg.Port = servePort
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := loadMergedConfig()
	if err != nil {
		return err
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}

	srv, err := server.New(context.Background(), server.Config{
		Port:        cfg.Port,
		DatabaseURL: cfg.DatabaseURL,
		APIKey:      cfg.APIKey,
		UseBrowser:  serveUseBrowser,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}

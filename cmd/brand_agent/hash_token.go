package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

var hashTokenCmd = &cobra.Command{
	Use:   "hash-token <token>",
	Short: "Hash an API token for the API_TOKEN_HASH environment variable",
	Args:  cobra.ExactArgs(1),
	RunE:  runHashToken,
}

var hashTokenCost int

func init() {
	hashTokenCmd.Flags().IntVar(&hashTokenCost, "cost", 12, "bcrypt cost (10-14)")
	rootCmd.AddCommand(hashTokenCmd)
}

func runHashToken(_ *cobra.Command, args []string) error {
	if hashTokenCost < 10 || hashTokenCost > 14 {
		return fmt.Errorf("bcrypt cost out of range: %d (must be 10-14)", hashTokenCost)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(args[0]), hashTokenCost)
	if err != nil {
		return fmt.Errorf("failed to hash token: %w", err)
	}
	fmt.Println(string(hash))
	return nil
}

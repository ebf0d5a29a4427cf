package config

import (
	"fmt"
	"os"
	"strconv"

	"golang.org/x/crypto/bcrypt"
)

// TokenConfig holds the hashed API token used to mint JWTs. Clients present
// the raw token once to the auth endpoint; only the bcrypt hash lives in the
// environment.
type TokenConfig struct {
	BcryptCost int
	TokenHash  string
}

// NewTokenConfig creates a token configuration from environment variables.
// It reads API_TOKEN_HASH (required) and BCRYPT_COST (default: 12, used
// only when hashing new tokens).
func NewTokenConfig() (*TokenConfig, error) {
	hash := os.Getenv("API_TOKEN_HASH")
	if hash == "" {
		return nil, fmt.Errorf("API_TOKEN_HASH is required but not set")
	}

	costStr := os.Getenv("BCRYPT_COST")
	if costStr == "" {
		costStr = "12"
	}
	cost, err := strconv.Atoi(costStr)
	if err != nil {
		return nil, fmt.Errorf("invalid BCRYPT_COST: %v", err)
	}

	cfg := &TokenConfig{BcryptCost: cost, TokenHash: hash}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *TokenConfig) normalize() error {
	if c.BcryptCost < 10 || c.BcryptCost > 14 {
		return fmt.Errorf("bcrypt cost out of range: %d (must be 10-14)", c.BcryptCost)
	}
	return nil
}

// HashToken hashes a raw API token for storage.
func (c *TokenConfig) HashToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), c.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash token: %w", err)
	}
	return string(hash), nil
}

// VerifyToken checks a presented token against the configured hash.
func (c *TokenConfig) VerifyToken(token string) bool {
	return bcrypt.CompareHashAndPassword([]byte(c.TokenHash), []byte(token)) == nil
}

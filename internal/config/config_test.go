package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfigFile(t, `{
		"port": 9090,
		"database_url": "postgres://localhost/brand",
		"api_key": "test-key",
		"use_browser": true
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "postgres://localhost/brand", cfg.DatabaseURL)
	assert.Equal(t, "test-key", cfg.APIKey)
	assert.True(t, cfg.UseBrowser)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig("")
	assert.Error(t, err)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := writeConfigFile(t, `{not json`)
	_, err = LoadConfig(path)
	assert.Error(t, err)
}

func TestFromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env/brand")
	t.Setenv("GEMINI_API_KEY", "env-key")
	t.Setenv("PORT", "7070")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "postgres://env/brand", cfg.DatabaseURL)
	assert.Equal(t, "env-key", cfg.APIKey)
	assert.Equal(t, 7070, cfg.Port)

	t.Setenv("PORT", "not-a-number")
	_, err = FromEnv()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &Config{Port: 8080, DatabaseURL: "postgres://localhost/brand"}
	assert.NoError(t, cfg.Validate())

	assert.Error(t, (&Config{Port: 8080}).Validate())
	assert.Error(t, (&Config{Port: 70000, DatabaseURL: "x"}).Validate())
}

func TestMergeWithDefaults(t *testing.T) {
	cfg := Config{APIKey: "mine"}
	merged := cfg.MergeWithDefaults(Config{
		Port:        9090,
		DatabaseURL: "postgres://default/brand",
		APIKey:      "theirs",
	})

	assert.Equal(t, 9090, merged.Port)
	assert.Equal(t, "postgres://default/brand", merged.DatabaseURL)
	assert.Equal(t, "mine", merged.APIKey)

	// No defaults at all still yields a usable port.
	empty := (&Config{}).MergeWithDefaults(Config{})
	assert.Equal(t, DefaultPort, empty.Port)
}

func TestNewJWTConfig(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("JWT_EXPIRATION_HOURS", "")

	cfg, err := NewJWTConfig()
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Secret)
	assert.Equal(t, 24, cfg.ExpirationHours)

	t.Setenv("JWT_EXPIRATION_HOURS", "0")
	_, err = NewJWTConfig()
	assert.Error(t, err)

	t.Setenv("JWT_SECRET", "")
	_, err = NewJWTConfig()
	assert.Error(t, err)
}

func TestTokenConfigVerify(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("raw-token"), bcrypt.MinCost)
	require.NoError(t, err)

	t.Setenv("API_TOKEN_HASH", string(hash))
	t.Setenv("BCRYPT_COST", "")

	cfg, err := NewTokenConfig()
	require.NoError(t, err)
	assert.True(t, cfg.VerifyToken("raw-token"))
	assert.False(t, cfg.VerifyToken("wrong-token"))
}

func TestTokenConfigErrors(t *testing.T) {
	t.Setenv("API_TOKEN_HASH", "")
	_, err := NewTokenConfig()
	assert.Error(t, err)

	t.Setenv("API_TOKEN_HASH", "some-hash")
	t.Setenv("BCRYPT_COST", "20")
	_, err = NewTokenConfig()
	assert.Error(t, err)
}

func TestHashTokenRoundTrip(t *testing.T) {
	t.Setenv("API_TOKEN_HASH", "placeholder")
	t.Setenv("BCRYPT_COST", "10")

	cfg, err := NewTokenConfig()
	require.NoError(t, err)

	hash, err := cfg.HashToken("fresh-token")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("fresh-token")))
}

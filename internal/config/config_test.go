package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"ttu.edu"}, cfg.Verification.AllowedDomains)
	assert.Equal(t, 6, cfg.Verification.CodeLength)
	assert.Equal(t, 3, cfg.Verification.MaxAttempts)
	assert.Equal(t, 10*time.Minute, cfg.Verification.CodeTTL)
	assert.Equal(t, 5*time.Minute, cfg.Verification.Cooldown)
	assert.Equal(t, ExhaustionRateLimit, cfg.Verification.ExhaustionPolicy)
	assert.Equal(t, 5, cfg.Attendance.MaxGenerateAttempts)
	assert.Equal(t, 10*time.Minute, cfg.Linking.TokenTTL)
	assert.Equal(t, "memory", cfg.State.Backend)
}

func TestLoad_FileValues(t *testing.T) {
	path := writeConfig(t, `
verification:
  exhaustion_policy: purge
  cooldown: 2m
  allowed_domains: ["ttu.edu", "texastech.edu"]
admin:
  user_ids: ["5b0c3b2e-0000-4000-8000-000000000001"]
database:
  backend: memory
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ExhaustionPurge, cfg.Verification.ExhaustionPolicy)
	assert.Equal(t, 2*time.Minute, cfg.Verification.Cooldown)
	assert.Equal(t, []string{"ttu.edu", "texastech.edu"}, cfg.Verification.AllowedDomains)
	assert.Len(t, cfg.Admin.UserIDs, 1)
	assert.Equal(t, "memory", cfg.Database.Backend)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, "linking:\n  token_ttl: 10m\n")
	t.Setenv("LINKING_TOKEN_TTL", "3m")
	t.Setenv("VERIFICATION_MAX_ATTEMPTS", "5")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3*time.Minute, cfg.Linking.TokenTTL)
	assert.Equal(t, 5, cfg.Verification.MaxAttempts)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestPostgresConfig_DSN(t *testing.T) {
	dsn := PostgresConfig{Host: "db", Port: 5432, User: "u", Password: "p", DB: "mlh"}.DSN()
	assert.Contains(t, dsn, "host=db")
	assert.Contains(t, dsn, "dbname=mlh")
	assert.Contains(t, dsn, "sslmode=disable")
}

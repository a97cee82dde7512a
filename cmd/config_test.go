package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, key := range []string{"HTTP_PORT", "DB_HOST", "DB_SSLMODE", "TIMEZONE", "NOTIFY_TO", "CLAIM_TTL"} {
		t.Setenv(key, "")
	}

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))

	require.NoError(t, err)
	assert.Equal(t, DefaultHTTPPort, cfg.HTTPPort)
	assert.Equal(t, "localhost", cfg.DBHost)
	assert.Equal(t, "disable", cfg.DBSslMode)
	assert.Equal(t, DefaultTimezone, cfg.Timezone)
	assert.Empty(t, cfg.NotifyTo)
	assert.Zero(t, cfg.ClaimTTL)
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("INVOICING_TIMEOUT", "45s")
	t.Setenv("INVOICING_RATE_PER_MINUTE", "12")
	t.Setenv("MAX_CONCURRENT_EXECUTIONS", "8")
	t.Setenv("NOTIFY_TO", "ops@example.com, billing@example.com,")
	t.Setenv("DB_MIGRATE_USERS", "true")
	t.Setenv("RECONCILE_SPEC", "*/30 * * * *")

	cfg, err := LoadConfig("")

	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, 45*time.Second, cfg.InvoicingTimeout)
	assert.Equal(t, 12, cfg.InvoicingRatePerMinute)
	assert.Equal(t, 8, cfg.MaxConcurrentExecutions)
	assert.Equal(t, []string{"ops@example.com", "billing@example.com"}, cfg.NotifyTo)
	assert.True(t, cfg.DBMigrateUsers)
	assert.Equal(t, "*/30 * * * *", cfg.ReconcileSpec)
}

func TestLoadConfig_EnvFile(t *testing.T) {
	for _, key := range []string{"VAULT_ADDRESS", "MIN_PART"} {
		require.NoError(t, os.Unsetenv(key))
	}
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("VAULT_ADDRESS=http://vault:8200\nMIN_PART=40000\n"), 0o600))
	t.Cleanup(func() {
		_ = os.Unsetenv("VAULT_ADDRESS")
		_ = os.Unsetenv("MIN_PART")
	})

	cfg, err := LoadConfig(path)

	require.NoError(t, err)
	assert.Equal(t, "http://vault:8200", cfg.VaultAddress)
	assert.Equal(t, "40000", cfg.MinPart)
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	t.Setenv("CLAIM_TTL", "soon")
	t.Setenv("MAX_CONCURRENT_EXECUTIONS", "four")

	_, err := LoadConfig("")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "CLAIM_TTL")
	assert.Contains(t, err.Error(), "MAX_CONCURRENT_EXECUTIONS")
}

func TestConfig_DSN(t *testing.T) {
	cfg := Config{
		DBHost: "db", DBPort: "5432", DBUser: "billing", DBPassword: "secret", DBName: "facturacion", DBSslMode: "disable",
	}

	assert.Equal(t, "host=db port=5432 user=billing password=secret dbname=facturacion sslmode=disable", cfg.DSN())
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("ADMIN_EMAIL", "")

	cfg := Load()

	assert.Equal(t, DefaultJWTSecret, cfg.JWT.Secret)
	assert.True(t, cfg.JWT.UsingDefaultSecret)
	assert.Equal(t, 7*24*time.Hour, cfg.JWT.AccessTokenTTL)
	assert.Equal(t, 10, cfg.Security.BcryptCost)

	assert.Equal(t, "admin@safuneralsupplies.co.za", cfg.Admin.Email)
	assert.Equal(t, "Admin123!", cfg.Admin.Password)
	assert.Equal(t, "SA Funeral Supplies", cfg.Admin.CompanyName)
	assert.Equal(t, "Admin User", cfg.Admin.ContactPerson)
	assert.Equal(t, "+27 31 508 6700", cfg.Admin.Phone)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "a-much-better-secret")
	t.Setenv("ADMIN_EMAIL", "  Owner@Example.CO.ZA ")
	t.Setenv("JWT_ACCESS_TOKEN_TTL", "1h")
	t.Setenv("JWT_PASSWORD_RESET_TTL", "2h")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")

	cfg := Load()

	assert.Equal(t, "a-much-better-secret", cfg.JWT.Secret)
	assert.False(t, cfg.JWT.UsingDefaultSecret)
	assert.Equal(t, "owner@example.co.za", cfg.Admin.Email)
	assert.Equal(t, 7*24*time.Hour, cfg.JWT.AccessTokenTTL, "session lifetime is not configurable")
	assert.Equal(t, 2*time.Hour, cfg.JWT.PasswordResetTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Security.AllowedOrigins)
}

func TestValidateProductionConfig(t *testing.T) {
	valid := func() *ProductionConfig {
		t.Setenv("DB_PASSWORD", "secret")
		return Load()
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, ValidateProductionConfig(valid()))
	})

	t.Run("collects every problem", func(t *testing.T) {
		cfg := valid()
		cfg.Database.Password = ""
		cfg.Security.BcryptCost = 4
		cfg.Logging.Output = "syslog"

		err := ValidateProductionConfig(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "DB_PASSWORD is required")
		assert.Contains(t, err.Error(), "BCRYPT_COST must be between 10 and 14")
		assert.Contains(t, err.Error(), "LOG_OUTPUT must be one of")
	})

	t.Run("session lifetime is fixed", func(t *testing.T) {
		cfg := valid()
		cfg.JWT.AccessTokenTTL = time.Hour

		err := ValidateProductionConfig(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "access token lifetime is fixed at 168h0m0s")
	})

	t.Run("custom secret required", func(t *testing.T) {
		cfg := valid()
		cfg.JWT.UsingDefaultSecret = true
		cfg.JWT.RequireCustomSecret = true

		err := ValidateProductionConfig(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "JWT_SECRET must be set")
	})
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("SAFS_TEST_FROM_FILE=\"file value\"\nSAFS_TEST_PRESET=file\n"), 0o600))

	t.Setenv("SAFS_TEST_PRESET", "env")
	t.Setenv("SAFS_TEST_FROM_FILE", "")
	os.Unsetenv("SAFS_TEST_FROM_FILE")

	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "file value", os.Getenv("SAFS_TEST_FROM_FILE"))
	assert.Equal(t, "env", os.Getenv("SAFS_TEST_PRESET"))

	assert.NoError(t, loadEnvFile(filepath.Join(dir, "missing.env")))
}

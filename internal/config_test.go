package internal_test

import (
	"testing"
	"time"

	"github.com/pagboka/cis485-patfutbol/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNewConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, key := range []string{
		"ENV", "LOG_LEVEL", "METRICS_ADDR", "CATALOG_DIR", "DATABASE_URL",
		"DB_MAX_CONNS", "DB_MAX_IDLE_TIME", "CART_STORAGE_TIMEOUT", "CART_CURRENCY",
	} {
		t.Setenv(key, "")
	}

	cfg, err := internal.NewConfig(zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
	assert.Equal(t, ".", cfg.CatalogDir)
	assert.Equal(t, "USD", cfg.Currency.String())
	assert.Equal(t, int32(10), cfg.Database.MaxConns)
	assert.Equal(t, 15*time.Minute, cfg.Database.MaxIdleTime)
	assert.Equal(t, 5*time.Second, cfg.Database.StorageTimeout)
}

func TestNewConfig_FromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ENV", "prod")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CATALOG_DIR", "/srv/catalog")
	t.Setenv("DATABASE_URL", "postgres://cart@db:5432/cart")
	t.Setenv("DB_MAX_CONNS", "25")
	t.Setenv("CART_STORAGE_TIMEOUT", "750ms")
	t.Setenv("CART_CURRENCY", "EUR")

	cfg, err := internal.NewConfig(nil)
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/srv/catalog", cfg.CatalogDir)
	assert.Equal(t, "postgres://cart@db:5432/cart", cfg.Database.URL)
	assert.Equal(t, int32(25), cfg.Database.MaxConns)
	assert.Equal(t, 750*time.Millisecond, cfg.Database.StorageTimeout)
	assert.Equal(t, "EUR", cfg.Currency.String())
}

func TestNewConfig_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		env       map[string]string
		wantError string
	}{
		{
			name:      "unknown currency",
			env:       map[string]string{"CART_CURRENCY": "XYZW"},
			wantError: "CART_CURRENCY is not a valid ISO 4217 code",
		},
		{
			name:      "non-positive pool size",
			env:       map[string]string{"DB_MAX_CONNS": "0"},
			wantError: "DB_MAX_CONNS must be positive",
		},
		{
			name:      "non-positive storage timeout",
			env:       map[string]string{"CART_STORAGE_TIMEOUT": "-1s"},
			wantError: "CART_STORAGE_TIMEOUT must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := internal.NewConfig(nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantError)
		})
	}
}

func TestNewConfig_FallsBack(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ENV", "staging")
	t.Setenv("LOG_LEVEL", "verbose")
	t.Setenv("DB_MAX_IDLE_TIME", "soon")

	cfg, err := internal.NewConfig(nil)
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 15*time.Minute, cfg.Database.MaxIdleTime)
}

func TestNewLogger(t *testing.T) {
	for _, env := range []string{"dev", "prod"} {
		logger, err := internal.NewLogger(env, "debug")
		require.NoError(t, err)
		assert.True(t, logger.Core().Enabled(-1)) // debug
	}

	logger, err := internal.NewLogger("dev", "nonsense")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(-1))
}

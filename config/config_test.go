package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequiresSecrets(t *testing.T) {
	t.Setenv("IP_HASH_SALT", "")
	t.Setenv("AUTH_SECRET", "secret")

	_, err := Parse()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "IP_HASH_SALT")
}

func TestParseDefaults(t *testing.T) {
	t.Setenv("IP_HASH_SALT", "pepper")
	t.Setenv("AUTH_SECRET", "secret")
	t.Setenv("DB_DRIVER", "sqlite")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "pepper", cfg.IPHashSalt)
	assert.Equal(t, 720*time.Hour, cfg.SessionExpires)
	assert.Equal(t, "common", cfg.MicrosoftTenantID)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, "http://localhost:8080", cfg.BaseURL())

	t.Setenv("AUTH_URL", "https://parklist.mc")
	cfg, err = Parse()
	require.NoError(t, err)
	assert.Equal(t, "https://parklist.mc", cfg.BaseURL())
}

func TestParseRejectsUnknownDriver(t *testing.T) {
	t.Setenv("IP_HASH_SALT", "pepper")
	t.Setenv("AUTH_SECRET", "secret")
	t.Setenv("DB_DRIVER", "mysql")

	_, err := Parse()
	assert.Error(t, err)
}

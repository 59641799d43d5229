package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("API_BASE_URL", "")
	t.Setenv("NEXT_PUBLIC_API_URL", "")
	t.Setenv("SESSION_FILE", "/tmp/satonic-session.json")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080/api", cfg.APIBaseURL)
	assert.Equal(t, "testnet", cfg.BitcoinNetwork)
	assert.Equal(t, 15*time.Second, cfg.APITimeout)
	assert.Equal(t, 60*time.Second, cfg.OrdiscanCacheTTL)
	assert.Equal(t, "/tmp/satonic-session.json", cfg.SessionFile)
	assert.Equal(t, 168, cfg.MaxAuctionDurationHours)
}

func TestLoad_NextPublicAPIURLFallback(t *testing.T) {
	t.Setenv("API_BASE_URL", "")
	t.Setenv("NEXT_PUBLIC_API_URL", "https://api.satonic.io/api/")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://api.satonic.io/api", cfg.APIBaseURL)
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("DB_DRIVER", "mysql")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_DRIVER")
}

func TestLoad_RejectsUnknownNetwork(t *testing.T) {
	t.Setenv("BITCOIN_NETWORK", "regtest")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BITCOIN_NETWORK")
}

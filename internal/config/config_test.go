package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultsValidateForMonitorMode(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "monitor"

	require.NoError(t, cfg.Validate())
}

func TestDefaultsRequireWalletForServeMode(t *testing.T) {
	cfg := Defaults()
	require.Equal(t, "serve", cfg.Mode)

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "private_key or encrypted_key_path")
	require.Contains(t, err.Error(), "address must be set")
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "dance"
	cfg.LogLevel = "loud"
	cfg.Chain.Network = "moonnet"
	cfg.Redis.Addr = ""
	cfg.Engine.BaseURL = ""

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{
		`unknown mode "dance"`,
		`unknown log_level "loud"`,
		`unknown network "moonnet"`,
		"redis: addr must not be empty",
		"engine: base_url must not be empty",
	} {
		require.Contains(t, err.Error(), want)
	}
}

func TestValidateArchiveRequiresS3(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "archive"
	cfg.S3.Bucket = ""
	cfg.Archive.RetentionDays = 0

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "s3: bucket must not be empty")
	require.Contains(t, err.Error(), "retention_days must be >= 1")
}

func TestValidateEncryptedKeyNeedsPassword(t *testing.T) {
	cfg := Defaults()
	cfg.Wallet.EncryptedKeyPath = "/etc/oddsdesk/key.enc"
	cfg.Wallet.Address = "SP2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ7"

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "key_password is required")
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(strings.TrimSpace(`
mode = "monitor"
log_level = "debug"

[engine]
base_url = "http://engine:3001"
request_timeout = "10s"

[refresh]
orderbook_interval = "2s"
watch_markets = ["mkt-1", "mkt-2"]

[server]
port = 9000
`)), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "monitor", cfg.Mode)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, "http://engine:3001", cfg.Engine.BaseURL)
	require.Equal(t, 10*time.Second, cfg.Engine.RequestTimeout.Duration)
	require.Equal(t, 2*time.Second, cfg.Refresh.OrderbookInterval.Duration)
	require.Equal(t, []string{"mkt-1", "mkt-2"}, cfg.Refresh.WatchMarkets)
	require.Equal(t, 9000, cfg.Server.Port)

	// Untouched sections keep their defaults.
	require.Equal(t, 30*time.Second, cfg.Refresh.MarketsInterval.Duration)
	require.Equal(t, "prediction-market", cfg.Chain.MarketContract)
	require.NoError(t, cfg.Validate())
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`mode = "monitor"`), 0o600))

	t.Setenv("ODDSDESK_ENGINE_BASE_URL", "http://override:3001")
	t.Setenv("ODDSDESK_REDIS_DB", "3")
	t.Setenv("ODDSDESK_ARCHIVE_ENABLED", "true")
	t.Setenv("ODDSDESK_REFRESH_TRADES_INTERVAL", "7s")
	t.Setenv("ODDSDESK_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "http://override:3001", cfg.Engine.BaseURL)
	require.Equal(t, 3, cfg.Redis.DB)
	require.True(t, cfg.Archive.Enabled)
	require.Equal(t, 7*time.Second, cfg.Refresh.TradesInterval.Duration)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

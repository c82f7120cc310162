package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envFrom(m map[string]string) lookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Validate(Default()))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"bad role", func(c *Config) { c.Role = "relay" }, ErrInvalidRole},
		{"bad addr", func(c *Config) { c.Server.Addr = "8080" }, ErrInvalidListenAddr},
		{"negative rate limit", func(c *Config) { c.Server.RateLimit = -1 }, ErrInvalidRateLimit},
		{"rate limit without window", func(c *Config) { c.Server.RateWindow = Duration{} }, ErrInvalidRateLimit},
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }, ErrInvalidLogLevel},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, ErrInvalidLogFormat},
		{"bad backend", func(c *Config) { c.Storage.Backend = "sqlite" }, ErrInvalidBackend},
		{"bolt without dir", func(c *Config) { c.Storage.Backend = BackendBolt; c.Storage.DataDir = "" }, ErrEmptyDataDir},
		{"postgres without dsn", func(c *Config) { c.Storage.Backend = BackendPostgres }, ErrMissingDSN},
		{"kafka without brokers", func(c *Config) { c.Bridge.Transport = TransportKafka }, ErrMissingBrokers},
		{"loopback split roles", func(c *Config) { c.Role = RoleVault }, ErrLoopbackSplitRoles},
		{"same chain", func(c *Config) { c.Bridge.VaultChain = c.Bridge.LedgerChain }, ErrSameChain},
		{"empty signing key", func(c *Config) { c.Bridge.SigningKey = "" }, ErrMissingSigningKey},
		{"bad threshold", func(c *Config) { c.Ledger.Threshold = "lots" }, ErrInvalidThreshold},
		{"zero price", func(c *Config) { c.Ledger.PriceUSD = 0 }, ErrInvalidPrice},
		{"no ledger admin", func(c *Config) { c.Ledger.Admin = "" }, ErrMissingLedgerAdmin},
		{"no vault manager", func(c *Config) { c.Vault.RemoteManager = "" }, ErrMissingVaultIdentity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.ErrorIs(t, Validate(cfg), tt.wantErr)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := applyEnv(&cfg, envFrom(map[string]string{
		"SKIMVAULT_ROLE":        RoleLedger,
		"BRIDGE_TRANSPORT":      TransportKafka,
		"KAFKA_BROKERS":         " kafka-1:9092,kafka-2:9092,kafka-1:9092",
		"LEDGER_PRICE_USD":      "60000",
		"BRIDGE_RELAY_INTERVAL": "250ms",
	}))
	require.NoError(t, err)

	assert.Equal(t, RoleLedger, cfg.Role)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, uint64(60000), cfg.Ledger.PriceUSD)
	assert.Equal(t, 250*time.Millisecond, cfg.Bridge.RelayInterval.Duration)
	assert.True(t, cfg.HostsLedger())
	assert.False(t, cfg.HostsVault())
	require.NoError(t, Validate(cfg))
}

func TestApplyEnvRejectsBadPrice(t *testing.T) {
	cfg := Default()
	err := applyEnv(&cfg, envFrom(map[string]string{"LEDGER_PRICE_USD": "-1"}))
	assert.ErrorIs(t, err, ErrInvalidPrice)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skimvault.toml")
	content := `
role = "both"

[server]
addr = "127.0.0.1:9090"
shutdown_timeout = "3s"

[storage]
backend = "bolt"
data_dir = "/tmp/skimvault"

[bridge]
relay_interval = "2s"

[ledger]
threshold = "50000000"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9090", cfg.Server.Addr)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout.Duration)
	assert.Equal(t, BackendBolt, cfg.Storage.Backend)
	assert.Equal(t, 2*time.Second, cfg.Bridge.RelayInterval.Duration)
	assert.Equal(t, "50000000", cfg.Ledger.Threshold)
	// Untouched sections keep their defaults.
	assert.Equal(t, uint64(45_000), cfg.Ledger.PriceUSD)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, ErrConfigNotFound)
}

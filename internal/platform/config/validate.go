package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks that all configuration values are within acceptable ranges
// and returns the first error encountered, or nil if valid.
func Validate(cfg Config) error {
	switch cfg.Role {
	case RoleLedger, RoleVault, RoleBoth:
	default:
		return ErrInvalidRole
	}

	if _, _, err := net.SplitHostPort(cfg.Server.Addr); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidListenAddr, err)
	}

	if cfg.Server.RateLimit < 0 || (cfg.Server.RateLimit > 0 && cfg.Server.RateWindow.Duration <= 0) {
		return ErrInvalidRateLimit
	}

	if !validLogLevels[strings.ToLower(cfg.Log.Level)] {
		return ErrInvalidLogLevel
	}
	if cfg.Log.Format != "json" && cfg.Log.Format != "text" {
		return ErrInvalidLogFormat
	}

	switch cfg.Storage.Backend {
	case BackendMemory:
	case BackendBolt:
		if cfg.Storage.DataDir == "" {
			return ErrEmptyDataDir
		}
	case BackendPostgres:
		if cfg.Postgres.DSN == "" {
			return ErrMissingDSN
		}
	default:
		return ErrInvalidBackend
	}

	switch cfg.Bridge.Transport {
	case TransportLoopback:
		if cfg.Role != RoleBoth {
			return ErrLoopbackSplitRoles
		}
	case TransportKafka:
		if len(cfg.Kafka.Brokers) == 0 {
			return ErrMissingBrokers
		}
	default:
		return ErrInvalidTransport
	}

	if cfg.Bridge.SigningKey == "" {
		return ErrMissingSigningKey
	}
	if cfg.Bridge.LedgerChain == cfg.Bridge.VaultChain {
		return ErrSameChain
	}
	if cfg.Bridge.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if _, err := strconv.ParseUint(cfg.Ledger.Threshold, 10, 64); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidThreshold, err)
	}
	if cfg.Ledger.PriceUSD == 0 {
		return ErrInvalidPrice
	}
	if cfg.HostsLedger() && cfg.Ledger.Admin == "" {
		return ErrMissingLedgerAdmin
	}
	if cfg.HostsVault() && (cfg.Vault.Self == "" || cfg.Vault.RemoteManager == "") {
		return ErrMissingVaultIdentity
	}
	return nil
}

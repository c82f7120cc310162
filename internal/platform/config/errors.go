package config

import "errors"

var (
	ErrConfigNotFound     = errors.New("config: configuration file not found")
	ErrInvalidRole        = errors.New("config: invalid role (must be \"ledger\", \"vault\", or \"both\")")
	ErrInvalidListenAddr  = errors.New("config: invalid listen address")
	ErrInvalidLogLevel    = errors.New("config: invalid log level (must be \"debug\", \"info\", \"warn\", or \"error\")")
	ErrInvalidLogFormat   = errors.New("config: invalid log format (must be \"json\" or \"text\")")
	ErrInvalidBackend     = errors.New("config: invalid storage backend (must be \"memory\", \"bolt\", or \"postgres\")")
	ErrEmptyDataDir       = errors.New("config: data directory must not be empty for the bolt backend")
	ErrMissingDSN         = errors.New("config: postgres backend requires DATABASE_URL")
	ErrInvalidTransport   = errors.New("config: invalid bridge transport (must be \"loopback\" or \"kafka\")")
	ErrMissingBrokers     = errors.New("config: kafka transport requires at least one broker")
	ErrLoopbackSplitRoles = errors.New("config: loopback transport requires role \"both\"")
	ErrMissingSigningKey  = errors.New("config: bridge signing key must not be empty")
	ErrSameChain          = errors.New("config: ledger and vault chain ids must differ")
	ErrInvalidThreshold   = errors.New("config: invalid conversion threshold")
	ErrInvalidPrice       = errors.New("config: price must be a positive integer")
	ErrInvalidBatchSize   = errors.New("config: relay batch size must be positive")
	ErrInvalidRateLimit   = errors.New("config: rate limit must not be negative and needs a positive window")

	ErrMissingLedgerAdmin   = errors.New("config: ledger admin must not be empty")
	ErrMissingVaultIdentity = errors.New("config: vault self and remote manager addresses are required")
)

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	tml "github.com/BurntSushi/toml"

	"skimvault/pkg/platform/strings"
)

// Roles select which ledger(s) a process hosts.
const (
	RoleLedger = "ledger"
	RoleVault  = "vault"
	RoleBoth   = "both"
)

// Storage backends for internal/kv.
const (
	BackendMemory   = "memory"
	BackendBolt     = "bolt"
	BackendPostgres = "postgres"
)

// Bridge transports.
const (
	TransportLoopback = "loopback"
	TransportKafka    = "kafka"
)

// Duration decodes TOML strings such as "5s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config is the full process configuration.
type Config struct {
	Role     string         `toml:"role"`
	Server   ServerConfig   `toml:"server"`
	Log      LogConfig      `toml:"log"`
	Storage  StorageConfig  `toml:"storage"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	Kafka    KafkaConfig    `toml:"kafka"`
	Bridge   BridgeConfig   `toml:"bridge"`
	Ledger   LedgerConfig   `toml:"ledger"`
	Vault    VaultConfig    `toml:"vault"`
	Swap     SwapConfig     `toml:"swap"`
}

// ServerConfig captures HTTP server level configuration.
type ServerConfig struct {
	Addr            string   `toml:"addr"`
	JWTSigningKey   string   `toml:"jwt_signing_key"`
	JWTIssuer       string   `toml:"jwt_issuer"`
	JWTAudience     string   `toml:"jwt_audience"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
	// RateLimit caps authenticated requests per caller in each RateWindow.
	// Zero disables limiting.
	RateLimit  int      `toml:"rate_limit"`
	RateWindow Duration `toml:"rate_window"`
}

type LogConfig struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

type StorageConfig struct {
	Backend string `toml:"backend"`
	DataDir string `toml:"data_dir"`
}

type PostgresConfig struct {
	DSN             string        `toml:"dsn"`
	MaxOpenConns    int           `toml:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"-"`
}

// RedisConfig points at the price feed. An empty URL disables it.
type RedisConfig struct {
	URL          string        `toml:"url"`
	PriceKey     string        `toml:"price_key"`
	PoolSize     int           `toml:"pool_size"`
	MinIdleConns int           `toml:"min_idle_conns"`
	DialTimeout  time.Duration `toml:"-"`
	ReadTimeout  time.Duration `toml:"-"`
	WriteTimeout time.Duration `toml:"-"`
}

type KafkaConfig struct {
	Brokers       []string `toml:"brokers"`
	TopicPrefix   string   `toml:"topic_prefix"`
	ConsumerGroup string   `toml:"consumer_group"`
}

type BridgeConfig struct {
	Transport     string   `toml:"transport"`
	SigningKey    string   `toml:"signing_key"`
	LedgerChain   string   `toml:"ledger_chain"`
	VaultChain    string   `toml:"vault_chain"`
	RelayInterval Duration `toml:"relay_interval"`
	BatchSize     int      `toml:"batch_size"`
}

// LedgerConfig seeds the yield ledger at instantiation.
type LedgerConfig struct {
	Admin          string `toml:"admin"`
	Threshold      string `toml:"threshold"`
	PriceUSD       uint64 `toml:"price_usd"`
	RemoteContract string `toml:"remote_contract"`
	Gateway        string `toml:"gateway"`
	YieldCollector string `toml:"yield_collector"`
	PriceOracle    string `toml:"price_oracle"`
}

// VaultConfig seeds the vault at instantiation.
type VaultConfig struct {
	AddressPrefix  string `toml:"address_prefix"`
	Self           string `toml:"self"`
	StableToken    string `toml:"stable_token"`
	YieldToken     string `toml:"yield_token"`
	Router         string `toml:"router"`
	Gateway        string `toml:"gateway"`
	RemoteLedgerID string `toml:"remote_ledger_id"`
	YieldCollector string `toml:"yield_collector"`
	RemoteManager  string `toml:"remote_manager"`
}

type SwapConfig struct {
	RouterURL string   `toml:"router_url"`
	RateBPS   uint64   `toml:"rate_bps"`
	Timeout   Duration `toml:"timeout"`
}

// Default returns a development configuration: everything in one process,
// in-memory storage and the loopback bridge.
func Default() Config {
	return Config{
		Role: RoleBoth,
		Server: ServerConfig{
			Addr:            ":8080",
			JWTSigningKey:   "dev-secret-key-change-in-production",
			JWTIssuer:       "skimvault",
			JWTAudience:     "skimvault-api",
			ShutdownTimeout: Duration{10 * time.Second},
			RateLimit:       120,
			RateWindow:      Duration{time.Minute},
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 28,
		},
		Storage: StorageConfig{
			Backend: BackendMemory,
			DataDir: "./data",
		},
		Postgres: PostgresConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Redis: RedisConfig{
			PriceKey:     "skimvault:price:btc_usd",
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			TopicPrefix:   "skimvault.bridge",
			ConsumerGroup: "skimvault",
		},
		Bridge: BridgeConfig{
			Transport:     TransportLoopback,
			SigningKey:    "dev-bridge-key-change-in-production",
			LedgerChain:   "icp",
			VaultChain:    "injective",
			RelayInterval: Duration{time.Second},
			BatchSize:     100,
		},
		Ledger: LedgerConfig{
			Admin:          "ledger-admin",
			Threshold:      "100000000",
			PriceUSD:       45_000,
			RemoteContract: "inj1zyg3zyg3zyg3zyg3zyg3zyg3zyg3zyg3t5qxqh",
			YieldCollector: "yield-collector",
		},
		Vault: VaultConfig{
			AddressPrefix:  "inj",
			Self:           "inj1zyg3zyg3zyg3zyg3zyg3zyg3zyg3zyg3t5qxqh",
			StableToken:    "inj1zgfpyysjzgfpyysjzgfpyysjzgfpyysj6sxrtp",
			YieldToken:     "inj1zvf3xycnzvf3xycnzvf3xycnzvf3xycnmq8zpq",
			Router:         "inj1zs2pg9q5zs2pg9q5zs2pg9q5zs2pg9q5msq8xu",
			Gateway:        "inj1z52329g4z52329g4z52329g4z52329g46qpxva",
			RemoteLedgerID: "skimvault-ledger",
			YieldCollector: "inj1zctpv9skzctpv9skzctpv9skzctpv9skty8r8t",
			RemoteManager:  "inj1zut3w9chzut3w9chzut3w9chzut3w9ch25xzd2",
		},
		Swap: SwapConfig{
			RateBPS: 10_000,
			Timeout: Duration{10 * time.Second},
		},
	}
}

// Load builds the configuration from defaults, an optional TOML file and the
// environment, in that order, then validates it.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return Config{}, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		if _, err := tml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type lookupFunc func(string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("SKIMVAULT_ROLE", &cfg.Role)
	str("SKIMVAULT_ADDR", &cfg.Server.Addr)
	str("JWT_SIGNING_KEY", &cfg.Server.JWTSigningKey)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)
	str("LOG_FILE", &cfg.Log.File)
	str("STORAGE_BACKEND", &cfg.Storage.Backend)
	str("DATA_DIR", &cfg.Storage.DataDir)
	str("DATABASE_URL", &cfg.Postgres.DSN)
	str("REDIS_URL", &cfg.Redis.URL)
	str("REDIS_PRICE_KEY", &cfg.Redis.PriceKey)
	str("KAFKA_TOPIC_PREFIX", &cfg.Kafka.TopicPrefix)
	str("KAFKA_CONSUMER_GROUP", &cfg.Kafka.ConsumerGroup)
	str("BRIDGE_TRANSPORT", &cfg.Bridge.Transport)
	str("BRIDGE_SIGNING_KEY", &cfg.Bridge.SigningKey)
	str("LEDGER_ADMIN", &cfg.Ledger.Admin)
	str("LEDGER_THRESHOLD", &cfg.Ledger.Threshold)
	str("LEDGER_YIELD_COLLECTOR", &cfg.Ledger.YieldCollector)
	str("VAULT_SELF", &cfg.Vault.Self)
	str("VAULT_YIELD_COLLECTOR", &cfg.Vault.YieldCollector)
	str("VAULT_REMOTE_MANAGER", &cfg.Vault.RemoteManager)
	str("SWAP_ROUTER_URL", &cfg.Swap.RouterURL)

	if v, ok := lookup("KAFKA_BROKERS"); ok {
		cfg.Kafka.Brokers = strings.SplitList(v)
	} else {
		cfg.Kafka.Brokers = strings.Normalize(cfg.Kafka.Brokers)
	}

	if v, ok := lookup("LEDGER_PRICE_USD"); ok && v != "" {
		price, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: LEDGER_PRICE_USD: %w", ErrInvalidPrice, err)
		}
		cfg.Ledger.PriceUSD = price
	}
	if v, ok := lookup("RATE_LIMIT"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: RATE_LIMIT: %w", ErrInvalidRateLimit, err)
		}
		cfg.Server.RateLimit = n
	}
	if v, ok := lookup("BRIDGE_RELAY_INTERVAL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: BRIDGE_RELAY_INTERVAL: %w", err)
		}
		cfg.Bridge.RelayInterval = Duration{d}
	}
	return nil
}

// HostsLedger reports whether this process runs the yield ledger.
func (c Config) HostsLedger() bool { return c.Role == RoleLedger || c.Role == RoleBoth }

// HostsVault reports whether this process runs the vault.
func (c Config) HostsVault() bool { return c.Role == RoleVault || c.Role == RoleBoth }

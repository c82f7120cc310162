package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/twmb/franz-go/pkg/kgo"

	"skimvault/internal/bridge"
	bridgemetrics "skimvault/internal/bridge/metrics"
	"skimvault/internal/bridge/provenance"
	"skimvault/internal/kv"
	"skimvault/internal/platform/config"
	"skimvault/internal/platform/kafka"
	"skimvault/internal/platform/postgres"
	"skimvault/internal/pricing"
	"skimvault/internal/swap"
	httptransport "skimvault/internal/transport/http"
	"skimvault/internal/vault"
	vaultmetrics "skimvault/internal/vault/metrics"
	"skimvault/internal/yieldledger"
	ledgermetrics "skimvault/internal/yieldledger/metrics"
	"skimvault/pkg/domain"
	dErrors "skimvault/pkg/domain-errors"
	"skimvault/pkg/platform/audit"
	auditmemory "skimvault/pkg/platform/audit/store/memory"
	auditpg "skimvault/pkg/platform/audit/store/postgres"
	"skimvault/pkg/platform/circuit"
)

// app holds everything main starts and stops.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	registry *prometheus.Registry

	db       *sql.DB
	producer *kgo.Client
	stores   []kv.Store
	health   map[string]httptransport.HealthCheck

	transport bridge.Transport
	bridgeM   *bridgemetrics.Metrics
	signer    *provenance.Signer

	auditStore audit.Store
	publisher  *audit.Publisher

	ledger *yieldledger.Service
	vault  *vault.Service

	relays    []*bridge.Relay
	consumers []*bridge.Consumer
}

func (a *app) close() {
	for _, s := range a.stores {
		_ = s.Close()
	}
	if a.producer != nil {
		a.producer.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}

func (a *app) chains() (ledgerChain, vaultChain bridge.ChainID) {
	return bridge.ChainID(a.cfg.Bridge.LedgerChain), bridge.ChainID(a.cfg.Bridge.VaultChain)
}

// openStore returns the store for one ledger. name keeps the two ledgers
// apart when they share a backend.
func (a *app) openStore(ctx context.Context, name string) (kv.Store, error) {
	var (
		store kv.Store
		err   error
	)
	switch a.cfg.Storage.Backend {
	case config.BackendBolt:
		store, err = kv.OpenBoltStore(filepath.Join(a.cfg.Storage.DataDir, name+".db"))
	case config.BackendPostgres:
		if err = a.openDB(ctx); err != nil {
			return nil, err
		}
		store, err = kv.NewPostgresStore(a.db, name)
	default:
		store = kv.NewMemoryStore()
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", name, err)
	}
	a.stores = append(a.stores, store)
	return store, nil
}

// openDB opens and migrates the shared Postgres handle once.
func (a *app) openDB(ctx context.Context) error {
	if a.db != nil {
		return nil
	}
	db, err := postgres.Open(ctx, a.cfg.Postgres)
	if err != nil {
		return err
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return err
	}
	a.db = db
	a.health["postgres"] = func(ctx context.Context) error { return db.PingContext(ctx) }
	return nil
}

// buildAudit picks the audit store for the storage backend. Postgres keeps
// the trail; the other backends keep a bounded in-memory ring.
func (a *app) buildAudit(ctx context.Context) error {
	if a.cfg.Storage.Backend == config.BackendPostgres {
		if err := a.openDB(ctx); err != nil {
			return err
		}
		a.auditStore = auditpg.New(a.db)
	} else {
		a.auditStore = auditmemory.NewInMemoryStore(0)
	}
	a.publisher = audit.NewPublisher(a.auditStore,
		audit.WithLogger(a.logger.With("component", "audit")),
		audit.WithMetrics(a.registry),
	)
	return nil
}

func (a *app) buildBridge(ctx context.Context) error {
	a.bridgeM = bridgemetrics.New(a.registry)

	signer, err := provenance.NewSigner([]byte(a.cfg.Bridge.SigningKey))
	if err != nil {
		return fmt.Errorf("bridge signer: %w", err)
	}
	a.signer = signer

	if a.cfg.Bridge.Transport != config.TransportKafka {
		a.transport = bridge.NewLoopback(a.cfg.Bridge.BatchSize)
		return nil
	}

	a.producer, err = kafka.NewClient(a.cfg.Kafka)
	if err != nil {
		return err
	}
	factory := func(opts ...kgo.Opt) (*kgo.Client, error) {
		return kafka.NewClient(a.cfg.Kafka, opts...)
	}
	kt, err := bridge.NewKafkaTransport(a.producer, factory, a.cfg.Kafka.TopicPrefix, a.cfg.Kafka.ConsumerGroup, a.logger)
	if err != nil {
		return err
	}
	ledgerChain, vaultChain := a.chains()
	if err := kafka.EnsureTopics(ctx, a.producer, 1, kt.Topic(ledgerChain), kt.Topic(vaultChain)); err != nil {
		return err
	}
	producer := a.producer
	a.health["kafka"] = func(ctx context.Context) error { return kafka.Health(ctx, producer) }
	a.transport = kt
	return nil
}

func (a *app) relayOptions(extra ...bridge.RelayOption) []bridge.RelayOption {
	return append([]bridge.RelayOption{
		bridge.WithSigner(a.signer),
		bridge.WithMetrics(a.bridgeM),
		bridge.WithLogger(a.logger),
		bridge.WithBatchSize(a.cfg.Bridge.BatchSize),
		bridge.WithInterval(a.cfg.Bridge.RelayInterval.Duration),
	}, extra...)
}

func (a *app) consumerOptions() []bridge.ConsumerOption {
	return []bridge.ConsumerOption{
		bridge.WithConsumerLogger(a.logger),
		bridge.WithConsumerMetrics(a.bridgeM),
	}
}

func (a *app) buildLedger(ctx context.Context) error {
	ledgerChain, vaultChain := a.chains()
	store, err := a.openStore(ctx, "ledger")
	if err != nil {
		return err
	}
	verifier, err := provenance.NewVerifier([]byte(a.cfg.Bridge.SigningKey), ledgerChain,
		map[bridge.ChainID]string{vaultChain: a.cfg.Vault.Self})
	if err != nil {
		return fmt.Errorf("ledger verifier: %w", err)
	}

	a.ledger, err = yieldledger.New(store,
		yieldledger.WithLogger(a.logger.With("ledger", "yield")),
		yieldledger.WithMetrics(ledgermetrics.New(a.registry)),
		yieldledger.WithOutbox(yieldledger.Route{Self: ledgerChain, Remote: vaultChain, Origin: a.cfg.Vault.RemoteLedgerID}),
		yieldledger.WithProvenance(verifier),
		yieldledger.WithAudit(a.publisher),
	)
	if err != nil {
		return err
	}

	threshold, err := domain.ParseAmount(a.cfg.Ledger.Threshold)
	if err != nil {
		return fmt.Errorf("ledger threshold: %w", err)
	}
	err = a.ledger.Instantiate(ctx, yieldledger.InstantiateRequest{
		Admin: domain.Principal(a.cfg.Ledger.Admin),
		Config: yieldledger.Config{
			RemoteContract: a.cfg.Ledger.RemoteContract,
			Gateway:        a.cfg.Ledger.Gateway,
			YieldCollector: a.cfg.Ledger.YieldCollector,
			PriceOracle:    a.cfg.Ledger.PriceOracle,
		},
		Threshold: threshold,
		Rate:      pricing.Rate(a.cfg.Ledger.PriceUSD),
	})
	if err != nil && !dErrors.HasCode(err, dErrors.CodeConflict) {
		return fmt.Errorf("instantiate ledger: %w", err)
	}

	relay, err := bridge.NewRelay(ledgerChain, store, a.transport, a.relayOptions()...)
	if err != nil {
		return err
	}
	consumer, err := bridge.NewConsumer(ledgerChain, a.transport, func(ctx context.Context, env bridge.Envelope) error {
		_, err := a.ledger.ApplyRemote(ctx, env)
		return err
	}, a.consumerOptions()...)
	if err != nil {
		return err
	}
	a.relays = append(a.relays, relay)
	a.consumers = append(a.consumers, consumer)
	return nil
}

// market is what the vault needs from the swap venue.
type market interface {
	swap.Executor
	vault.Holdings
}

func (a *app) market() market {
	if a.cfg.Swap.RouterURL == "" {
		return swap.NewSimulator(a.cfg.Swap.RateBPS)
	}
	return swap.NewRouterClient(a.cfg.Swap.RouterURL, a.cfg.Swap.Timeout.Duration,
		swap.WithRouterLogger(a.logger),
		swap.WithBreaker(circuit.New("swap-router",
			circuit.WithFailureThreshold(5),
			circuit.WithCooldown(30*time.Second))),
	)
}

func (a *app) buildVault(ctx context.Context) error {
	ledgerChain, vaultChain := a.chains()
	store, err := a.openStore(ctx, "vault")
	if err != nil {
		return err
	}
	verifier, err := provenance.NewVerifier([]byte(a.cfg.Bridge.SigningKey), vaultChain,
		map[bridge.ChainID]string{ledgerChain: a.cfg.Vault.RemoteLedgerID})
	if err != nil {
		return fmt.Errorf("vault verifier: %w", err)
	}

	venue := a.market()
	a.vault, err = vault.New(store, venue,
		vault.WithLogger(a.logger.With("ledger", "vault")),
		vault.WithMetrics(vaultmetrics.New(a.registry)),
		vault.WithRoute(vault.Route{Self: vaultChain, Remote: ledgerChain}),
		vault.WithProvenance(verifier),
		vault.WithAddressPrefix(a.cfg.Vault.AddressPrefix),
		vault.WithAudit(a.publisher),
	)
	if err != nil {
		return err
	}

	err = a.vault.Instantiate(ctx, vault.InstantiateRequest{
		Self: domain.Address(a.cfg.Vault.Self),
		Config: vault.Config{
			StableToken:    domain.Address(a.cfg.Vault.StableToken),
			YieldToken:     domain.Address(a.cfg.Vault.YieldToken),
			Router:         domain.Address(a.cfg.Vault.Router),
			Gateway:        domain.Address(a.cfg.Vault.Gateway),
			RemoteLedgerID: a.cfg.Vault.RemoteLedgerID,
			YieldCollector: domain.Address(a.cfg.Vault.YieldCollector),
		},
		RemoteManager: domain.Address(a.cfg.Vault.RemoteManager),
	})
	if err != nil && !dErrors.HasCode(err, dErrors.CodeConflict) {
		return fmt.Errorf("instantiate vault: %w", err)
	}

	relay, err := bridge.NewRelay(vaultChain, store, a.transport, a.relayOptions(
		bridge.WithExecutor(venue),
		bridge.WithSettle(a.vault.SettleSwap),
	)...)
	if err != nil {
		return err
	}
	// Inbound messages are relayed under the configured manager identity.
	relayer := domain.Address(a.cfg.Vault.RemoteManager)
	consumer, err := bridge.NewConsumer(vaultChain, a.transport, func(ctx context.Context, env bridge.Envelope) error {
		_, err := a.vault.ApplyRemote(ctx, relayer, env)
		return err
	}, a.consumerOptions()...)
	if err != nil {
		return err
	}
	a.relays = append(a.relays, relay)
	a.consumers = append(a.consumers, consumer)
	return nil
}

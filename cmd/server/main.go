package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	jwttoken "skimvault/internal/jwt_token"
	"skimvault/internal/platform/config"
	"skimvault/internal/platform/httpserver"
	"skimvault/internal/platform/logger"
	"skimvault/internal/platform/metrics"
	"skimvault/internal/platform/ratelimit"
	"skimvault/internal/platform/redis"
	"skimvault/internal/pricing"
	httptransport "skimvault/internal/transport/http"
)

const pricePollInterval = 30 * time.Second

// main loads configuration, wires both ledgers and their bridge workers, and
// serves HTTP until interrupted.
func main() {
	configPath := flag.String("config", os.Getenv("SKIMVAULT_CONFIG"), "path to a TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "skimvault: %v\n", err)
		os.Exit(1)
	}
	log, closer := logger.New(cfg.Log)
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, &app{cfg: cfg, logger: log}); err != nil {
		log.Error("skimvault stopped", "error", err)
		closer.Close()
		os.Exit(1)
	}
	log.Info("skimvault stopped")
}

func run(ctx context.Context, cfg config.Config, a *app) error {
	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.health = map[string]httptransport.HealthCheck{}
	defer a.close()

	if err := a.buildAudit(ctx); err != nil {
		return err
	}
	if err := a.buildBridge(ctx); err != nil {
		return err
	}
	if cfg.HostsLedger() {
		if err := a.buildLedger(ctx); err != nil {
			return err
		}
	}
	if cfg.HostsVault() {
		if err := a.buildVault(ctx); err != nil {
			return err
		}
	}

	rdb, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
		a.health["redis"] = rdb.Health
		if err := rdb.RegisterMetrics(a.registry); err != nil {
			return err
		}
	}

	deps := httptransport.Deps{
		Tokens:   jwttoken.ForMiddleware(jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, cfg.Server.JWTAudience)),
		Metrics:  metrics.New(a.registry),
		Gatherer: a.registry,
		Audit:    a.auditStore,
		Health:   a.health,
		Logger:   a.logger,
	}
	if a.ledger != nil {
		deps.Ledger = a.ledger
	}
	if a.vault != nil {
		deps.Vault = a.vault
	}
	if cfg.Server.RateLimit > 0 {
		var store ratelimit.Store = ratelimit.NewMemoryStore()
		if rdb != nil {
			store = ratelimit.NewRedisStore(rdb, "skimvault:ratelimit")
		}
		deps.Limiter = ratelimit.New(store, cfg.Server.RateLimit, cfg.Server.RateWindow.Duration,
			ratelimit.WithLogger(a.logger),
			ratelimit.WithMetrics(a.registry),
		)
	}
	srv := httpserver.New(cfg.Server.Addr, httptransport.NewRouter(deps), httpserver.WithLogger(a.logger.With("component", "http")))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("starting skimvault", "addr", cfg.Server.Addr, "role", cfg.Role, "storage", cfg.Storage.Backend, "transport", cfg.Bridge.Transport)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error { return a.publisher.Run(gctx) })
	for _, r := range a.relays {
		g.Go(func() error { return ignoreCancel(r.Run(gctx)) })
	}
	for _, c := range a.consumers {
		g.Go(func() error { return ignoreCancel(c.Run(gctx)) })
	}
	if rdb != nil && a.ledger != nil {
		feed := pricing.NewRedisFeed(rdb, cfg.Redis.PriceKey)
		g.Go(func() error { return pollPrice(gctx, a, feed) })
	}
	return g.Wait()
}

// pollPrice copies the published BTC/USD rate into the yield ledger. A
// missing or unreadable feed keeps the last stored rate.
func pollPrice(ctx context.Context, a *app, feed pricing.Source) error {
	ticker := time.NewTicker(pricePollInterval)
	defer ticker.Stop()
	for {
		if r, err := a.ledger.RefreshPrice(ctx, feed); err != nil {
			if ctx.Err() == nil {
				a.logger.WarnContext(ctx, "price refresh failed", "error", err)
			}
		} else {
			a.logger.DebugContext(ctx, "price refreshed", "usd_per_btc", uint64(r))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

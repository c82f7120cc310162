// Package httptransport binds both ledgers to HTTP. Handlers only decode,
// call a service and encode; every rule lives in the services.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"skimvault/internal/platform/metrics"
	"skimvault/internal/platform/ratelimit"
	"skimvault/pkg/platform/audit"
	"skimvault/pkg/platform/httputil"
	"skimvault/pkg/platform/middleware/auth"
	"skimvault/pkg/platform/middleware/metadata"
	"skimvault/pkg/platform/middleware/request"
	"skimvault/pkg/platform/middleware/requesttime"
)

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// Deps are the collaborators of the router. Ledger and Vault may be nil when
// the process hosts only one of them.
type Deps struct {
	Ledger   LedgerService
	Vault    VaultService
	Audit    audit.Store
	Tokens   auth.TokenValidator
	Limiter  *ratelimit.Limiter
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Health   map[string]HealthCheck
	Logger   *slog.Logger
	Timeout  time.Duration
}

func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Timeout <= 0 {
		d.Timeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
	}

	r.Get("/healthz", healthHandler(d.Health))
	if d.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(d.Gatherer))
	}

	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(d.Timeout))
		r.Use(auth.RequireAuth(d.Tokens, d.Logger))
		if d.Limiter != nil {
			r.Use(d.Limiter.Middleware)
		}
		if d.Ledger != nil {
			NewLedgerHandler(d.Ledger, d.Logger).Register(r)
		}
		if d.Vault != nil {
			NewVaultHandler(d.Vault, d.Logger).Register(r)
		}
		if d.Audit != nil {
			NewAuditHandler(d.Audit, d.Logger).Register(r)
		}
	})
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok"}
		status := http.StatusOK
		for name, check := range checks {
			if resp.Checks == nil {
				resp.Checks = make(map[string]string, len(checks))
			}
			if err := check(ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}

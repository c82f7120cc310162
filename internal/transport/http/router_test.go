package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jwttoken "skimvault/internal/jwt_token"
	"skimvault/internal/kv"
	"skimvault/internal/platform/metrics"
	"skimvault/internal/platform/ratelimit"
	"skimvault/internal/yieldledger"
	"skimvault/pkg/domain"
	"skimvault/pkg/platform/audit"
	auditmemory "skimvault/pkg/platform/audit/store/memory"
)

type routerFixture struct {
	handler http.Handler
	tokens  *jwttoken.JWTService
}

func newRouterFixture(t *testing.T) routerFixture {
	t.Helper()
	ledger, err := yieldledger.New(kv.NewMemoryStore(), yieldledger.WithLogger(quietLogger()))
	require.NoError(t, err)
	require.NoError(t, ledger.Instantiate(context.Background(), yieldledger.InstantiateRequest{
		Admin:     "ledger-admin",
		Threshold: domain.NewAmount(1_000_000),
		Rate:      45_000,
	}))

	tokens := jwttoken.NewJWTService("router-test-key", "skimvault", "skimvault-api")
	reg := prometheus.NewRegistry()
	h := NewRouter(Deps{
		Ledger:   ledger,
		Tokens:   jwttoken.ForMiddleware(tokens),
		Metrics:  metrics.New(reg),
		Gatherer: reg,
		Health: map[string]HealthCheck{
			"store": func(context.Context) error { return nil },
		},
		Logger: quietLogger(),
	})
	return routerFixture{handler: h, tokens: tokens}
}

func (f routerFixture) do(t *testing.T, caller, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if caller != "" {
		tok, err := f.tokens.Issue(caller, time.Minute)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func TestRouter_AuthenticatedLedgerFlow(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(t, "alice", http.MethodPost, "/ledger/deposit", `{"amount":"1500"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(t, "alice", http.MethodGet, "/ledger/me", "")
	require.Equal(t, http.StatusOK, w.Code)
	var view yieldledger.BalanceView
	require.NoError(t, json.NewDecoder(w.Body).Decode(&view))
	assert.Equal(t, domain.Principal("alice"), view.Principal)
	assert.Equal(t, domain.NewAmount(1_500), view.Balance)

	w = f.do(t, "alice", http.MethodPut, "/ledger/admin/price", `{"usd_per_btc":50000}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "only the admin sets the price")

	w = f.do(t, "ledger-admin", http.MethodPut, "/ledger/admin/price", `{"usd_per_btc":50000}`)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRouter_RequiresToken(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(t, "", http.MethodGet, "/ledger/accumulator", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/ledger/accumulator", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_VaultRoutesAbsentWithoutVault(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(t, "alice", http.MethodGet, "/vault/version", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(t, "", http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body healthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "ok", body.Checks["store"])

	w = f.do(t, "", http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "skimvault_http_requests_total")
}

func TestHealthHandler_Degraded(t *testing.T) {
	h := healthHandler(map[string]HealthCheck{
		"redis": func(context.Context) error { return errors.New("connection refused") },
		"store": func(context.Context) error { return nil },
	})
	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var body healthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "connection refused", body.Checks["redis"])
}

func TestRouter_RateLimitAndAudit(t *testing.T) {
	events := auditmemory.NewInMemoryStore(10)
	require.NoError(t, events.Append(context.Background(), audit.Event{Ledger: "yield", Action: audit.ActionDeposit}))

	tokens := jwttoken.NewJWTService("router-test-key", "skimvault", "skimvault-api")
	f := routerFixture{
		handler: NewRouter(Deps{
			Audit:   events,
			Tokens:  jwttoken.ForMiddleware(tokens),
			Limiter: ratelimit.New(ratelimit.NewMemoryStore(), 2, time.Minute, ratelimit.WithLogger(quietLogger())),
			Logger:  quietLogger(),
		}),
		tokens: tokens,
	}

	w := f.do(t, "auditor", http.MethodGet, "/audit/recent", "")
	require.Equal(t, http.StatusOK, w.Code)
	var res auditResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	require.Len(t, res.Events, 1)
	assert.Equal(t, audit.ActionDeposit, res.Events[0].Action)

	assert.Equal(t, http.StatusOK, f.do(t, "auditor", http.MethodGet, "/audit/recent", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, f.do(t, "auditor", http.MethodGet, "/audit/recent", "").Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, "", http.MethodGet, "/audit/recent", "").Code)
}

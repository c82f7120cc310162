package ratelimit

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	dErrors "skimvault/pkg/domain-errors"
	"skimvault/pkg/platform/httputil"
	"skimvault/pkg/requestcontext"
)

// Limiter applies one limit per caller. Requests without a caller are keyed
// by client IP.
type Limiter struct {
	store    Store
	limit    int
	window   time.Duration
	logger   *slog.Logger
	rejected prometheus.Counter
	failures prometheus.Counter
}

type Option func(*Limiter)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) { l.logger = logger }
}

func WithMetrics(reg prometheus.Registerer) Option {
	return func(l *Limiter) {
		factory := promauto.With(reg)
		l.rejected = factory.NewCounter(prometheus.CounterOpts{
			Name: "skimvault_http_rate_limited_total",
			Help: "Requests refused by the per-caller rate limit",
		})
		l.failures = factory.NewCounter(prometheus.CounterOpts{
			Name: "skimvault_http_rate_limit_errors_total",
			Help: "Rate limit checks that failed and let the request through",
		})
	}
}

func New(store Store, limit int, window time.Duration, opts ...Option) *Limiter {
	l := &Limiter{
		store:  store,
		limit:  limit,
		window: window,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func key(r *http.Request) string {
	ctx := r.Context()
	if c := requestcontext.Caller(ctx); c != "" {
		return "caller:" + c
	}
	return "ip:" + requestcontext.ClientIP(ctx)
}

// Middleware must run after authentication. A failing store lets the
// request through.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		res, err := l.store.Allow(ctx, key(r), l.limit, l.window)
		if err != nil {
			if l.failures != nil {
				l.failures.Inc()
			}
			l.logger.ErrorContext(ctx, "rate limit check failed",
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
			next.ServeHTTP(w, r)
			return
		}

		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
		if res.Allowed {
			next.ServeHTTP(w, r)
			return
		}

		if l.rejected != nil {
			l.rejected.Inc()
		}
		wait := res.RetryAfter(requestcontext.Now(ctx))
		h.Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		l.logger.WarnContext(ctx, "rate limit exceeded",
			"caller", requestcontext.Caller(ctx),
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "too many requests, retry later"))
	})
}

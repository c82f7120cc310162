// Package requesttime captures one "now" per HTTP request so every ledger
// write and log line in that request agrees on the timestamp.
package requesttime

import (
	"net/http"
	"time"

	"skimvault/pkg/requestcontext"
)

// Middleware stamps requests with the wall clock in UTC.
var Middleware = WithClock(time.Now)

// WithClock stamps requests with now().UTC().
func WithClock(now func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithTime(r.Context(), now().UTC())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

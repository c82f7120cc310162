// Package requestcontext holds request-scoped values that ledger services,
// relays and workers read without importing net/http. HTTP middleware sets
// them; background paths fall back to zero values and the wall clock.
package requestcontext

import (
	"context"
	"time"
)

// key is typed by the value it stores so lookups cannot mix them up.
type key[T any] struct{ name string }

var (
	callerKey    = key[string]{"caller"}
	requestIDKey = key[string]{"request_id"}
	clientIPKey  = key[string]{"client_ip"}
	timeKey      = key[time.Time]{"request_time"}
)

func with[T any](ctx context.Context, k key[T], v T) context.Context {
	return context.WithValue(ctx, k, v)
}

func get[T any](ctx context.Context, k key[T]) (T, bool) {
	v, ok := ctx.Value(k).(T)
	return v, ok
}

// Caller is the authenticated identity, "" when unauthenticated. It is
// chain-agnostic: handlers parse it into a Principal or an Address depending
// on the ledger they front.
func Caller(ctx context.Context) string {
	v, _ := get(ctx, callerKey)
	return v
}

func WithCaller(ctx context.Context, caller string) context.Context {
	return with(ctx, callerKey, caller)
}

func RequestID(ctx context.Context) string {
	v, _ := get(ctx, requestIDKey)
	return v
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return with(ctx, requestIDKey, id)
}

func ClientIP(ctx context.Context) string {
	v, _ := get(ctx, clientIPKey)
	return v
}

func WithClientIP(ctx context.Context, ip string) context.Context {
	return with(ctx, clientIPKey, ip)
}

// Now is the time stamped on the request, or time.Now() outside one.
func Now(ctx context.Context) time.Time {
	if t, ok := get(ctx, timeKey); ok {
		return t
	}
	return time.Now()
}

func WithTime(ctx context.Context, t time.Time) context.Context {
	return with(ctx, timeKey, t)
}

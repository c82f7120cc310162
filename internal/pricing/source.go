package pricing

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

var ErrPriceUnavailable = errors.New("pricing: price unavailable")

// Source supplies the current rate. The ledger polls it and persists the
// result; a failing source leaves the last stored rate in effect.
type Source interface {
	Rate(ctx context.Context) (Rate, error)
}

// Fixed always returns the same rate.
type Fixed Rate

func (f Fixed) Rate(context.Context) (Rate, error) {
	r := Rate(f)
	if err := r.Validate(); err != nil {
		return 0, err
	}
	return r, nil
}

// RedisFeed reads a rate published under a Redis key by an external oracle
// process. The value is a positive whole number of USD per BTC.
type RedisFeed struct {
	client redis.Cmdable
	key    string
}

var _ Source = (*RedisFeed)(nil)

func NewRedisFeed(client redis.Cmdable, key string) *RedisFeed {
	return &RedisFeed{client: client, key: key}
}

func (f *RedisFeed) Rate(ctx context.Context) (Rate, error) {
	raw, err := f.client.Get(ctx, f.key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("%w: key %s not set", ErrPriceUnavailable, f.key)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrPriceUnavailable, err)
	}
	n, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("pricing: malformed price %q: %w", raw, err)
	}
	r := Rate(n)
	if err := r.Validate(); err != nil {
		return 0, err
	}
	return r, nil
}

// Publish stores a rate for RedisFeed readers. Used by tooling and tests.
func (f *RedisFeed) Publish(ctx context.Context, r Rate) error {
	if err := r.Validate(); err != nil {
		return err
	}
	return f.client.Set(ctx, f.key, strconv.FormatUint(uint64(r), 10), 0).Err()
}

package yieldledger

import (
	"encoding/json"
	"fmt"

	"skimvault/internal/conversion"
	"skimvault/internal/kv"
	"skimvault/internal/pricing"
	"skimvault/pkg/domain"
)

const (
	bucketBalances  = "balances"
	bucketConverted = "converted"
	bucketMeta      = "meta"

	keyAdmin          = "admin"
	keyConfig         = "config"
	keyAccumulator    = "accumulator"
	keyTotalConverted = "total_converted"
	keyDust           = "dust"
	keyThreshold      = "threshold"
	keyRate           = "rate"
)

// amountAt reads an amount; an absent key is zero.
func amountAt(r kv.Reader, bucket, key string) (domain.Amount, error) {
	a, _, err := kv.GetJSON[domain.Amount](r, bucket, key)
	return a, err
}

func addAmount(tx kv.Txn, bucket, key string, delta domain.Amount) (domain.Amount, error) {
	cur, err := amountAt(tx, bucket, key)
	if err != nil {
		return domain.Amount{}, err
	}
	next, err := cur.Add(delta)
	if err != nil {
		return domain.Amount{}, fmt.Errorf("%s/%s: %w", bucket, key, err)
	}
	return next, kv.PutJSON(tx, bucket, key, next)
}

func loadAdmin(r kv.Reader) (domain.Principal, bool, error) {
	return kv.GetJSON[domain.Principal](r, bucketMeta, keyAdmin)
}

func rate(r kv.Reader) (pricing.Rate, error) {
	rt, found, err := kv.GetJSON[pricing.Rate](r, bucketMeta, keyRate)
	if err != nil {
		return 0, err
	}
	if !found {
		return pricing.DefaultRate, nil
	}
	return rt, nil
}

// snapshot reads every stable balance. It must run before the caller mutates
// balances in the same transaction.
func snapshot(r kv.Reader) ([]conversion.Holding, error) {
	var out []conversion.Holding
	err := r.ForEach(bucketBalances, func(key string, value []byte) error {
		var a domain.Amount
		if err := json.Unmarshal(value, &a); err != nil {
			return fmt.Errorf("decode balance of %s: %w", key, err)
		}
		out = append(out, conversion.Holding{Principal: domain.Principal(key), Balance: a})
		return nil
	})
	return out, err
}

package vault

import (
	"encoding/json"
	"fmt"

	"skimvault/internal/kv"
	"skimvault/pkg/domain"
)

const (
	bucketPrincipal = "principal"
	bucketInflight  = "inflight"
	bucketMeta      = "meta"

	keyConfig         = "config"
	keyManager        = "manager"
	keySelf           = "self"
	keyTotalPrincipal = "total_principal"
	keyContract       = "contract"
	keySettled        = "settled"
)

// inflight records yield tokens committed to a pending YieldToStable swap.
// They still sit in the vault's holdings until the swap executes.
type inflight struct {
	Amount    domain.Amount `json:"amount"`
	Recipient string        `json:"recipient"`
}

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

// state is the singleton metadata every operation needs.
type state struct {
	self    domain.Address
	config  Config
	manager domain.Address
}

func loadState(r kv.Reader) (state, error) {
	self, found, err := kv.GetJSON[domain.Address](r, bucketMeta, keySelf)
	if err != nil {
		return state{}, err
	}
	if !found {
		return state{}, errNotInstantiated
	}
	st := state{self: self}
	if st.config, _, err = kv.GetJSON[Config](r, bucketMeta, keyConfig); err != nil {
		return state{}, err
	}
	if st.manager, _, err = kv.GetJSON[domain.Address](r, bucketMeta, keyManager); err != nil {
		return state{}, err
	}
	return st, nil
}

func sumPrincipal(r kv.Reader) (domain.Amount, error) {
	total := domain.Zero
	err := r.ForEach(bucketPrincipal, func(key string, value []byte) error {
		var a domain.Amount
		if err := json.Unmarshal(value, &a); err != nil {
			return fmt.Errorf("decode principal of %s: %w", key, err)
		}
		var err error
		total, err = total.Add(a)
		return err
	})
	return total, err
}

func sumInflight(r kv.Reader) (domain.Amount, error) {
	total := domain.Zero
	err := r.ForEach(bucketInflight, func(key string, value []byte) error {
		var f inflight
		if err := json.Unmarshal(value, &f); err != nil {
			return fmt.Errorf("decode inflight %s: %w", key, err)
		}
		var err error
		total, err = total.Add(f.Amount)
		return err
	})
	return total, err
}

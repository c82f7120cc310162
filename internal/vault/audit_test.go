package vault

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skimvault/internal/kv"
	"skimvault/internal/swap"
	"skimvault/pkg/domain"
	"skimvault/pkg/platform/audit"
	auditmemory "skimvault/pkg/platform/audit/store/memory"
)

// storeEmitter appends straight to a store so tests can read events back in
// order without running a publisher.
type storeEmitter struct {
	store *auditmemory.InMemoryStore
}

func (e storeEmitter) Emit(ctx context.Context, ev audit.Event) {
	_ = e.store.Append(ctx, ev)
}

func TestAuditTrail(t *testing.T) {
	ctx := context.Background()
	events := auditmemory.NewInMemoryStore(16)
	svc, err := New(kv.NewMemoryStore(), swap.NewSimulator(0), WithAudit(storeEmitter{store: events}))
	require.NoError(t, err)
	require.NoError(t, svc.Instantiate(ctx, InstantiateRequest{
		Self:          vaultAddr,
		Config:        testConfig(),
		RemoteManager: manager,
	}))

	_, err = svc.Deposit(ctx, alice, domain.NewAmount(500))
	require.NoError(t, err)
	_, err = svc.SkimYield(ctx, mallory)
	require.Error(t, err)
	require.NoError(t, svc.SetRemoteManager(ctx, manager, bob))

	recent, err := events.ListRecent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recent, 3)

	assert.Equal(t, audit.ActionManagerRotated, recent[0].Action)
	assert.Equal(t, bob.String(), recent[0].Subject)
	assert.Equal(t, audit.ActionAccessDenied, recent[1].Action)
	assert.Equal(t, "skim_yield", recent[1].Reason)
	assert.Equal(t, audit.ActionDeposit, recent[2].Action)
	assert.Equal(t, "500", recent[2].Amount)
	for _, e := range recent {
		assert.Equal(t, "vault", e.Ledger)
	}
}

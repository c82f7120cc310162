package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "skimvault/pkg/platform/audit"
)

func TestInMemoryStore_RingOrder(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore(3)
	for _, subject := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, store.Append(ctx, audit.Event{Action: audit.ActionDeposit, Subject: subject}))
	}

	events, err := store.ListRecent(ctx, 10)
	require.NoError(t, err)
	subjects := make([]string, 0, len(events))
	for _, e := range events {
		subjects = append(subjects, e.Subject)
	}
	assert.Equal(t, []string{"e", "d", "c"}, subjects)
	assert.Equal(t, int64(2), store.Dropped())

	events, err = store.ListRecent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "e", events[0].Subject)
}

func TestInMemoryStore_Empty(t *testing.T) {
	events, err := NewInMemoryStore(0).ListRecent(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, events)
}

package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"citation/internal/audit"
	"citation/pkg/domain"
)

func append3(t *testing.T, store *Store) {
	t.Helper()
	ctx := context.Background()
	for _, action := range []audit.Action{audit.ActionTicketRegistered, audit.ActionPaymentSettled, audit.ActionDriverVerified} {
		require.NoError(t, store.Append(ctx, audit.Entry{
			ActorID:   "actor-1",
			ActorRole: domain.RoleAdmin,
			Action:    action,
		}))
	}
}

func TestQuery_MostRecentFirst(t *testing.T) {
	store := New()
	append3(t, store)

	entries, err := store.Query(context.Background(), audit.Filter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, audit.ActionDriverVerified, entries[0].Action)
	assert.Equal(t, audit.ActionTicketRegistered, entries[2].Action)
	assert.Greater(t, entries[0].Seq, entries[1].Seq)
	assert.Greater(t, entries[1].Seq, entries[2].Seq)
}

func TestQuery_SinceSeq(t *testing.T) {
	store := New()
	append3(t, store)

	entries, err := store.Query(context.Background(), audit.Filter{SinceSeq: 2, Limit: 10})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(3), entries[0].Seq)
}

func TestQuery_ActorFilterAndLimit(t *testing.T) {
	store := New()
	ctx := context.Background()
	require.NoError(t, store.Append(ctx, audit.Entry{ActorID: "a", Action: audit.ActionTicketRegistered}))
	require.NoError(t, store.Append(ctx, audit.Entry{ActorID: "b", Action: audit.ActionPaymentSettled}))
	require.NoError(t, store.Append(ctx, audit.Entry{ActorID: "a", Action: audit.ActionPaymentCompleted}))

	entries, err := store.Query(ctx, audit.Filter{ActorID: "a", Limit: 1})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, audit.ActionPaymentCompleted, entries[0].Action)
}

// TestAppend_ConcurrentSequence asserts that sequence numbers stay distinct
// and dense under concurrent appends; commit order is the ordering guarantee.
func TestAppend_ConcurrentSequence(t *testing.T) {
	store := New()
	ctx := context.Background()

	const goroutines = 50
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			assert.NoError(t, store.Append(ctx, audit.Entry{ActorID: "c", Action: audit.ActionPaymentSettled}))
		}()
	}
	wg.Wait()

	entries, err := store.Query(ctx, audit.Filter{Limit: goroutines})
	require.NoError(t, err)
	require.Len(t, entries, goroutines)

	seen := make(map[int64]bool, goroutines)
	for _, entry := range entries {
		assert.False(t, seen[entry.Seq], "duplicate seq %d", entry.Seq)
		seen[entry.Seq] = true
	}
}

func TestFailNextAppend(t *testing.T) {
	store := New()
	ctx := context.Background()
	store.FailNextAppend(assert.AnError)

	err := store.Append(ctx, audit.Entry{Action: audit.ActionTicketRegistered})
	require.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 0, store.Len())

	// Hook is one-shot.
	require.NoError(t, store.Append(ctx, audit.Entry{Action: audit.ActionTicketRegistered}))
	assert.Equal(t, 1, store.Len())
}

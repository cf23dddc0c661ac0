package allocator

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"citation/internal/allocator/store/memory"
	"citation/pkg/domain"
	dErrors "citation/pkg/domain-errors"
)

// TestNextTicketID_Concurrent is the allocator's core property: N parallel
// callers receive N distinct values, and sorting them yields a strictly
// increasing sequence.
func TestNextTicketID_Concurrent(t *testing.T) {
	svc := NewService(memory.New())
	ctx := context.Background()

	const callers = 200
	ids := make([]domain.TicketID, callers)

	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(slot int) {
			defer wg.Done()
			id, err := svc.NextTicketID(ctx)
			assert.NoError(t, err)
			ids[slot] = id
		}(i)
	}
	wg.Wait()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for i := 0; i < callers; i++ {
		require.Equal(t, domain.TicketID(i+1), ids[i], "expected dense distinct sequence from fresh counter")
	}
}

func TestNextTicketID_SequentialIncreasing(t *testing.T) {
	svc := NewService(memory.New())
	ctx := context.Background()

	prev := domain.TicketID(0)
	for i := 0; i < 10; i++ {
		id, err := svc.NextTicketID(ctx)
		require.NoError(t, err)
		assert.Greater(t, id, prev)
		prev = id
	}
}

type failingStore struct{}

func (failingStore) Next(context.Context) (int64, error) { return 0, assert.AnError }

func TestNextTicketID_StoreError(t *testing.T) {
	svc := NewService(failingStore{})

	_, err := svc.NextTicketID(context.Background())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
}

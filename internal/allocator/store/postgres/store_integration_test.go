//go:build integration

package postgres_test

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	allocpostgres "citation/internal/allocator/store/postgres"
	"citation/pkg/testutil/containers"
)

type AllocatorStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *allocpostgres.Store
}

func TestAllocatorStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(AllocatorStoreSuite))
}

func (s *AllocatorStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = allocpostgres.New(s.postgres.DB)
}

func (s *AllocatorStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "ticket_counter"))
}

func (s *AllocatorStoreSuite) TestNext_Sequential() {
	ctx := context.Background()

	for want := int64(1); want <= 5; want++ {
		got, err := s.store.Next(ctx)
		s.Require().NoError(err)
		s.Equal(want, got)
	}
}

// TestNext_ConcurrentDistinctDense hammers the counter from many goroutines
// and requires the issued ids to be exactly 1..N with no gaps or duplicates.
func (s *AllocatorStoreSuite) TestNext_ConcurrentDistinctDense() {
	ctx := context.Background()
	const callers = 50

	ids := make([]int64, callers)
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			id, err := s.store.Next(ctx)
			if err == nil {
				ids[i] = id
			}
		}(i)
	}
	wg.Wait()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for i, id := range ids {
		s.Equal(int64(i+1), id)
	}
}

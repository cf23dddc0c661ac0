package memory

import (
	"context"
	"sync/atomic"
)

// Store is the in-memory counter used by unit tests and local runs.
type Store struct {
	counter atomic.Int64
}

func New() *Store {
	return &Store{}
}

func (s *Store) Next(_ context.Context) (int64, error) {
	return s.counter.Add(1), nil
}

package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"citation/internal/audit"
)

// Store is the in-memory audit ledger used by unit tests and local runs.
// Entries are assigned a monotonic sequence under the store lock so commit
// order matches sequence order exactly as in the postgres store.
type Store struct {
	mu      sync.RWMutex
	entries []audit.Entry
	nextSeq int64

	failNext error
}

func New() *Store {
	return &Store{nextSeq: 1}
}

// FailNextAppend makes the next Append return err. Test hook for verifying
// that callers abort their atomic unit when the ledger write fails.
func (s *Store) FailNextAppend(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

func (s *Store) Append(_ context.Context, entry audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failNext != nil {
		err := s.failNext
		s.failNext = nil
		return err
	}

	entry.Seq = s.nextSeq
	s.nextSeq++
	entry.ID = uuid.New()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *Store) Query(_ context.Context, filter audit.Filter) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []audit.Entry
	for i := len(s.entries) - 1; i >= 0; i-- {
		entry := s.entries[i]
		if entry.Seq <= filter.SinceSeq {
			continue
		}
		if filter.ActorID != "" && entry.ActorID != filter.ActorID {
			continue
		}
		out = append(out, entry)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

// Len reports how many entries have been committed. Test helper.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Package allocator issues ticket numbers: strictly increasing, never
// duplicated, even under unbounded concurrent callers. A number handed to a
// caller that never registers its ticket is a permissible gap.
package allocator

import (
	"context"

	"citation/pkg/domain"
	dErrors "citation/pkg/domain-errors"
)

// Store is a persistent monotonic counter. Next must be a single atomic
// increment-and-read; deriving the next value from existing ticket rows races.
type Store interface {
	Next(ctx context.Context) (int64, error)
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// NextTicketID allocates the next ticket number.
func (s *Service) NextTicketID(ctx context.Context) (domain.TicketID, error) {
	n, err := s.store.Next(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to allocate ticket id")
	}
	return domain.TicketID(n), nil
}

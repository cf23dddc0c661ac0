package memory

import (
	"context"
	"sort"
	"sync"

	"citation/internal/audit"
	"citation/internal/ticket/models"
	"citation/pkg/domain"
	"citation/pkg/platform/sentinel"
)

type auditAppender interface {
	Append(ctx context.Context, entry audit.Entry) error
}

// Store is the in-memory ticket registry used in unit tests and local runs.
// The audit entry is appended before the mutation under the store lock so a
// failing ledger write leaves the registry untouched.
type Store struct {
	mu        sync.RWMutex
	tickets   map[domain.TicketID]*models.Ticket
	penalties map[domain.PenaltyID]*models.Penalty
	types     []models.ViolationType
	audit     auditAppender
}

func New(auditStore auditAppender) *Store {
	return &Store{
		tickets:   make(map[domain.TicketID]*models.Ticket),
		penalties: make(map[domain.PenaltyID]*models.Penalty),
		audit:     auditStore,
	}
}

// SeedViolationTypes loads the fee schedule. Test and local-run helper.
func (s *Store) SeedViolationTypes(types []models.ViolationType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.types = make([]models.ViolationType, len(types))
	copy(s.types, types)
}

func (s *Store) Create(ctx context.Context, ticket *models.Ticket, entry audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tickets[ticket.ID]; exists {
		return sentinel.ErrConflict
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		return err
	}

	clone := cloneTicket(ticket)
	s.tickets[ticket.ID] = clone
	for i := range clone.Penalties {
		s.penalties[clone.Penalties[i].ID] = &clone.Penalties[i]
	}
	return nil
}

func (s *Store) GetByID(_ context.Context, id domain.TicketID) (*models.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ticket, ok := s.tickets[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneTicket(ticket), nil
}

func (s *Store) PenaltiesByDriver(_ context.Context, driverID domain.DriverID) ([]models.DriverPenalty, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var tickets []*models.Ticket
	for _, ticket := range s.tickets {
		if ticket.DriverID == driverID {
			tickets = append(tickets, ticket)
		}
	}
	sort.Slice(tickets, func(i, j int) bool {
		return tickets[i].CreatedAt.After(tickets[j].CreatedAt)
	})

	var out []models.DriverPenalty
	for _, ticket := range tickets {
		for _, penalty := range ticket.Penalties {
			out = append(out, models.DriverPenalty{
				PenaltyID:     penalty.ID,
				TicketID:      ticket.ID,
				ViolationType: penalty.ViolationType,
				Fee:           penalty.Fee,
				Paid:          penalty.Paid,
				IssuedAt:      ticket.CreatedAt,
			})
		}
	}
	return out, nil
}

func (s *Store) ListViolationTypes(_ context.Context) ([]models.ViolationType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	types := make([]models.ViolationType, len(s.types))
	copy(types, s.types)
	return types, nil
}

// Penalty resolves one penalty with its owning driver. Used by the payment
// store to validate settlement attempts.
func (s *Store) Penalty(id domain.PenaltyID) (domain.DriverID, int64, bool, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	penalty, ok := s.penalties[id]
	if !ok {
		return domain.DriverID{}, 0, false, false
	}
	ticket := s.tickets[penalty.TicketID]
	return ticket.DriverID, penalty.Fee, penalty.Paid, true
}

// MarkPaid flips a penalty's settlement flag.
func (s *Store) MarkPaid(id domain.PenaltyID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	penalty, ok := s.penalties[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	penalty.Paid = true
	return nil
}

func cloneTicket(ticket *models.Ticket) *models.Ticket {
	clone := *ticket
	clone.Penalties = make([]models.Penalty, len(ticket.Penalties))
	copy(clone.Penalties, ticket.Penalties)
	return &clone
}

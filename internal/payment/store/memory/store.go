package memory

import (
	"context"
	"sort"
	"sync"

	"citation/internal/audit"
	"citation/internal/payment/models"
	"citation/pkg/domain"
	"citation/pkg/platform/sentinel"
)

type auditAppender interface {
	Append(ctx context.Context, entry audit.Entry) error
}

// PenaltyDirectory resolves penalties and flips their settled state. The
// ticket registry's memory store implements it.
type PenaltyDirectory interface {
	Penalty(id domain.PenaltyID) (driverID domain.DriverID, fee int64, paid bool, ok bool)
	MarkPaid(id domain.PenaltyID) error
}

// Store is the in-memory payment store used in unit tests and local runs.
// All settlements serialize on the store lock, which stands in for the
// postgres store's row locking.
type Store struct {
	mu        sync.Mutex
	payments  map[domain.PaymentID]*models.Payment
	penalties PenaltyDirectory
	audit     auditAppender

	failNextSettle error
}

func New(penalties PenaltyDirectory, auditStore auditAppender) *Store {
	return &Store{
		payments:  make(map[domain.PaymentID]*models.Payment),
		penalties: penalties,
		audit:     auditStore,
	}
}

// FailNextSettle makes the next Settle fail after its checks pass. Test hook
// for partial-batch scenarios.
func (s *Store) FailNextSettle(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNextSettle = err
}

// Put inserts a payment as-is, bypassing settlement checks. Test helper for
// staging pending payments.
func (s *Store) Put(payment *models.Payment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *payment
	s.payments[payment.ID] = &clone
}

func (s *Store) Settle(ctx context.Context, payment *models.Payment, entry audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	driverID, fee, paid, ok := s.penalties.Penalty(payment.PenaltyID)
	if !ok || driverID != payment.DriverID {
		return sentinel.ErrNotFound
	}
	if paid {
		return sentinel.ErrAlreadySettled
	}
	if payment.Amount != 0 && payment.Amount != fee {
		return sentinel.ErrInvalidState
	}
	if s.failNextSettle != nil {
		err := s.failNextSettle
		s.failNextSettle = nil
		return err
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		return err
	}
	if err := s.penalties.MarkPaid(payment.PenaltyID); err != nil {
		return err
	}

	payment.Amount = fee
	clone := *payment
	s.payments[payment.ID] = &clone
	return nil
}

func (s *Store) Complete(ctx context.Context, id domain.PaymentID, expected models.Status, entry audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payment, ok := s.payments[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	// Completed is terminal: re-completing must not audit twice.
	if payment.Status == models.StatusCompleted || payment.Status != expected {
		return sentinel.ErrStale
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		return err
	}
	payment.Status = models.StatusCompleted
	if err := s.penalties.MarkPaid(payment.PenaltyID); err != nil {
		return err
	}
	return nil
}

func (s *Store) GetByID(_ context.Context, id domain.PaymentID) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	payment, ok := s.payments[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *payment
	return &clone, nil
}

func (s *Store) HistoryByDriver(_ context.Context, driverID domain.DriverID) ([]*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.Payment
	for _, payment := range s.payments {
		if payment.DriverID == driverID {
			clone := *payment
			out = append(out, &clone)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *Store) List(_ context.Context) ([]*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.Payment, 0, len(s.payments))
	for _, payment := range s.payments {
		clone := *payment
		out = append(out, &clone)
	}
	sortNewestFirst(out)
	return out, nil
}

func sortNewestFirst(payments []*models.Payment) {
	sort.Slice(payments, func(i, j int) bool {
		if payments[i].CreatedAt.Equal(payments[j].CreatedAt) {
			return payments[i].ID.String() < payments[j].ID.String()
		}
		return payments[i].CreatedAt.After(payments[j].CreatedAt)
	})
}

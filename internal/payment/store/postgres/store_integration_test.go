//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"citation/internal/audit"
	auditpostgres "citation/internal/audit/store/postgres"
	drivermodels "citation/internal/driver/models"
	driverpostgres "citation/internal/driver/store/postgres"
	"citation/internal/payment/models"
	paymentpostgres "citation/internal/payment/store/postgres"
	ticketmodels "citation/internal/ticket/models"
	ticketpostgres "citation/internal/ticket/store/postgres"
	"citation/pkg/domain"
	"citation/pkg/platform/sentinel"
	"citation/pkg/testutil/containers"
)

type PaymentStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *paymentpostgres.Store
	tickets  *ticketpostgres.Store
	drivers  *driverpostgres.Store

	driverID  domain.DriverID
	penaltyID domain.PenaltyID
}

func TestPaymentStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PaymentStoreSuite))
}

func (s *PaymentStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	auditStore := auditpostgres.New(s.postgres.DB)
	s.store = paymentpostgres.New(s.postgres.DB, auditStore)
	s.tickets = ticketpostgres.New(s.postgres.DB, auditStore)
	s.drivers = driverpostgres.New(s.postgres.DB, auditStore)
}

// SetupTest resets state and stages one driver with a single-penalty ticket.
func (s *PaymentStoreSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateTables(ctx, "audit_entries", "payments", "penalties", "tickets", "drivers")
	s.Require().NoError(err)

	driver := &drivermodels.Driver{
		ID:            domain.NewDriverID(),
		FullName:      "Juan Dela Cruz",
		LicenseNumber: "N01-23-456789",
		LicenseStatus: drivermodels.LicenseStatusActive,
		Email:         "juan@example.com",
		CreatedAt:     time.Now().UTC(),
	}
	s.Require().NoError(s.drivers.Create(ctx, driver, entry(audit.ActionDriverRegistered)))
	s.driverID = driver.ID

	s.penaltyID = domain.NewPenaltyID()
	s.Require().NoError(s.tickets.Create(ctx, &ticketmodels.Ticket{
		ID:        1,
		OfficerID: domain.NewOfficerID(),
		DriverID:  driver.ID,
		Vehicle:   ticketmodels.VehicleInfo{PlateNumber: "ABC-1234"},
		Penalties: []ticketmodels.Penalty{
			{ID: s.penaltyID, TicketID: 1, ViolationType: "speeding", Fee: 150000},
		},
		CreatedAt: time.Now().UTC(),
	}, entry(audit.ActionTicketRegistered)))
}

func entry(action audit.Action) audit.Entry {
	return audit.Entry{
		ActorID:   uuid.NewString(),
		ActorRole: domain.RoleAdmin,
		Action:    action,
		CreatedAt: time.Now().UTC(),
	}
}

func (s *PaymentStoreSuite) newPayment() *models.Payment {
	return &models.Payment{
		ID:                   domain.NewPaymentID(),
		PenaltyID:            s.penaltyID,
		DriverID:             s.driverID,
		Method:               "gcash",
		ReferenceAttestation: "REF-0001",
		Status:               models.StatusCompleted,
		CreatedAt:            time.Now().UTC(),
	}
}

func (s *PaymentStoreSuite) TestSettle() {
	ctx := context.Background()

	payment := s.newPayment()
	s.Require().NoError(s.store.Settle(ctx, payment, entry(audit.ActionPaymentSettled)))
	s.Equal(int64(150000), payment.Amount, "amount copied from the frozen fee")

	got, err := s.store.GetByID(ctx, payment.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusCompleted, got.Status)

	ticket, err := s.tickets.GetByID(ctx, 1)
	s.Require().NoError(err)
	s.True(ticket.Penalties[0].Paid, "settled penalty reads as paid")
}

func (s *PaymentStoreSuite) TestSettle_AlreadySettled() {
	ctx := context.Background()

	s.Require().NoError(s.store.Settle(ctx, s.newPayment(), entry(audit.ActionPaymentSettled)))

	err := s.store.Settle(ctx, s.newPayment(), entry(audit.ActionPaymentSettled))
	s.ErrorIs(err, sentinel.ErrAlreadySettled)

	var count int
	err = s.postgres.DB.QueryRowContext(ctx,
		`SELECT count(*) FROM payments WHERE penalty_id = $1 AND status = 'completed'`,
		uuid.UUID(s.penaltyID)).Scan(&count)
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *PaymentStoreSuite) TestSettle_UnknownPenalty() {
	payment := s.newPayment()
	payment.PenaltyID = domain.NewPenaltyID()
	err := s.store.Settle(context.Background(), payment, entry(audit.ActionPaymentSettled))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PaymentStoreSuite) TestSettle_AmountMismatch() {
	ctx := context.Background()

	payment := s.newPayment()
	payment.Amount = 149999
	err := s.store.Settle(ctx, payment, entry(audit.ActionPaymentSettled))
	s.ErrorIs(err, sentinel.ErrInvalidState)

	ticket, err := s.tickets.GetByID(ctx, 1)
	s.Require().NoError(err)
	s.False(ticket.Penalties[0].Paid)

	payment = s.newPayment()
	payment.Amount = 150000
	s.Require().NoError(s.store.Settle(ctx, payment, entry(audit.ActionPaymentSettled)))
}

func (s *PaymentStoreSuite) TestSettle_ForeignPenalty() {
	payment := s.newPayment()
	payment.DriverID = domain.NewDriverID()
	err := s.store.Settle(context.Background(), payment, entry(audit.ActionPaymentSettled))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

// TestSettle_ConcurrentExactlyOneWinner drives many settlement attempts at
// the same penalty; the row lock plus the partial unique index guarantee a
// single completed payment.
func (s *PaymentStoreSuite) TestSettle_ConcurrentExactlyOneWinner() {
	ctx := context.Background()
	const goroutines = 20

	var wg sync.WaitGroup
	var succeeded, settledConflicts atomic.Int32
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			err := s.store.Settle(ctx, s.newPayment(), entry(audit.ActionPaymentSettled))
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, sentinel.ErrAlreadySettled):
				settledConflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), succeeded.Load())
	s.Equal(int32(goroutines-1), settledConflicts.Load())

	var count int
	err := s.postgres.DB.QueryRowContext(ctx,
		`SELECT count(*) FROM audit_entries WHERE action = 'payment_settled'`).Scan(&count)
	s.Require().NoError(err)
	s.Equal(1, count, "losers leave no audit entries")
}

func (s *PaymentStoreSuite) putPending() *models.Payment {
	payment := s.newPayment()
	payment.Status = models.StatusPending
	_, err := s.postgres.DB.ExecContext(context.Background(), `
		INSERT INTO payments (id, penalty_id, driver_id, amount, method,
		                      reference_attestation, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		uuid.UUID(payment.ID), uuid.UUID(payment.PenaltyID), uuid.UUID(payment.DriverID),
		int64(150000), payment.Method, payment.ReferenceAttestation,
		string(payment.Status), payment.CreatedAt,
	)
	s.Require().NoError(err)
	return payment
}

func (s *PaymentStoreSuite) TestComplete_CAS() {
	ctx := context.Background()
	pending := s.putPending()

	s.Require().NoError(s.store.Complete(ctx, pending.ID, models.StatusPending, entry(audit.ActionPaymentCompleted)))

	got, err := s.store.GetByID(ctx, pending.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusCompleted, got.Status)

	err = s.store.Complete(ctx, pending.ID, models.StatusPending, entry(audit.ActionPaymentCompleted))
	s.ErrorIs(err, sentinel.ErrStale)

	err = s.store.Complete(ctx, domain.NewPaymentID(), models.StatusPending, entry(audit.ActionPaymentCompleted))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PaymentStoreSuite) TestComplete_ConcurrentExactlyOneWinner() {
	ctx := context.Background()
	pending := s.putPending()
	const admins = 10

	var wg sync.WaitGroup
	var won, stale atomic.Int32
	wg.Add(admins)
	for i := 0; i < admins; i++ {
		go func() {
			defer wg.Done()
			err := s.store.Complete(ctx, pending.ID, models.StatusPending, entry(audit.ActionPaymentCompleted))
			switch {
			case err == nil:
				won.Add(1)
			case errors.Is(err, sentinel.ErrStale):
				stale.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), won.Load(), "exactly one admin wins the CAS")
	s.Equal(int32(admins-1), stale.Load())

	var count int
	err := s.postgres.DB.QueryRowContext(ctx,
		`SELECT count(*) FROM audit_entries WHERE action = 'payment_completed'`).Scan(&count)
	s.Require().NoError(err)
	s.Equal(1, count, "exactly one completed audit entry")
}

func (s *PaymentStoreSuite) TestHistoryByDriver() {
	ctx := context.Background()

	s.Require().NoError(s.store.Settle(ctx, s.newPayment(), entry(audit.ActionPaymentSettled)))

	history, err := s.store.HistoryByDriver(ctx, s.driverID)
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	s.Equal(s.penaltyID, history[0].PenaltyID)

	other, err := s.store.HistoryByDriver(ctx, domain.NewDriverID())
	s.Require().NoError(err)
	s.Empty(other)
}

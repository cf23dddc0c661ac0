package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"citation/internal/audit"
	auditmem "citation/internal/audit/store/memory"
	drivermodels "citation/internal/driver/models"
	driversvc "citation/internal/driver/service"
	drivermem "citation/internal/driver/store/memory"
	paymentmodels "citation/internal/payment/models"
	paymentsvc "citation/internal/payment/service"
	paymentmem "citation/internal/payment/store/memory"
	ticketmodels "citation/internal/ticket/models"
	ticketmem "citation/internal/ticket/store/memory"
	"citation/pkg/domain"
	dErrors "citation/pkg/domain-errors"
	"citation/pkg/requestcontext"
)

type fixture struct {
	svc     *Service
	ledger  *auditmem.Store
	drivers *driversvc.Service
	pending *paymentmodels.Payment
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ledger := auditmem.New()
	tickets := ticketmem.New(ledger)
	payments := paymentmem.New(tickets, ledger)
	drivers := driversvc.NewService(drivermem.New(ledger))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	driverID := domain.NewDriverID()
	penaltyID := domain.NewPenaltyID()
	require.NoError(t, tickets.Create(context.Background(), &ticketmodels.Ticket{
		ID:        1,
		OfficerID: domain.NewOfficerID(),
		DriverID:  driverID,
		Vehicle:   ticketmodels.VehicleInfo{PlateNumber: "ABC-1234"},
		Penalties: []ticketmodels.Penalty{
			{ID: penaltyID, TicketID: 1, ViolationType: "speeding", Fee: 150000},
		},
		CreatedAt: time.Now(),
	}, audit.Entry{Action: audit.ActionTicketRegistered}))

	pending := &paymentmodels.Payment{
		ID:        domain.NewPaymentID(),
		PenaltyID: penaltyID,
		DriverID:  driverID,
		Amount:    150000,
		Method:    "gcash",
		Status:    paymentmodels.StatusPending,
		CreatedAt: time.Now(),
	}
	payments.Put(pending)

	paymentService := paymentsvc.NewService(payments, nil, logger)
	return &fixture{
		svc:     NewService(paymentService, drivers, 3, nil, logger),
		ledger:  ledger,
		drivers: drivers,
		pending: pending,
	}
}

func adminCtx() context.Context {
	return requestcontext.WithActor(context.Background(), requestcontext.ActorRef{
		ID:   "admin-1",
		Role: domain.RoleAdmin,
	})
}

func TestMarkPaymentCompleted(t *testing.T) {
	f := newFixture(t)
	ctx := adminCtx()

	payment, err := f.svc.MarkPaymentCompleted(ctx, f.pending.ID, paymentmodels.StatusPending)
	require.NoError(t, err)
	assert.Equal(t, paymentmodels.StatusCompleted, payment.Status)

	_, err = f.svc.MarkPaymentCompleted(ctx, f.pending.ID, paymentmodels.StatusPending)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeStaleState))
}

func TestMarkPaymentCompleted_ConcurrentExactlyOneWinner(t *testing.T) {
	f := newFixture(t)
	ctx := adminCtx()

	const admins = 2
	results := make([]error, admins)
	var wg sync.WaitGroup
	wg.Add(admins)
	for i := 0; i < admins; i++ {
		go func(i int) {
			defer wg.Done()
			_, results[i] = f.svc.MarkPaymentCompleted(ctx, f.pending.ID, paymentmodels.StatusPending)
		}(i)
	}
	wg.Wait()

	var won, stale int
	for _, err := range results {
		switch {
		case err == nil:
			won++
		case dErrors.HasCode(err, dErrors.CodeStaleState):
			stale++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, won, "exactly one admin wins the CAS")
	assert.Equal(t, 1, stale)

	entries, err := f.ledger.Query(ctx, audit.Filter{Limit: 50})
	require.NoError(t, err)
	var completed int
	for _, e := range entries {
		if e.Action == audit.ActionPaymentCompleted {
			completed++
		}
	}
	assert.Equal(t, 1, completed, "exactly one completed audit entry")
}

type flakyCompleter struct {
	mu       sync.Mutex
	failures int
	payment  *paymentmodels.Payment
}

func (f *flakyCompleter) Complete(context.Context, domain.PaymentID, paymentmodels.Status) (*paymentmodels.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return nil, dErrors.Wrap(errors.New("connection reset"), dErrors.CodeUnavailable, "failed to record settlement")
	}
	return f.payment, nil
}

func TestMarkPaymentCompleted_RetriesTransientErrors(t *testing.T) {
	payment := &paymentmodels.Payment{ID: domain.NewPaymentID(), Status: paymentmodels.StatusCompleted}
	completer := &flakyCompleter{failures: 2, payment: payment}
	svc := NewService(completer, nil, 3, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	got, err := svc.MarkPaymentCompleted(adminCtx(), payment.ID, paymentmodels.StatusPending)
	require.NoError(t, err)
	assert.Equal(t, payment.ID, got.ID)
}

func TestMarkPaymentCompleted_GivesUpAfterBoundedRetries(t *testing.T) {
	completer := &flakyCompleter{failures: 10}
	svc := NewService(completer, nil, 3, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := svc.MarkPaymentCompleted(adminCtx(), domain.NewPaymentID(), paymentmodels.StatusPending)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
	assert.Equal(t, 7, completer.failures, "exactly casRetries attempts")
}

func TestVerifyDriver_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := adminCtx()

	driver, err := f.drivers.Register(ctx, drivermodels.RegisterInput{
		FullName:      "Juan Dela Cruz",
		LicenseNumber: "N01-23-456789",
		Email:         "juan@example.com",
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.VerifyDriver(ctx, driver.ID))
	require.NoError(t, f.svc.VerifyDriver(ctx, driver.ID))

	entries, err := f.ledger.Query(ctx, audit.Filter{Limit: 50})
	require.NoError(t, err)
	var verified int
	for _, e := range entries {
		if e.Action == audit.ActionDriverVerified {
			verified++
		}
	}
	assert.Equal(t, 1, verified)
}

func TestAmendLicenseExpiry_InvalidDate(t *testing.T) {
	f := newFixture(t)
	ctx := adminCtx()

	driver, err := f.drivers.Register(ctx, drivermodels.RegisterInput{
		FullName:      "Juan Dela Cruz",
		LicenseNumber: "N01-23-456789",
		Email:         "juan@example.com",
	})
	require.NoError(t, err)

	_, err = f.svc.AmendLicenseExpiry(ctx, driver.ID, "2025-13-40")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidDate))

	got, err := f.drivers.Get(ctx, driver.ID)
	require.NoError(t, err)
	assert.Nil(t, got.LicenseExpiry, "invalid date leaves expiry unchanged")
}

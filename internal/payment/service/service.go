package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"citation/internal/audit"
	"citation/internal/payment/models"
	"citation/internal/platform/metrics"
	"citation/internal/platform/middleware"
	"citation/pkg/domain"
	dErrors "citation/pkg/domain-errors"
	"citation/pkg/platform/sentinel"
	"citation/pkg/requestcontext"
)

// Store is the settlement persistence contract. Settle commits the payment,
// the penalty's settled state, and the audit entry in one atomic unit scoped
// to a single attempt; a non-zero Amount is checked against the penalty's
// frozen fee, then Amount is set to the fee. Complete is the
// pending→completed CAS.
type Store interface {
	Settle(ctx context.Context, payment *models.Payment, entry audit.Entry) error
	Complete(ctx context.Context, id domain.PaymentID, expected models.Status, entry audit.Entry) error
	GetByID(ctx context.Context, id domain.PaymentID) (*models.Payment, error)
	HistoryByDriver(ctx context.Context, driverID domain.DriverID) ([]*models.Payment, error)
	List(ctx context.Context) ([]*models.Payment, error)
}

// Service owns payment settlement and reads.
type Service struct {
	store   Store
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewService(store Store, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{store: store, metrics: m, logger: logger}
}

// SettlePenalties processes a settlement batch for one driver. Each attempt
// is its own atomic unit: a failure moves that attempt to the failed list
// with a reason and never disturbs earlier successes or aborts later
// attempts. Both result lists preserve submission order.
func (s *Service) SettlePenalties(ctx context.Context, driverID domain.DriverID, attempts []models.SettlementAttempt) (*models.SettlementResult, error) {
	if driverID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "driver id is required")
	}
	if len(attempts) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "at least one settlement attempt is required")
	}

	result := &models.SettlementResult{}
	for _, attempt := range attempts {
		payment, err := s.settleOne(ctx, driverID, attempt)
		if err != nil {
			result.Failed = append(result.Failed, models.FailedAttempt{
				PenaltyRef: attempt.PenaltyRef,
				Reason:     string(dErrors.CodeOf(err)),
				Message:    dErrors.MessageOf(err),
			})
			s.metrics.IncSettlementsFailed()
			continue
		}
		result.Succeeded = append(result.Succeeded, payment)
		s.metrics.IncSettlementsSucceeded()
	}

	s.logger.InfoContext(ctx, "settlement batch processed",
		"request_id", middleware.GetRequestID(ctx),
		"driver_id", driverID.String(),
		"succeeded", len(result.Succeeded),
		"failed", len(result.Failed),
	)
	return result, nil
}

func (s *Service) settleOne(ctx context.Context, driverID domain.DriverID, attempt models.SettlementAttempt) (*models.Payment, error) {
	if err := attempt.Validate(); err != nil {
		return nil, err
	}
	penaltyID, err := domain.ParsePenaltyID(attempt.PenaltyRef)
	if err != nil {
		return nil, dErrors.Newf(dErrors.CodeValidation, "penalty reference %q is not a valid id", attempt.PenaltyRef)
	}

	// Amount carries the caller's attestation into the store, which verifies
	// it against the penalty's frozen fee before recording the fee itself.
	now := requestcontext.Now(ctx)
	payment := &models.Payment{
		ID:                   domain.NewPaymentID(),
		PenaltyID:            penaltyID,
		DriverID:             driverID,
		Amount:               attempt.Amount,
		Method:               attempt.Method,
		ReferenceAttestation: attempt.ReferenceAttestation,
		Status:               models.StatusCompleted,
		CreatedAt:            now,
	}

	actor := requestcontext.Actor(ctx)
	entry := audit.Entry{
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		Action:    audit.ActionPaymentSettled,
		Details:   fmt.Sprintf("penalty %s settled by driver %s (payment %s)", penaltyID, driverID, payment.ID),
		CreatedAt: now,
	}

	if err := s.store.Settle(ctx, payment, entry); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.Newf(dErrors.CodeNotFound, "penalty %s does not exist or does not belong to this driver", attempt.PenaltyRef)
		case errors.Is(err, sentinel.ErrAlreadySettled):
			return nil, dErrors.Newf(dErrors.CodeAlreadySettled, "penalty %s is already settled", attempt.PenaltyRef)
		case errors.Is(err, sentinel.ErrInvalidState):
			return nil, dErrors.Newf(dErrors.CodeValidation, "attested amount does not match the fee for penalty %s", attempt.PenaltyRef)
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to record settlement")
		}
	}
	return payment, nil
}

// Complete applies the pending→completed transition only when the stored
// status still matches expected. A mismatch surfaces as stale state so racing
// admins never both believe they won.
func (s *Service) Complete(ctx context.Context, id domain.PaymentID, expected models.Status) (*models.Payment, error) {
	now := requestcontext.Now(ctx)
	actor := requestcontext.Actor(ctx)
	entry := audit.Entry{
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		Action:    audit.ActionPaymentCompleted,
		Details:   fmt.Sprintf("payment %s marked completed", id),
		CreatedAt: now,
	}

	if err := s.store.Complete(ctx, id, expected, entry); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.Newf(dErrors.CodeNotFound, "payment %s not found", id)
		case errors.Is(err, sentinel.ErrStale):
			return nil, dErrors.New(dErrors.CodeStaleState, "payment status changed since it was read")
		case errors.Is(err, sentinel.ErrAlreadySettled):
			return nil, dErrors.New(dErrors.CodeAlreadySettled, "penalty already has a completed payment")
		default:
			return nil, err
		}
	}
	return s.store.GetByID(ctx, id)
}

// Get returns one payment.
func (s *Service) Get(ctx context.Context, id domain.PaymentID) (*models.Payment, error) {
	payment, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "payment %s not found", id)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load payment")
	}
	return payment, nil
}

// HistoryByDriver returns the driver's payments, newest first.
func (s *Service) HistoryByDriver(ctx context.Context, driverID domain.DriverID) ([]*models.Payment, error) {
	payments, err := s.store.HistoryByDriver(ctx, driverID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load payment history")
	}
	return payments, nil
}

// List returns all payments for the admin view.
func (s *Service) List(ctx context.Context) ([]*models.Payment, error) {
	payments, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to list payments")
	}
	return payments, nil
}

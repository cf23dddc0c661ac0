package service

import (
	"context"
	"log/slog"
	"time"

	paymentmodels "citation/internal/payment/models"
	"citation/internal/platform/metrics"
	"citation/internal/platform/middleware"
	"citation/pkg/domain"
	dErrors "citation/pkg/domain-errors"
)

// PaymentCompleter is the payment-side CAS surface.
type PaymentCompleter interface {
	Complete(ctx context.Context, id domain.PaymentID, expected paymentmodels.Status) (*paymentmodels.Payment, error)
}

// DriverAdmin is the driver-side admin surface.
type DriverAdmin interface {
	SetVerified(ctx context.Context, id domain.DriverID) error
	SetLicenseExpiry(ctx context.Context, id domain.DriverID, date string) (time.Time, error)
}

// Service applies admin-driven state transitions. Every transition is
// compare-and-swap shaped: it only applies when the stored state still
// matches what the admin saw, so racing admins never both win.
type Service struct {
	payments   PaymentCompleter
	drivers    DriverAdmin
	casRetries int
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

func NewService(payments PaymentCompleter, drivers DriverAdmin, casRetries int, m *metrics.Metrics, logger *slog.Logger) *Service {
	if casRetries < 1 {
		casRetries = 1
	}
	return &Service{payments: payments, drivers: drivers, casRetries: casRetries, metrics: m, logger: logger}
}

// MarkPaymentCompleted transitions one payment to completed if its stored
// status still matches expected. Transient store errors are retried a bounded
// number of times; a stale read is never retried, the admin must re-read.
func (s *Service) MarkPaymentCompleted(ctx context.Context, id domain.PaymentID, expected paymentmodels.Status) (*paymentmodels.Payment, error) {
	var lastErr error
	for attempt := 1; attempt <= s.casRetries; attempt++ {
		payment, err := s.payments.Complete(ctx, id, expected)
		if err == nil {
			s.logger.InfoContext(ctx, "payment marked completed",
				"request_id", middleware.GetRequestID(ctx),
				"payment_id", id.String(),
			)
			return payment, nil
		}

		if dErrors.HasCode(err, dErrors.CodeStaleState) || dErrors.HasCode(err, dErrors.CodeAlreadySettled) {
			s.metrics.IncReconcileCASConflicts()
			return nil, err
		}
		if !dErrors.HasCode(err, dErrors.CodeUnavailable) {
			return nil, err
		}

		lastErr = err
		s.logger.WarnContext(ctx, "retrying payment completion after transient store error",
			"request_id", middleware.GetRequestID(ctx),
			"payment_id", id.String(),
			"attempt", attempt,
		)
	}
	return nil, lastErr
}

// VerifyDriver applies the one-way verified transition. Idempotent.
func (s *Service) VerifyDriver(ctx context.Context, id domain.DriverID) error {
	if err := s.drivers.SetVerified(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "driver verified",
		"request_id", middleware.GetRequestID(ctx),
		"driver_id", id.String(),
	)
	return nil
}

// AmendLicenseExpiry validates and stores a new license expiry date.
func (s *Service) AmendLicenseExpiry(ctx context.Context, id domain.DriverID, date string) (time.Time, error) {
	expiry, err := s.drivers.SetLicenseExpiry(ctx, id, date)
	if err != nil {
		return time.Time{}, err
	}
	s.logger.InfoContext(ctx, "license expiry amended",
		"request_id", middleware.GetRequestID(ctx),
		"driver_id", id.String(),
		"expiry", expiry.Format(domain.DateLayout),
	)
	return expiry, nil
}

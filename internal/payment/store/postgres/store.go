package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"citation/internal/audit"
	"citation/internal/payment/models"
	"citation/pkg/domain"
	"citation/pkg/platform/sentinel"
	txcontext "citation/pkg/platform/tx"
)

const uniqueViolation = "23505"

type auditAppender interface {
	Append(ctx context.Context, entry audit.Entry) error
}

// Store persists payments in PostgreSQL. A partial unique index on
// (penalty_id) WHERE status='completed' is the hard backstop for the
// one-completed-payment-per-penalty invariant; the in-transaction checks
// exist to produce precise error reasons.
type Store struct {
	db    *sql.DB
	audit auditAppender
}

func New(db *sql.DB, auditStore auditAppender) *Store {
	return &Store{db: db, audit: auditStore}
}

// Settle records one completed settlement. The penalty row is locked for the
// duration of the transaction so concurrent attempts against the same penalty
// serialize instead of both passing the settled check.
func (s *Store) Settle(ctx context.Context, payment *models.Payment, entry audit.Entry) error {
	return txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		tx, _ := txcontext.From(ctx)

		var (
			fee      int64
			driverID uuid.UUID
		)
		err := tx.QueryRowContext(ctx, `
			SELECT p.fee, t.driver_id
			FROM penalties p
			JOIN tickets t ON t.id = p.ticket_id
			WHERE p.id = $1
			FOR UPDATE OF p
		`, uuid.UUID(payment.PenaltyID)).Scan(&fee, &driverID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return sentinel.ErrNotFound
			}
			return fmt.Errorf("lock penalty: %w", err)
		}
		if domain.DriverID(driverID) != payment.DriverID {
			return sentinel.ErrNotFound
		}

		var settled bool
		err = tx.QueryRowContext(ctx, `
			SELECT EXISTS (SELECT 1 FROM payments WHERE penalty_id = $1 AND status = 'completed')
		`, uuid.UUID(payment.PenaltyID)).Scan(&settled)
		if err != nil {
			return fmt.Errorf("check settlement: %w", err)
		}
		if settled {
			return sentinel.ErrAlreadySettled
		}
		if payment.Amount != 0 && payment.Amount != fee {
			return sentinel.ErrInvalidState
		}

		payment.Amount = fee
		_, err = tx.ExecContext(ctx, `
			INSERT INTO payments (id, penalty_id, driver_id, amount, method,
			                      reference_attestation, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`,
			uuid.UUID(payment.ID),
			uuid.UUID(payment.PenaltyID),
			uuid.UUID(payment.DriverID),
			payment.Amount,
			payment.Method,
			payment.ReferenceAttestation,
			string(payment.Status),
			payment.CreatedAt,
		)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
				return sentinel.ErrAlreadySettled
			}
			return fmt.Errorf("insert payment: %w", err)
		}

		return s.audit.Append(ctx, entry)
	})
}

// Complete is the status CAS. The guarded UPDATE touches zero rows when the
// stored status no longer matches, which the caller surfaces as stale state
// after distinguishing a missing payment.
func (s *Store) Complete(ctx context.Context, id domain.PaymentID, expected models.Status, entry audit.Entry) error {
	return txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		tx, _ := txcontext.From(ctx)

		res, err := tx.ExecContext(ctx, `
			UPDATE payments SET status = 'completed'
			WHERE id = $1 AND status = $2 AND status <> 'completed'
		`, uuid.UUID(id), string(expected))
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
				return sentinel.ErrAlreadySettled
			}
			return fmt.Errorf("complete payment: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("complete payment: %w", err)
		}

		if affected == 0 {
			var exists bool
			if err := tx.QueryRowContext(ctx,
				`SELECT EXISTS (SELECT 1 FROM payments WHERE id = $1)`,
				uuid.UUID(id)).Scan(&exists); err != nil {
				return fmt.Errorf("check payment exists: %w", err)
			}
			if !exists {
				return sentinel.ErrNotFound
			}
			return sentinel.ErrStale
		}

		return s.audit.Append(ctx, entry)
	})
}

func (s *Store) GetByID(ctx context.Context, id domain.PaymentID) (*models.Payment, error) {
	payment, err := scanPayment(s.db.QueryRowContext(ctx, selectPayments+` WHERE id = $1`, uuid.UUID(id)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("query payment: %w", err)
	}
	return payment, nil
}

func (s *Store) HistoryByDriver(ctx context.Context, driverID domain.DriverID) ([]*models.Payment, error) {
	return s.list(ctx, selectPayments+` WHERE driver_id = $1 ORDER BY created_at DESC`, uuid.UUID(driverID))
}

func (s *Store) List(ctx context.Context) ([]*models.Payment, error) {
	return s.list(ctx, selectPayments+` ORDER BY created_at DESC`)
}

const selectPayments = `
	SELECT id, penalty_id, driver_id, amount, method,
	       reference_attestation, status, created_at
	FROM payments`

func (s *Store) list(ctx context.Context, query string, args ...any) ([]*models.Payment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query payments: %w", err)
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}
	return payments, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row rowScanner) (*models.Payment, error) {
	var (
		payment   models.Payment
		id        uuid.UUID
		penaltyID uuid.UUID
		driverID  uuid.UUID
		status    string
	)
	err := row.Scan(
		&id,
		&penaltyID,
		&driverID,
		&payment.Amount,
		&payment.Method,
		&payment.ReferenceAttestation,
		&status,
		&payment.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	payment.ID = domain.PaymentID(id)
	payment.PenaltyID = domain.PenaltyID(penaltyID)
	payment.DriverID = domain.DriverID(driverID)
	payment.Status = models.Status(status)
	return &payment, nil
}

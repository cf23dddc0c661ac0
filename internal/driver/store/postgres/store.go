package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"citation/internal/audit"
	"citation/internal/driver/models"
	"citation/pkg/domain"
	"citation/pkg/platform/sentinel"
	txcontext "citation/pkg/platform/tx"
)

const uniqueViolation = "23505"

type auditAppender interface {
	Append(ctx context.Context, entry audit.Entry) error
}

// Store persists drivers in PostgreSQL. Mutations run in one transaction with
// their audit entry; the audit store joins via the transaction in context.
type Store struct {
	db    *sql.DB
	audit auditAppender
}

func New(db *sql.DB, auditStore auditAppender) *Store {
	return &Store{db: db, audit: auditStore}
}

func (s *Store) Create(ctx context.Context, driver *models.Driver, entry audit.Entry) error {
	return txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		tx, _ := txcontext.From(ctx)
		query := `
			INSERT INTO drivers (id, full_name, license_number, license_status, license_expiry,
			                     birthday, email, phone_number, verified, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`
		_, err := tx.ExecContext(ctx, query,
			uuid.UUID(driver.ID),
			driver.FullName,
			driver.LicenseNumber,
			driver.LicenseStatus,
			driver.LicenseExpiry,
			driver.Birthday,
			driver.Email,
			driver.PhoneNumber,
			driver.Verified,
			driver.CreatedAt,
		)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
				return sentinel.ErrConflict
			}
			return fmt.Errorf("insert driver: %w", err)
		}
		return s.audit.Append(ctx, entry)
	})
}

func (s *Store) GetByID(ctx context.Context, id domain.DriverID) (*models.Driver, error) {
	return s.get(ctx, `WHERE id = $1`, uuid.UUID(id))
}

func (s *Store) GetByIdentity(ctx context.Context, fullName, licenseNumber string) (*models.Driver, error) {
	return s.get(ctx, `WHERE full_name = $1 AND license_number = $2`, fullName, licenseNumber)
}

func (s *Store) get(ctx context.Context, where string, args ...any) (*models.Driver, error) {
	query := `
		SELECT id, full_name, license_number, license_status, license_expiry,
		       birthday, email, phone_number, verified, created_at
		FROM drivers ` + where

	driver, err := scanDriver(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("query driver: %w", err)
	}
	return driver, nil
}

func (s *Store) List(ctx context.Context) ([]*models.Driver, error) {
	query := `
		SELECT id, full_name, license_number, license_status, license_expiry,
		       birthday, email, phone_number, verified, created_at
		FROM drivers
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list drivers: %w", err)
	}
	defer rows.Close()

	var drivers []*models.Driver
	for rows.Next() {
		driver, err := scanDriver(rows)
		if err != nil {
			return nil, fmt.Errorf("scan driver: %w", err)
		}
		drivers = append(drivers, driver)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate drivers: %w", err)
	}
	return drivers, nil
}

// MarkVerified flips the one-way flag. The guarded UPDATE makes concurrent
// verifications race-free: only the call that actually changed the row
// appends an audit entry.
func (s *Store) MarkVerified(ctx context.Context, id domain.DriverID, entry audit.Entry) (bool, error) {
	changed := false
	err := txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		tx, _ := txcontext.From(ctx)

		res, err := tx.ExecContext(ctx,
			`UPDATE drivers SET verified = TRUE WHERE id = $1 AND verified = FALSE`,
			uuid.UUID(id))
		if err != nil {
			return fmt.Errorf("mark driver verified: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("mark driver verified: %w", err)
		}

		if affected == 0 {
			var exists bool
			if err := tx.QueryRowContext(ctx,
				`SELECT EXISTS (SELECT 1 FROM drivers WHERE id = $1)`,
				uuid.UUID(id)).Scan(&exists); err != nil {
				return fmt.Errorf("check driver exists: %w", err)
			}
			if !exists {
				return sentinel.ErrNotFound
			}
			// Already verified: idempotent no-op, no audit entry.
			return nil
		}

		changed = true
		return s.audit.Append(ctx, entry)
	})
	return changed, err
}

func (s *Store) UpdateLicenseExpiry(ctx context.Context, id domain.DriverID, expiry time.Time, entry audit.Entry) error {
	return txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		tx, _ := txcontext.From(ctx)

		res, err := tx.ExecContext(ctx,
			`UPDATE drivers SET license_expiry = $2 WHERE id = $1`,
			uuid.UUID(id), expiry)
		if err != nil {
			return fmt.Errorf("update license expiry: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update license expiry: %w", err)
		}
		if affected == 0 {
			return sentinel.ErrNotFound
		}
		return s.audit.Append(ctx, entry)
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDriver(row rowScanner) (*models.Driver, error) {
	var (
		driver models.Driver
		id     uuid.UUID
	)
	err := row.Scan(
		&id,
		&driver.FullName,
		&driver.LicenseNumber,
		&driver.LicenseStatus,
		&driver.LicenseExpiry,
		&driver.Birthday,
		&driver.Email,
		&driver.PhoneNumber,
		&driver.Verified,
		&driver.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	driver.ID = domain.DriverID(id)
	return &driver, nil
}

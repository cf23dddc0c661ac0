package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"citation/internal/audit"
	"citation/internal/ticket/models"
	"citation/pkg/domain"
	"citation/pkg/platform/sentinel"
	txcontext "citation/pkg/platform/tx"
)

const uniqueViolation = "23505"

type auditAppender interface {
	Append(ctx context.Context, entry audit.Entry) error
}

// Store persists tickets and penalties in PostgreSQL. Create writes the
// ticket row, every penalty row, and the audit entry in one transaction; the
// Paid view on reads is derived from completed payments.
type Store struct {
	db    *sql.DB
	audit auditAppender
}

func New(db *sql.DB, auditStore auditAppender) *Store {
	return &Store{db: db, audit: auditStore}
}

func (s *Store) Create(ctx context.Context, ticket *models.Ticket, entry audit.Entry) error {
	return txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		tx, _ := txcontext.From(ctx)

		_, err := tx.ExecContext(ctx, `
			INSERT INTO tickets (id, officer_id, driver_id, plate_number, vehicle_type,
			                     vehicle_name, color, notes, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`,
			int64(ticket.ID),
			uuid.UUID(ticket.OfficerID),
			uuid.UUID(ticket.DriverID),
			ticket.Vehicle.PlateNumber,
			ticket.Vehicle.VehicleType,
			ticket.Vehicle.VehicleName,
			ticket.Vehicle.Color,
			ticket.Notes,
			ticket.CreatedAt,
		)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
				return sentinel.ErrConflict
			}
			return fmt.Errorf("insert ticket: %w", err)
		}

		for i, penalty := range ticket.Penalties {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO penalties (id, ticket_id, violation_type, fee, position)
				VALUES ($1, $2, $3, $4, $5)
			`,
				uuid.UUID(penalty.ID),
				int64(penalty.TicketID),
				penalty.ViolationType,
				penalty.Fee,
				i,
			)
			if err != nil {
				return fmt.Errorf("insert penalty: %w", err)
			}
		}

		return s.audit.Append(ctx, entry)
	})
}

func (s *Store) GetByID(ctx context.Context, id domain.TicketID) (*models.Ticket, error) {
	query := `
		SELECT id, officer_id, driver_id, plate_number, vehicle_type,
		       vehicle_name, color, notes, created_at
		FROM tickets
		WHERE id = $1
	`
	var (
		ticket    models.Ticket
		ticketID  int64
		officerID uuid.UUID
		driverID  uuid.UUID
	)
	err := s.db.QueryRowContext(ctx, query, int64(id)).Scan(
		&ticketID,
		&officerID,
		&driverID,
		&ticket.Vehicle.PlateNumber,
		&ticket.Vehicle.VehicleType,
		&ticket.Vehicle.VehicleName,
		&ticket.Vehicle.Color,
		&ticket.Notes,
		&ticket.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("query ticket: %w", err)
	}
	ticket.ID = domain.TicketID(ticketID)
	ticket.OfficerID = domain.OfficerID(officerID)
	ticket.DriverID = domain.DriverID(driverID)

	penalties, err := s.penaltiesForTicket(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}
	ticket.Penalties = penalties
	return &ticket, nil
}

func (s *Store) penaltiesForTicket(ctx context.Context, id domain.TicketID) ([]models.Penalty, error) {
	query := `
		SELECT p.id, p.ticket_id, p.violation_type, p.fee,
		       EXISTS (SELECT 1 FROM payments pay
		               WHERE pay.penalty_id = p.id AND pay.status = 'completed') AS paid
		FROM penalties p
		WHERE p.ticket_id = $1
		ORDER BY p.position
	`
	rows, err := s.db.QueryContext(ctx, query, int64(id))
	if err != nil {
		return nil, fmt.Errorf("query penalties: %w", err)
	}
	defer rows.Close()

	var penalties []models.Penalty
	for rows.Next() {
		var (
			penalty   models.Penalty
			penaltyID uuid.UUID
			ticketID  int64
		)
		if err := rows.Scan(&penaltyID, &ticketID, &penalty.ViolationType, &penalty.Fee, &penalty.Paid); err != nil {
			return nil, fmt.Errorf("scan penalty: %w", err)
		}
		penalty.ID = domain.PenaltyID(penaltyID)
		penalty.TicketID = domain.TicketID(ticketID)
		penalties = append(penalties, penalty)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate penalties: %w", err)
	}
	return penalties, nil
}

func (s *Store) PenaltiesByDriver(ctx context.Context, driverID domain.DriverID) ([]models.DriverPenalty, error) {
	query := `
		SELECT p.id, p.ticket_id, p.violation_type, p.fee, t.created_at,
		       EXISTS (SELECT 1 FROM payments pay
		               WHERE pay.penalty_id = p.id AND pay.status = 'completed') AS paid
		FROM penalties p
		JOIN tickets t ON t.id = p.ticket_id
		WHERE t.driver_id = $1
		ORDER BY t.created_at DESC, p.position
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(driverID))
	if err != nil {
		return nil, fmt.Errorf("query driver penalties: %w", err)
	}
	defer rows.Close()

	var penalties []models.DriverPenalty
	for rows.Next() {
		var (
			penalty   models.DriverPenalty
			penaltyID uuid.UUID
			ticketID  int64
		)
		if err := rows.Scan(&penaltyID, &ticketID, &penalty.ViolationType, &penalty.Fee, &penalty.IssuedAt, &penalty.Paid); err != nil {
			return nil, fmt.Errorf("scan driver penalty: %w", err)
		}
		penalty.PenaltyID = domain.PenaltyID(penaltyID)
		penalty.TicketID = domain.TicketID(ticketID)
		penalties = append(penalties, penalty)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate driver penalties: %w", err)
	}
	return penalties, nil
}

func (s *Store) ListViolationTypes(ctx context.Context) ([]models.ViolationType, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT code, name, fee FROM violation_types ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("query violation types: %w", err)
	}
	defer rows.Close()

	var types []models.ViolationType
	for rows.Next() {
		var vt models.ViolationType
		if err := rows.Scan(&vt.Code, &vt.Name, &vt.Fee); err != nil {
			return nil, fmt.Errorf("scan violation type: %w", err)
		}
		types = append(types, vt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate violation types: %w", err)
	}
	return types, nil
}

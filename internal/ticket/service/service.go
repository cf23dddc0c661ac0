package service

import (
	"context"
	"errors"
	"fmt"

	"citation/internal/audit"
	drivermodels "citation/internal/driver/models"
	"citation/internal/platform/metrics"
	"citation/internal/ticket/models"
	"citation/pkg/domain"
	dErrors "citation/pkg/domain-errors"
	"citation/pkg/platform/sentinel"
	"citation/pkg/requestcontext"
)

// Store is the ticket registry persistence contract. Create commits the
// ticket, its penalties, and the audit entry in one atomic unit.
type Store interface {
	Create(ctx context.Context, ticket *models.Ticket, entry audit.Entry) error
	GetByID(ctx context.Context, id domain.TicketID) (*models.Ticket, error)
	PenaltiesByDriver(ctx context.Context, driverID domain.DriverID) ([]models.DriverPenalty, error)
	ListViolationTypes(ctx context.Context) ([]models.ViolationType, error)
}

// DriverDirectory resolves officer-entered identity to a driver account.
type DriverDirectory interface {
	Lookup(ctx context.Context, fullName, licenseNumber string) (*drivermodels.Driver, bool, error)
}

// ScheduleCache is a read-through cache over the violation-type fee schedule.
// A miss or a cache error falls back to the store.
type ScheduleCache interface {
	Get(ctx context.Context) ([]models.ViolationType, bool)
	Set(ctx context.Context, types []models.ViolationType)
}

// Service owns ticket registration and reads.
type Service struct {
	store   Store
	drivers DriverDirectory
	cache   ScheduleCache
	metrics *metrics.Metrics
}

func NewService(store Store, drivers DriverDirectory, cache ScheduleCache, m *metrics.Metrics) *Service {
	if cache == nil {
		cache = noopCache{}
	}
	return &Service{store: store, drivers: drivers, cache: cache, metrics: m}
}

// RegisterTicket validates the officer's submission, re-resolves the driver,
// and persists the ticket with its penalties and audit entry atomically. The
// ticket id must come from the allocator; reusing one fails with a conflict.
func (s *Service) RegisterTicket(ctx context.Context, in models.RegisterInput) (*models.Ticket, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	driver, found, err := s.drivers.Lookup(ctx, in.DriverName, in.LicenseNumber)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, dErrors.New(dErrors.CodeDriverNotFound, "no driver matches the submitted name and license number")
	}

	now := requestcontext.Now(ctx)
	ticket := &models.Ticket{
		ID:        in.TicketID,
		OfficerID: in.OfficerID,
		DriverID:  driver.ID,
		Vehicle:   in.Vehicle,
		Notes:     in.Notes,
		CreatedAt: now,
	}
	ticket.Penalties = make([]models.Penalty, 0, len(in.Penalties))
	for _, p := range in.Penalties {
		ticket.Penalties = append(ticket.Penalties, models.Penalty{
			ID:            domain.NewPenaltyID(),
			TicketID:      in.TicketID,
			ViolationType: p.ViolationType,
			Fee:           p.Fee,
		})
	}

	actor := requestcontext.Actor(ctx)
	entry := audit.Entry{
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		Action:    audit.ActionTicketRegistered,
		Details:   fmt.Sprintf("ticket %d registered for driver %s with %d penalties", ticket.ID, driver.ID, len(ticket.Penalties)),
		CreatedAt: now,
	}

	if err := s.store.Create(ctx, ticket, entry); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Newf(dErrors.CodeDuplicateTicket, "ticket id %d already registered", ticket.ID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to register ticket")
	}

	s.metrics.IncTicketsRegistered()
	return ticket, nil
}

// Get returns one ticket with its penalties in creation order.
func (s *Service) Get(ctx context.Context, id domain.TicketID) (*models.Ticket, error) {
	ticket, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "ticket %d not found", id)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load ticket")
	}
	return ticket, nil
}

// PenaltiesByDriver returns every penalty issued against the driver, newest
// ticket first, with settlement state.
func (s *Service) PenaltiesByDriver(ctx context.Context, driverID domain.DriverID) ([]models.DriverPenalty, error) {
	penalties, err := s.store.PenaltiesByDriver(ctx, driverID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load driver penalties")
	}
	return penalties, nil
}

// ViolationTypes returns the current fee schedule through the cache.
func (s *Service) ViolationTypes(ctx context.Context) ([]models.ViolationType, error) {
	if types, ok := s.cache.Get(ctx); ok {
		return types, nil
	}
	types, err := s.store.ListViolationTypes(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load violation types")
	}
	s.cache.Set(ctx, types)
	return types, nil
}

type noopCache struct{}

func (noopCache) Get(context.Context) ([]models.ViolationType, bool) { return nil, false }
func (noopCache) Set(context.Context, []models.ViolationType)       {}

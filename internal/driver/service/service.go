package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"citation/internal/audit"
	"citation/internal/driver/models"
	"citation/pkg/domain"
	dErrors "citation/pkg/domain-errors"
	"citation/pkg/platform/sentinel"
	"citation/pkg/requestcontext"
)

// Store is the driver directory persistence contract. Methods that mutate take
// the audit entry that must commit in the same atomic unit.
type Store interface {
	Create(ctx context.Context, driver *models.Driver, entry audit.Entry) error
	GetByID(ctx context.Context, id domain.DriverID) (*models.Driver, error)
	GetByIdentity(ctx context.Context, fullName, licenseNumber string) (*models.Driver, error)
	List(ctx context.Context) ([]*models.Driver, error)
	// MarkVerified flips the one-way flag. Returns false when the driver was
	// already verified; the store appends the entry only on an actual change.
	MarkVerified(ctx context.Context, id domain.DriverID, entry audit.Entry) (changed bool, err error)
	UpdateLicenseExpiry(ctx context.Context, id domain.DriverID, expiry time.Time, entry audit.Entry) error
}

// Service owns driver identity and verification state.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Lookup resolves an officer-entered name/license pair by exact match. A miss
// is a fact, not an error; registration layers decide how to surface it.
func (s *Service) Lookup(ctx context.Context, fullName, licenseNumber string) (*models.Driver, bool, error) {
	if fullName == "" || licenseNumber == "" {
		return nil, false, dErrors.New(dErrors.CodeValidation, "full name and license number are required")
	}
	driver, err := s.store.GetByIdentity(ctx, fullName, licenseNumber)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to look up driver")
	}
	return driver, true, nil
}

// Register creates a driver account. License numbers are unique.
func (s *Service) Register(ctx context.Context, in models.RegisterInput) (*models.Driver, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	driver := &models.Driver{
		ID:            domain.NewDriverID(),
		FullName:      in.FullName,
		LicenseNumber: in.LicenseNumber,
		LicenseStatus: models.LicenseStatusActive,
		Email:         in.Email,
		PhoneNumber:   in.PhoneNumber,
		Verified:      false,
		CreatedAt:     now,
	}
	if in.Birthday != "" {
		birthday, err := domain.ParseDate(in.Birthday)
		if err != nil {
			return nil, err
		}
		driver.Birthday = &birthday
	}

	entry := s.entry(ctx, audit.ActionDriverRegistered,
		fmt.Sprintf("driver %s registered (license %s)", driver.ID, driver.LicenseNumber), now)
	if err := s.store.Create(ctx, driver, entry); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "license number already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to register driver")
	}
	return driver, nil
}

// Get returns one driver.
func (s *Service) Get(ctx context.Context, id domain.DriverID) (*models.Driver, error) {
	driver, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeDriverNotFound, "driver not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load driver")
	}
	return driver, nil
}

// List returns all drivers for the admin dashboard.
func (s *Service) List(ctx context.Context) ([]*models.Driver, error) {
	drivers, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to list drivers")
	}
	return drivers, nil
}

// SetVerified performs the one-way unverified→verified transition. Calling it
// on an already-verified driver is a no-op success and writes no audit entry.
func (s *Service) SetVerified(ctx context.Context, id domain.DriverID) error {
	now := requestcontext.Now(ctx)
	entry := s.entry(ctx, audit.ActionDriverVerified,
		fmt.Sprintf("driver %s verified", id), now)

	_, err := s.store.MarkVerified(ctx, id, entry)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeDriverNotFound, "driver not found")
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to verify driver")
	}
	return nil
}

// SetLicenseExpiry validates the date shape and updates the stored expiry.
func (s *Service) SetLicenseExpiry(ctx context.Context, id domain.DriverID, date string) (time.Time, error) {
	expiry, err := domain.ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}

	now := requestcontext.Now(ctx)
	entry := s.entry(ctx, audit.ActionLicenseExpiryAmended,
		fmt.Sprintf("driver %s license expiry set to %s", id, date), now)

	if err := s.store.UpdateLicenseExpiry(ctx, id, expiry, entry); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return time.Time{}, dErrors.New(dErrors.CodeDriverNotFound, "driver not found")
		}
		return time.Time{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to update license expiry")
	}
	return expiry, nil
}

func (s *Service) entry(ctx context.Context, action audit.Action, details string, now time.Time) audit.Entry {
	actor := requestcontext.Actor(ctx)
	return audit.Entry{
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		Action:    action,
		Details:   details,
		CreatedAt: now,
	}
}

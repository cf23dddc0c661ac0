package memory

import (
	"context"
	"sync"
	"time"

	"citation/internal/audit"
	"citation/internal/driver/models"
	"citation/pkg/domain"
	"citation/pkg/platform/sentinel"
)

type auditAppender interface {
	Append(ctx context.Context, entry audit.Entry) error
}

// Store is the in-memory driver directory used in unit tests and local runs.
// The audit entry is appended before the mutation under the store lock, so a
// failing ledger write leaves the directory untouched, mirroring the postgres
// store's transactional behavior.
type Store struct {
	mu      sync.RWMutex
	drivers map[domain.DriverID]*models.Driver
	audit   auditAppender
}

func New(auditStore auditAppender) *Store {
	return &Store{
		drivers: make(map[domain.DriverID]*models.Driver),
		audit:   auditStore,
	}
}

func (s *Store) Create(ctx context.Context, driver *models.Driver, entry audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.drivers {
		if existing.LicenseNumber == driver.LicenseNumber {
			return sentinel.ErrConflict
		}
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		return err
	}
	clone := *driver
	s.drivers[driver.ID] = &clone
	return nil
}

func (s *Store) GetByID(_ context.Context, id domain.DriverID) (*models.Driver, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	driver, ok := s.drivers[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *driver
	return &clone, nil
}

func (s *Store) GetByIdentity(_ context.Context, fullName, licenseNumber string) (*models.Driver, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, driver := range s.drivers {
		if driver.FullName == fullName && driver.LicenseNumber == licenseNumber {
			clone := *driver
			return &clone, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *Store) List(_ context.Context) ([]*models.Driver, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	drivers := make([]*models.Driver, 0, len(s.drivers))
	for _, driver := range s.drivers {
		clone := *driver
		drivers = append(drivers, &clone)
	}
	return drivers, nil
}

func (s *Store) MarkVerified(ctx context.Context, id domain.DriverID, entry audit.Entry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	driver, ok := s.drivers[id]
	if !ok {
		return false, sentinel.ErrNotFound
	}
	if driver.Verified {
		return false, nil
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		return false, err
	}
	driver.Verified = true
	return true, nil
}

func (s *Store) UpdateLicenseExpiry(ctx context.Context, id domain.DriverID, expiry time.Time, entry audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	driver, ok := s.drivers[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		return err
	}
	driver.LicenseExpiry = &expiry
	return nil
}

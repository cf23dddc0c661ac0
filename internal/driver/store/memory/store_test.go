package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"citation/internal/audit"
	auditmem "citation/internal/audit/store/memory"
	"citation/internal/driver/models"
	"citation/pkg/domain"
	"citation/pkg/platform/sentinel"
)

func newDriver(license string) *models.Driver {
	return &models.Driver{
		ID:            domain.NewDriverID(),
		FullName:      "Juan Dela Cruz",
		LicenseNumber: license,
		LicenseStatus: models.LicenseStatusActive,
		CreatedAt:     time.Now(),
	}
}

func TestStore_Create_DuplicateLicense(t *testing.T) {
	ledger := auditmem.New()
	store := New(ledger)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newDriver("N01-23-456789"), audit.Entry{Action: audit.ActionDriverRegistered}))

	err := store.Create(ctx, newDriver("N01-23-456789"), audit.Entry{Action: audit.ActionDriverRegistered})
	assert.ErrorIs(t, err, sentinel.ErrConflict)
	assert.Equal(t, 1, ledger.Len(), "rejected create must not write to the ledger")
}

func TestStore_Create_AuditFailureLeavesDirectoryUntouched(t *testing.T) {
	ledger := auditmem.New()
	store := New(ledger)
	ctx := context.Background()

	ledger.FailNextAppend(errors.New("ledger down"))
	driver := newDriver("N01-23-456789")
	require.Error(t, store.Create(ctx, driver, audit.Entry{Action: audit.ActionDriverRegistered}))

	_, err := store.GetByID(ctx, driver.ID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestStore_MarkVerified(t *testing.T) {
	ledger := auditmem.New()
	store := New(ledger)
	ctx := context.Background()

	driver := newDriver("N01-23-456789")
	require.NoError(t, store.Create(ctx, driver, audit.Entry{Action: audit.ActionDriverRegistered}))

	changed, err := store.MarkVerified(ctx, driver.ID, audit.Entry{Action: audit.ActionDriverVerified})
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = store.MarkVerified(ctx, driver.ID, audit.Entry{Action: audit.ActionDriverVerified})
	require.NoError(t, err)
	assert.False(t, changed, "second verify is a no-op")
	assert.Equal(t, 2, ledger.Len(), "register + one verify entry only")

	_, err = store.MarkVerified(ctx, domain.NewDriverID(), audit.Entry{})
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestStore_GetByIdentity(t *testing.T) {
	store := New(auditmem.New())
	ctx := context.Background()

	driver := newDriver("N01-23-456789")
	require.NoError(t, store.Create(ctx, driver, audit.Entry{}))

	got, err := store.GetByIdentity(ctx, "Juan Dela Cruz", "N01-23-456789")
	require.NoError(t, err)
	assert.Equal(t, driver.ID, got.ID)

	_, err = store.GetByIdentity(ctx, "Juan Dela Cruz", "wrong")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestStore_ReadsReturnClones(t *testing.T) {
	store := New(auditmem.New())
	ctx := context.Background()

	driver := newDriver("N01-23-456789")
	require.NoError(t, store.Create(ctx, driver, audit.Entry{}))

	got, err := store.GetByID(ctx, driver.ID)
	require.NoError(t, err)
	got.FullName = "mutated"

	again, err := store.GetByID(ctx, driver.ID)
	require.NoError(t, err)
	assert.Equal(t, "Juan Dela Cruz", again.FullName)
}

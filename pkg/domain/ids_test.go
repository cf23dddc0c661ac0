package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "citation/pkg/domain-errors"
)

// TestParseUUID_Invariants validates the parsing invariant:
// "IDs must be valid, non-empty, non-nil UUIDs".
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseDriverID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseDriverID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParsePaymentID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseDriverID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, DriverID(validUUID), id)
	})
}

func TestParseTicketID(t *testing.T) {
	t.Run("accepts positive integers", func(t *testing.T) {
		id, err := ParseTicketID("42")
		require.NoError(t, err)
		assert.Equal(t, TicketID(42), id)
	})

	for _, bad := range []string{"", "0", "-1", "abc", "1.5"} {
		t.Run("rejects "+bad, func(t *testing.T) {
			_, err := ParseTicketID(bad)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		})
	}
}

func TestParseDate(t *testing.T) {
	t.Run("accepts YYYY-MM-DD", func(t *testing.T) {
		d, err := ParseDate("2027-06-30")
		require.NoError(t, err)
		assert.Equal(t, 2027, d.Year())
	})

	// Out-of-range components must be rejected, never normalized.
	for _, bad := range []string{"2025-13-40", "2025-02-30", "06/30/2027", "2027-6-3", ""} {
		t.Run("rejects "+bad, func(t *testing.T) {
			_, err := ParseDate(bad)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidDate))
		})
	}
}

// TestTypeDistinction verifies the compiler enforces type safety.
// This is a compile-time check - if this compiles, the invariant holds.
func TestTypeDistinction(t *testing.T) {
	driverID := DriverID(uuid.New())
	officerID := OfficerID(uuid.New())

	// These would fail to compile if types were interchangeable:
	// var _ DriverID = officerID   // compile error
	// var _ OfficerID = driverID   // compile error

	assert.NotEqual(t, uuid.UUID(driverID), uuid.UUID(officerID))
}

func TestParseRole(t *testing.T) {
	for _, ok := range []string{"officer", "driver", "admin"} {
		r, err := ParseRole(ok)
		require.NoError(t, err)
		assert.Equal(t, ok, r.String())
	}
	_, err := ParseRole("superuser")
	require.Error(t, err)
}

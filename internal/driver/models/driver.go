package models

import (
	"strings"
	"time"

	"citation/pkg/domain"
	dErrors "citation/pkg/domain-errors"
)

// Driver is an account in the driver directory. Tickets reference drivers but
// never own them. The Verified flag moves unverified→verified exactly once;
// license status and expiry are admin-mutable.
type Driver struct {
	ID            domain.DriverID
	FullName      string
	LicenseNumber string
	LicenseStatus string
	LicenseExpiry *time.Time
	Birthday      *time.Time
	Email         string
	PhoneNumber   string
	Verified      bool
	CreatedAt     time.Time
}

// LicenseStatusActive is the status assigned at registration.
const LicenseStatusActive = "active"

// RegisterInput is the payload for creating a driver account. Credentials and
// license images are handled outside this core.
type RegisterInput struct {
	FullName      string
	LicenseNumber string
	Birthday      string
	Email         string
	PhoneNumber   string
}

// Validate checks required fields and the birthday shape.
func (in RegisterInput) Validate() error {
	if strings.TrimSpace(in.FullName) == "" {
		return dErrors.New(dErrors.CodeValidation, "full name is required")
	}
	if strings.TrimSpace(in.LicenseNumber) == "" {
		return dErrors.New(dErrors.CodeValidation, "license number is required")
	}
	if strings.TrimSpace(in.Email) == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if in.Birthday != "" {
		if _, err := domain.ParseDate(in.Birthday); err != nil {
			return err
		}
	}
	return nil
}

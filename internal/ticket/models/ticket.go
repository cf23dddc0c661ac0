package models

import (
	"strings"
	"time"

	"citation/pkg/domain"
	dErrors "citation/pkg/domain-errors"
)

// Ticket is the aggregate root: one officer-issued violation record owning an
// ordered, non-empty set of penalty line items. The identifier is allocator-
// issued and immutable; the penalty set is fixed at creation.
type Ticket struct {
	ID        domain.TicketID
	OfficerID domain.OfficerID
	DriverID  domain.DriverID
	Vehicle   VehicleInfo
	Notes     string
	Penalties []Penalty
	CreatedAt time.Time
}

// VehicleInfo captures officer-entered vehicle attributes.
type VehicleInfo struct {
	PlateNumber string
	VehicleType string
	VehicleName string
	Color       string
}

// Penalty is one chargeable line item. Fee is centavos, frozen at issuance;
// Paid is derived from the existence of a completed payment.
type Penalty struct {
	ID            domain.PenaltyID
	TicketID      domain.TicketID
	ViolationType string
	Fee           int64
	Paid          bool
}

// PenaltyInput is the request shape for one penalty at registration time.
type PenaltyInput struct {
	ViolationType string
	Fee           int64
}

// ViolationType is one row of the fee schedule. Fees here are current values;
// penalties freeze the fee charged at issuance.
type ViolationType struct {
	Code string
	Name string
	Fee  int64
}

// DriverPenalty is the driver-facing view of one outstanding or settled
// penalty together with its ticket context.
type DriverPenalty struct {
	PenaltyID     domain.PenaltyID
	TicketID      domain.TicketID
	ViolationType string
	Fee           int64
	Paid          bool
	IssuedAt      time.Time
}

// RegisterInput is the full ticket registration payload.
type RegisterInput struct {
	TicketID      domain.TicketID
	OfficerID     domain.OfficerID
	DriverName    string
	LicenseNumber string
	Vehicle       VehicleInfo
	Notes         string
	Penalties     []PenaltyInput
}

// Validate enforces registration preconditions: a positive allocator-issued
// ticket id, a non-empty penalty list, and well-formed line items.
func (in RegisterInput) Validate() error {
	if in.TicketID <= 0 {
		return dErrors.New(dErrors.CodeValidation, "ticket id is required")
	}
	if in.OfficerID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "officer id is required")
	}
	if strings.TrimSpace(in.DriverName) == "" || strings.TrimSpace(in.LicenseNumber) == "" {
		return dErrors.New(dErrors.CodeValidation, "driver name and license number are required")
	}
	if strings.TrimSpace(in.Vehicle.PlateNumber) == "" {
		return dErrors.New(dErrors.CodeValidation, "plate number is required")
	}
	if len(in.Penalties) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one penalty is required")
	}
	for i, p := range in.Penalties {
		if strings.TrimSpace(p.ViolationType) == "" {
			return dErrors.Newf(dErrors.CodeValidation, "penalty %d: violation type is required", i)
		}
		if p.Fee < 0 {
			return dErrors.Newf(dErrors.CodeValidation, "penalty %d: fee must be non-negative", i)
		}
	}
	return nil
}

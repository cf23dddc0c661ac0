// Package domain holds typed identifiers and small domain primitives shared
// across modules. Typed IDs prevent cross-type assignment at compile time;
// parse functions enforce validity at trust boundaries.
package domain

import (
	"strconv"

	"github.com/google/uuid"

	dErrors "citation/pkg/domain-errors"
)

// DriverID identifies a driver account.
type DriverID uuid.UUID

// OfficerID identifies the issuing law officer.
type OfficerID uuid.UUID

// PenaltyID identifies a single penalty line item.
type PenaltyID uuid.UUID

// PaymentID identifies a settlement record.
type PaymentID uuid.UUID

// TicketID is the allocator-issued sequential ticket number. Strictly
// increasing and unique; gaps are permitted.
type TicketID int64

func (id DriverID) String() string  { return uuid.UUID(id).String() }
func (id OfficerID) String() string { return uuid.UUID(id).String() }
func (id PenaltyID) String() string { return uuid.UUID(id).String() }
func (id PaymentID) String() string { return uuid.UUID(id).String() }
func (id TicketID) String() string  { return strconv.FormatInt(int64(id), 10) }

func (id DriverID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id OfficerID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id PenaltyID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id PaymentID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func parseUUID(s, what string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, what+" must not be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, "invalid "+what)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, what+" must not be nil")
	}
	return u, nil
}

// ParseDriverID validates and returns a DriverID.
func ParseDriverID(s string) (DriverID, error) {
	u, err := parseUUID(s, "driver id")
	return DriverID(u), err
}

// ParseOfficerID validates and returns an OfficerID.
func ParseOfficerID(s string) (OfficerID, error) {
	u, err := parseUUID(s, "officer id")
	return OfficerID(u), err
}

// ParsePenaltyID validates and returns a PenaltyID.
func ParsePenaltyID(s string) (PenaltyID, error) {
	u, err := parseUUID(s, "penalty id")
	return PenaltyID(u), err
}

// ParsePaymentID validates and returns a PaymentID.
func ParsePaymentID(s string) (PaymentID, error) {
	u, err := parseUUID(s, "payment id")
	return PaymentID(u), err
}

// ParseTicketID validates and returns a TicketID. Ticket numbers are positive.
func ParseTicketID(s string) (TicketID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, dErrors.New(dErrors.CodeValidation, "invalid ticket id")
	}
	return TicketID(n), nil
}

// NewDriverID allocates a fresh DriverID.
func NewDriverID() DriverID { return DriverID(uuid.New()) }

// NewOfficerID allocates a fresh OfficerID.
func NewOfficerID() OfficerID { return OfficerID(uuid.New()) }

// NewPenaltyID allocates a fresh PenaltyID.
func NewPenaltyID() PenaltyID { return PenaltyID(uuid.New()) }

// NewPaymentID allocates a fresh PaymentID.
func NewPaymentID() PaymentID { return PaymentID(uuid.New()) }

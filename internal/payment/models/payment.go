package models

import (
	"strings"
	"time"

	"citation/pkg/domain"
	dErrors "citation/pkg/domain-errors"
)

// Status is a payment's lifecycle state. Completed is terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// ParseStatus validates a wire status value.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusCompleted:
		return Status(s), nil
	default:
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown payment status %q", s)
	}
}

// Payment is one settlement record against a penalty. Amount is centavos,
// copied from the penalty fee at settlement time. ReferenceAttestation is the
// external proof-of-payment reference the driver submitted.
type Payment struct {
	ID                   domain.PaymentID
	PenaltyID            domain.PenaltyID
	DriverID             domain.DriverID
	Amount               int64
	Method               string
	ReferenceAttestation string
	Status               Status
	CreatedAt            time.Time
}

// SettlementAttempt is one element of a settlement batch. PenaltyRef holds
// the penalty reference exactly as the caller submitted it; resolution
// happens per attempt so a bad reference fails alone. Amount is the attested
// amount paid in centavos and must match the penalty's frozen fee; zero means
// the caller did not attest an amount.
type SettlementAttempt struct {
	PenaltyRef           string
	Method               string
	ReferenceAttestation string
	Amount               int64
}

// Validate checks one attempt's shape. A malformed attempt fails alone; it
// never aborts the batch.
func (a SettlementAttempt) Validate() error {
	if strings.TrimSpace(a.PenaltyRef) == "" {
		return dErrors.New(dErrors.CodeValidation, "penalty reference is required")
	}
	if strings.TrimSpace(a.Method) == "" {
		return dErrors.New(dErrors.CodeValidation, "payment method is required")
	}
	if strings.TrimSpace(a.ReferenceAttestation) == "" {
		return dErrors.New(dErrors.CodeValidation, "reference attestation is required")
	}
	if a.Amount < 0 {
		return dErrors.New(dErrors.CodeValidation, "amount must not be negative")
	}
	return nil
}

// FailedAttempt reports one attempt that did not settle and why. PenaltyRef
// echoes the submitted reference verbatim so the caller can retry exactly
// the attempts that failed. Reason values are the wire-stable error codes.
type FailedAttempt struct {
	PenaltyRef string
	Reason     string
	Message    string
}

// SettlementResult partitions a batch outcome. Order within each list follows
// the submitted attempt order.
type SettlementResult struct {
	Succeeded []*Payment
	Failed    []FailedAttempt
}

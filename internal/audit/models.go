// Package audit defines the append-only mutation ledger. Every mutating
// operation in the core writes exactly one entry, committed in the same
// atomic unit as the data it describes.
package audit

import (
	"time"

	"github.com/google/uuid"

	"citation/pkg/domain"
)

// Action names one kind of mutation. Values are wire- and storage-stable.
type Action string

const (
	ActionTicketRegistered     Action = "ticket_registered"
	ActionPaymentSettled       Action = "payment_settled"
	ActionPaymentCompleted     Action = "payment_completed"
	ActionDriverRegistered     Action = "driver_registered"
	ActionDriverVerified       Action = "driver_verified"
	ActionLicenseExpiryAmended Action = "license_expiry_amended"
)

// Entry is one immutable ledger record. Seq is the true order key, assigned
// by the store at commit; CreatedAt is display-only and may suffer wall-clock
// skew across instances.
type Entry struct {
	Seq       int64
	ID        uuid.UUID
	ActorID   string
	ActorRole domain.Role
	Action    Action
	Details   string
	CreatedAt time.Time
}

// Filter narrows a ledger query. Zero values mean "no constraint".
type Filter struct {
	ActorID  string
	SinceSeq int64 // return entries with Seq > SinceSeq
	Limit    int
}

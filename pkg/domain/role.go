package domain

import dErrors "citation/pkg/domain-errors"

// Role is the actor role resolved by the external login system. The core only
// checks it; it never authenticates.
type Role string

const (
	RoleOfficer Role = "officer"
	RoleDriver  Role = "driver"
	RoleAdmin   Role = "admin"
)

// ParseRole validates a role string from a token claim.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleOfficer, RoleDriver, RoleAdmin:
		return Role(s), nil
	}
	return "", dErrors.New(dErrors.CodeValidation, "unknown role: "+s)
}

func (r Role) String() string { return string(r) }

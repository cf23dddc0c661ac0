package domain

import (
	"time"

	dErrors "citation/pkg/domain-errors"
)

// DateLayout is the wire format for calendar dates (license expiry, birthday).
const DateLayout = "2006-01-02"

// ParseDate validates a YYYY-MM-DD date string. Out-of-range components
// (month 13, day 40) are rejected, not normalized.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, dErrors.New(dErrors.CodeInvalidDate, "date must be YYYY-MM-DD")
	}
	return t, nil
}

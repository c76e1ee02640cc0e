package domain

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

// DateLayout is the calendar date format accepted at the chat and CLI boundary.
const DateLayout = "2006-01-02"

// ToCanonical maps a calendar date to UTC midnight of that date. Every date the
// stores persist goes through here.
func ToCanonical(d civil.Date) time.Time {
	return d.In(time.UTC)
}

// ToDate is the inverse of ToCanonical. The timestamp is read in UTC, so a
// stored UTC-midnight value round-trips exactly.
func ToDate(t time.Time) civil.Date {
	return civil.DateOf(t.UTC())
}

func ParseDate(s string) (civil.Date, error) {
	d, err := civil.ParseDate(s)
	if err != nil {
		return civil.Date{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrInvalid, s)
	}
	return d, nil
}

func FormatDate(d civil.Date) string {
	return d.String()
}

// DaysBetween returns the number of days from a to b (negative when b is earlier).
func DaysBetween(a, b civil.Date) int {
	return b.DaysSince(a)
}

package core

import (
	"strings"
	"time"
)

const monthLayout = "2006-01"

// Month is a calendar month in YYYY-MM form.
type Month string

func ParseMonth(s string) (Month, error) {
	s = strings.TrimSpace(s)
	if len(s) != len(monthLayout) {
		return "", ErrInvalidMonth
	}
	if _, err := time.Parse(monthLayout, s); err != nil {
		return "", ErrInvalidMonth
	}
	return Month(s), nil
}

// CurrentMonth is the month containing now.
func CurrentMonth(now time.Time) Month {
	return Month(now.Format(monthLayout))
}

// Contains reports whether an ISO date string falls in the month. Only the
// prefix is compared, matching how the ledger feed is filtered.
func (m Month) Contains(date string) bool {
	return m != "" && strings.HasPrefix(date, string(m))
}

func (m Month) String() string { return string(m) }

// Validate checks the YYYY-MM shape.
func (m Month) Validate() error {
	_, err := ParseMonth(string(m))
	return err
}

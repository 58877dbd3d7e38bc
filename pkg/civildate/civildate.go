// Package civildate parses and renders calendar dates the way asset records carry them.
//
// Dates are calendar dates, not instants: no timezone is ever attached.
package civildate

import (
	"strings"
	"time"

	"github.com/golang-sql/civil"
)

// Layouts accept one- or two-digit day and month, four-digit year.
const (
	layoutDMY = "2-1-2006"
	layoutISO = "2006-1-2"
)

// Parse accepts dd-mm-yyyy or yyyy-mm-dd. ok=false means the value is not parseable.
func Parse(raw string) (civil.Date, bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return civil.Date{}, false
	}
	for _, layout := range []string{layoutDMY, layoutISO} {
		if t, err := time.Parse(layout, value); err == nil {
			return civil.DateOf(t), true
		}
	}
	return civil.Date{}, false
}

// ParseDMY accepts dd-mm-yyyy only. Spreadsheet date columns are read with it.
func ParseDMY(raw string) (civil.Date, bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return civil.Date{}, false
	}
	t, err := time.Parse(layoutDMY, value)
	if err != nil {
		return civil.Date{}, false
	}
	return civil.DateOf(t), true
}

// ParseLoose additionally accepts dd/mm/yyyy and a trailing clock time; used for
// display sorting and exports where legacy values may carry either shape.
func ParseLoose(raw string) (civil.Date, bool) {
	if d, ok := Parse(raw); ok {
		return d, true
	}
	value := strings.TrimSpace(raw)
	for _, layout := range []string{"2/1/2006", "2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return civil.DateOf(t), true
		}
	}
	return civil.Date{}, false
}

// FormatDMY renders d as dd-mm-yyyy.
func FormatDMY(d civil.Date) string {
	return d.In(time.UTC).Format("02-01-2006")
}

// Today is the calendar date of now in now's own location.
func Today(now time.Time) civil.Date {
	return civil.DateOf(now)
}

// IsFuture reports whether d is strictly after the calendar date of now.
func IsFuture(d civil.Date, now time.Time) bool {
	return d.After(Today(now))
}

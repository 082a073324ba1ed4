// Package date handles calendar dates given on the command line, such as
// ticket deadlines.
package date

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const format = "2006-01-02"

// Date represents a calendar date without time of day.
type Date struct {
	time.Time
}

// New creates a Date from year, month, day at midnight in loc.
func New(year int, month time.Month, day int, loc *time.Location) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, loc)}
}

// Of returns the calendar day of t in t's location.
func Of(t time.Time) Date {
	return New(t.Year(), t.Month(), t.Day(), t.Location())
}

// Today returns today's date in the local time zone.
func Today() Date {
	return Of(time.Now())
}

// Parse parses a YYYY-MM-DD string into a Date at midnight in loc.
func Parse(s string, loc *time.Location) (Date, error) {
	t, err := time.ParseInLocation(format, s, loc)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return Date{t}, nil
}

// ParseInput accepts YYYY-MM-DD, "today", "tomorrow", or "+N" / "+Nd" for
// N days after now's date.
func ParseInput(s string, now time.Time) (Date, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	today := Of(now)
	switch s {
	case "today":
		return today, nil
	case "tomorrow":
		return today.AddDays(1), nil
	}
	if rest, ok := strings.CutPrefix(s, "+"); ok {
		n, err := strconv.Atoi(strings.TrimSuffix(rest, "d"))
		if err != nil || n < 0 {
			return Date{}, fmt.Errorf("invalid relative date %q: expected +N or +Nd", s)
		}
		return today.AddDays(n), nil
	}
	return Parse(s, now.Location())
}

// AddDays returns the date n calendar days later.
func (d Date) AddDays(n int) Date {
	return Date{d.AddDate(0, 0, n)}
}

// String returns the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(format)
}

// Ptr returns the date's instant as a pointer, for optional fields.
func (d Date) Ptr() *time.Time {
	t := d.Time
	return &t
}

// Format renders an optional instant as YYYY-MM-DD in loc, or "" when nil.
func Format(t *time.Time, loc *time.Location) string {
	if t == nil {
		return ""
	}
	return t.In(loc).Format(format)
}

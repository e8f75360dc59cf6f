package booking

import (
	"encoding/json"
	"fmt"
	"time"
)

// =============================================================================
// DATE - Calendar day (this IS a calendar booking system)
// =============================================================================

// DateLayout is the wire and storage format for dates.
const DateLayout = "2006-01-02"

// Date is a calendar day normalized to UTC midnight.
type Date struct {
	Time time.Time
}

// NewDate returns the date for year/month/day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD): %w", s, err)
	}
	return DateOf(t), nil
}

// MustParseDate panics on malformed input. Use in tests and fixtures.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Comparison
func (d Date) Before(o Date) bool        { return d.Time.Before(o.Time) }
func (d Date) After(o Date) bool         { return d.Time.After(o.Time) }
func (d Date) Equal(o Date) bool         { return d.Time.Equal(o.Time) }
func (d Date) BeforeOrEqual(o Date) bool { return !d.After(o) }
func (d Date) AfterOrEqual(o Date) bool  { return !d.Before(o) }
func (d Date) IsZero() bool              { return d.Time.IsZero() }

// AddDays returns the date n days later (or earlier for negative n).
func (d Date) AddDays(n int) Date { return Date{Time: d.Time.AddDate(0, 0, n)} }

func (d Date) String() string { return d.Time.Format(DateLayout) }

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DaysBetween returns the number of whole days from 'from' to 'to'.
func DaysBetween(from, to Date) int { return int(to.Time.Sub(from.Time).Hours() / 24) }

// =============================================================================
// DATE RANGE - Booking, contract and revenue periods
// =============================================================================

// DateRange is a stay or revenue period. Both ends are inclusive, so a
// checkout day and the next check-in on the same day conflict.
type DateRange struct {
	Start Date `json:"startDate"`
	End   Date `json:"endDate"`
}

// NewDateRange builds and validates a range.
func NewDateRange(start, end Date) (DateRange, error) {
	r := DateRange{Start: start, End: end}
	return r, r.Validate()
}

// Validate rejects zero dates and ranges ending before they start.
func (r DateRange) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return fmt.Errorf("%w: start and end dates are required", ErrInvalidPeriod)
	}
	if r.End.Before(r.Start) {
		return fmt.Errorf("%w: %s", ErrInvalidPeriod, r)
	}
	return nil
}

// Overlaps is the inclusive interval intersection test:
// existing.start <= new.end AND existing.end >= new.start.
func (r DateRange) Overlaps(o DateRange) bool {
	return r.Start.BeforeOrEqual(o.End) && r.End.AfterOrEqual(o.Start)
}

// Contains returns true if d is within [Start, End].
func (r DateRange) Contains(d Date) bool {
	return d.AfterOrEqual(r.Start) && d.BeforeOrEqual(r.End)
}

// Equal compares both ends by calendar day.
func (r DateRange) Equal(o DateRange) bool {
	return r.Start.Equal(o.Start) && r.End.Equal(o.End)
}

// Nights returns the number of nights of a stay.
func (r DateRange) Nights() int { return DaysBetween(r.Start, r.End) }

func (r DateRange) String() string {
	return "[" + r.Start.String() + ", " + r.End.String() + "]"
}

package core

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Date is a calendar date without a time component. It is the canonical
// internal representation; text formats only exist at the boundaries:
//
//	wire input   DD/MM/YYYY  (ParseWireDate)
//	storage/JSON YYYY-MM-DD  (ParseISODate, String)
type Date struct {
	Year  int
	Month int
	Day   int
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// DateOf returns the calendar date of t in its own location.
func DateOf(t time.Time) Date {
	return Date{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}
}

// Validate reports whether d names a real calendar day.
func (d Date) Validate() error {
	if d.Year < 1 || d.Year > 9999 {
		return fmt.Errorf("%w: year %d out of range", ErrInvalidDate, d.Year)
	}
	if d.Month < 1 || d.Month > 12 {
		return fmt.Errorf("%w: month %d out of range", ErrInvalidDate, d.Month)
	}
	if d.Day < 1 || d.Day > daysIn(d.Year, d.Month) {
		return fmt.Errorf("%w: day %d out of range for %04d-%02d", ErrInvalidDate, d.Day, d.Year, d.Month)
	}
	return nil
}

// IsZero returns true for the zero Date
func (d Date) IsZero() bool {
	return d == Date{}
}

// Time returns midnight UTC of d.
func (d Date) Time() time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
}

// Compare orders dates chronologically (-1, 0, +1).
func (d Date) Compare(o Date) int {
	switch {
	case d.Year != o.Year:
		return cmpInt(d.Year, o.Year)
	case d.Month != o.Month:
		return cmpInt(d.Month, o.Month)
	default:
		return cmpInt(d.Day, o.Day)
	}
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// WireString formats the date as DD/MM/YYYY.
func (d Date) WireString() string {
	return fmt.Sprintf("%02d/%02d/%04d", d.Day, d.Month, d.Year)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts both YYYY-MM-DD and DD/MM/YYYY.
func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	var (
		parsed Date
		err    error
	)
	if strings.Contains(s, "/") {
		parsed, err = ParseWireDate(s)
	} else {
		parsed, err = ParseISODate(s)
	}
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseWireDate parses a DD/MM/YYYY date and rejects impossible days.
func ParseWireDate(s string) (Date, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 3 || len(parts[2]) != 4 {
		return Date{}, fmt.Errorf("%w: %q is not DD/MM/YYYY", ErrInvalidDate, s)
	}
	d, err := dateFromParts(parts[2], parts[1], parts[0])
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q is not DD/MM/YYYY", ErrInvalidDate, s)
	}
	if err := d.Validate(); err != nil {
		return Date{}, err
	}
	return d, nil
}

// ParseISODate parses YYYY-MM-DD. A value with the right shape but an
// impossible day is returned together with the validation error, so stored
// records keep whatever the store held.
func ParseISODate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	// Tolerate timestamps written by other tools ("2025-06-15T00:00:00Z").
	if i := strings.IndexAny(s, "T "); i > 0 {
		s = s[:i]
	}
	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return Date{}, fmt.Errorf("%w: %q is not YYYY-MM-DD", ErrInvalidDate, s)
	}
	d, err := dateFromParts(parts[0], parts[1], parts[2])
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q is not YYYY-MM-DD", ErrInvalidDate, s)
	}
	return d, d.Validate()
}

func dateFromParts(year, month, day string) (Date, error) {
	y, err := atoiDigits(year)
	if err != nil {
		return Date{}, err
	}
	m, err := atoiDigits(month)
	if err != nil {
		return Date{}, err
	}
	dd, err := atoiDigits(day)
	if err != nil {
		return Date{}, err
	}
	return Date{Year: y, Month: m, Day: dd}, nil
}

func atoiDigits(s string) (int, error) {
	if s == "" || len(s) > 4 {
		return 0, strconv.ErrSyntax
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, strconv.ErrSyntax
		}
	}
	return strconv.Atoi(s)
}

func daysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

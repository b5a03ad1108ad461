package core

import "fmt"

// Supported bounds for period queries.
const (
	MinPeriodYear = 1900
	MaxPeriodYear = 2100
)

// Order selects the date ordering of a store query.
type Order int

const (
	DateAsc Order = iota
	DateDesc
)

type (
	// MonthKey identifies a calendar month.
	MonthKey struct {
		Year  int `json:"year"`
		Month int `json:"month"`
	}

	// Filter restricts a store query. A nil Period selects everything.
	Filter struct {
		Period *MonthKey
	}
)

// ValidatePeriod returns *InvalidPeriodError unless year and month are in range.
func ValidatePeriod(year, month int) error {
	if year < MinPeriodYear || year > MaxPeriodYear || month < 1 || month > 12 {
		return &InvalidPeriodError{Year: year, Month: month}
	}
	return nil
}

// AllTransactions selects every stored transaction.
func AllTransactions() Filter {
	return Filter{}
}

// InPeriod selects the transactions dated in year/month.
func InPeriod(year, month int) Filter {
	return Filter{Period: &MonthKey{Year: year, Month: month}}
}

// Matches reports whether t passes the filter. Records whose date has no
// month key never match a period.
func (f Filter) Matches(t Transaction) bool {
	if f.Period == nil {
		return true
	}
	key, err := MonthKeyOf(t.Date)
	return err == nil && key == *f.Period
}

// Compare orders keys chronologically (-1, 0, +1).
func (k MonthKey) Compare(o MonthKey) int {
	if k.Year != o.Year {
		return cmpInt(k.Year, o.Year)
	}
	return cmpInt(k.Month, o.Month)
}

// String formats the key as YYYY-MM.
func (k MonthKey) String() string {
	return fmt.Sprintf("%04d-%02d", k.Year, k.Month)
}

func (o Order) String() string {
	if o == DateDesc {
		return "desc"
	}
	return "asc"
}

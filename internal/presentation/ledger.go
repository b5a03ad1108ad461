// Package presentation shapes transactions into the month-by-month ledger
// shown on the HTML page. It synthesizes empty months for display and checks
// its own per-month totals against the ones computed by the service. All date
// grouping goes through core.MonthKeyOf, the same helper the service uses.
package presentation

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"finance/internal/core"
)

// Bucket is one month of the ledger.
type Bucket struct {
	Key          core.MonthKey
	Transactions []core.Transaction
	// ClientTotals are computed here from Transactions.
	ClientTotals core.Totals
	// Totals are the service's totals once Reconcile has run; zero before.
	Totals     core.Totals
	Reconciled bool
	Mismatch   bool
	Empty      bool
}

// Label renders the bucket heading, e.g. "June 2025".
func (b Bucket) Label() string {
	return fmt.Sprintf("%s %d", time.Month(b.Key.Month), b.Key.Year)
}

// ID is a stable identifier for the bucket, e.g. "2025-06".
func (b Bucket) ID() string {
	return b.Key.String()
}

// Ledger is the grouped view of the full transaction list.
type Ledger struct {
	Buckets   []Bucket
	Anomalies []core.Anomaly
	Years     []int
	// Month is the active month filter, 0 for all months.
	Month int
}

// YearsPresent returns the distinct years of well-formed dates, newest first.
func YearsPresent(txs []core.Transaction) []int {
	seen := make(map[int]bool)
	var years []int
	for _, t := range txs {
		key, err := core.MonthKeyOf(t.Date)
		if err != nil || seen[key.Year] {
			continue
		}
		seen[key.Year] = true
		years = append(years, key.Year)
	}
	slices.SortFunc(years, func(a, b int) int { return b - a })
	return years
}

// KeySpace lists all twelve months of every year, newest first. With no
// years it covers the year of now.
func KeySpace(years []int, now time.Time) []core.MonthKey {
	if len(years) == 0 {
		years = []int{now.Year()}
	}
	keys := make([]core.MonthKey, 0, len(years)*12)
	for _, y := range years {
		for m := 1; m <= 12; m++ {
			keys = append(keys, core.MonthKey{Year: y, Month: m})
		}
	}
	slices.SortFunc(keys, func(a, b core.MonthKey) int { return b.Compare(a) })
	return slices.Compact(keys)
}

// Group buckets txs into every month of the key space. Members are ordered by
// ascending date; records with malformed dates are set aside as anomalies.
// txs is not modified.
func Group(txs []core.Transaction, now time.Time) Ledger {
	years := YearsPresent(txs)
	members := make(map[core.MonthKey][]core.Transaction)
	var anomalies []core.Anomaly
	for _, t := range txs {
		key, err := core.MonthKeyOf(t.Date)
		if err != nil {
			anomalies = append(anomalies, core.Anomaly{TransactionID: t.ID, Date: t.Date, Reason: err.Error()})
			continue
		}
		members[key] = append(members[key], t)
	}

	keys := KeySpace(years, now)
	buckets := make([]Bucket, 0, len(keys))
	for _, key := range keys {
		list := members[key]
		core.SortByDate(list)
		buckets = append(buckets, Bucket{
			Key:          key,
			Transactions: list,
			ClientTotals: core.ComputeTotals(list),
			Empty:        len(list) == 0,
		})
	}

	return Ledger{Buckets: buckets, Anomalies: anomalies, Years: years}
}

// FilterMonth keeps only the buckets of month across all years. 0 keeps all.
func (l Ledger) FilterMonth(month int) Ledger {
	if month == 0 {
		l.Month = 0
		return l
	}
	out := make([]Bucket, 0, len(l.Years)+1)
	for _, b := range l.Buckets {
		if b.Key.Month == month {
			out = append(out, b)
		}
	}
	l.Buckets = out
	l.Month = month
	return l
}

// Reconcile attaches the service's totals to every bucket by month key.
// Months missing from totals get zero totals. A bucket whose own totals
// disagree with the attached ones is flagged as a mismatch.
func (l Ledger) Reconcile(totals []core.MonthTotals) Ledger {
	byKey := make(map[core.MonthKey]core.Totals, len(totals))
	for _, mt := range totals {
		byKey[mt.Key()] = mt.Totals()
	}
	out := make([]Bucket, len(l.Buckets))
	for i, b := range l.Buckets {
		b.Totals = byKey[b.Key]
		b.Reconciled = true
		b.Mismatch = !b.ClientTotals.Equal(b.Totals)
		out[i] = b
	}
	l.Buckets = out
	return l
}

// Mismatches returns the buckets flagged by Reconcile.
func (l Ledger) Mismatches() []Bucket {
	var out []Bucket
	for _, b := range l.Buckets {
		if b.Mismatch {
			out = append(out, b)
		}
	}
	return out
}

// ParseMonthFilter reads the month query parameter: "", "all" or "01".."12".
func ParseMonthFilter(s string) (int, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" || s == "all" {
		return 0, nil
	}
	m, err := strconv.Atoi(s)
	if err != nil || m < 1 || m > 12 {
		return 0, fmt.Errorf("invalid month filter %q", s)
	}
	return m, nil
}

// MonthOption is one entry of the month filter selector.
type MonthOption struct {
	Value    string
	Label    string
	Selected bool
}

// MonthOptions lists "All" plus the twelve months with the active one selected.
func MonthOptions(active int) []MonthOption {
	opts := make([]MonthOption, 0, 13)
	opts = append(opts, MonthOption{Value: "all", Label: "All", Selected: active == 0})
	for m := 1; m <= 12; m++ {
		opts = append(opts, MonthOption{
			Value:    fmt.Sprintf("%02d", m),
			Label:    time.Month(m).String(),
			Selected: active == m,
		})
	}
	return opts
}

package core

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
)

type (
	// Totals are the derived amounts of a set of transactions.
	// Balance is always Credits minus Debits.
	Totals struct {
		Credits Money `json:"credits"`
		Debits  Money `json:"debits"`
		Balance Money `json:"balance"`
	}

	// MonthGroup holds the transactions of one month, ascending by date.
	MonthGroup struct {
		Key          MonthKey
		Transactions []Transaction
		Totals       Totals
	}

	// MonthTotals is the flat per-month summary exposed by the API.
	MonthTotals struct {
		Year    int   `json:"year"`
		Month   int   `json:"month"`
		Credits Money `json:"credits"`
		Debits  Money `json:"debits"`
		Balance Money `json:"balance"`
	}

	// PeriodTotals is the result of a single-period query.
	PeriodTotals struct {
		Transactions []Transaction `json:"transactions"`
		Totals       Totals        `json:"totals"`
		Period       MonthKey      `json:"period"`
	}

	// Anomaly describes a record excluded from grouping because its date
	// has no month key.
	Anomaly struct {
		TransactionID int64
		Date          Date
		Reason        string
	}
)

// MonthKeyOf derives the grouping key of a date. Every grouping path, server
// or presentation, goes through this function.
func MonthKeyOf(d Date) (MonthKey, error) {
	if err := d.Validate(); err != nil {
		return MonthKey{}, err
	}
	return MonthKey{Year: d.Year, Month: d.Month}, nil
}

// ComputeTotals sums credits and debits. It does not modify txs.
func ComputeTotals(txs []Transaction) Totals {
	credits, debits := decimal.Zero, decimal.Zero
	for _, t := range txs {
		switch t.Type {
		case Credit:
			credits = credits.Add(t.Value.Decimal)
		case Debit:
			debits = debits.Add(t.Value.Decimal)
		}
	}
	return Totals{
		Credits: NewMoney(credits),
		Debits:  NewMoney(debits),
		Balance: NewMoney(credits.Sub(debits)),
	}
}

// TotalsForPeriod computes totals over the transactions dated in year/month.
// No match yields zero totals.
func TotalsForPeriod(txs []Transaction, year, month int) Totals {
	f := InPeriod(year, month)
	matched := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		if f.Matches(t) {
			matched = append(matched, t)
		}
	}
	return ComputeTotals(matched)
}

// GroupAndTotalAll partitions txs by month and totals every bucket. Groups
// come out newest month first and only for months that have transactions.
// Records with a malformed date are skipped and returned as anomalies.
func GroupAndTotalAll(txs []Transaction) ([]MonthGroup, []Anomaly) {
	var (
		buckets   = make(map[MonthKey][]Transaction)
		anomalies []Anomaly
	)
	for _, t := range txs {
		key, err := MonthKeyOf(t.Date)
		if err != nil {
			anomalies = append(anomalies, Anomaly{TransactionID: t.ID, Date: t.Date, Reason: err.Error()})
			continue
		}
		buckets[key] = append(buckets[key], t)
	}

	groups := make([]MonthGroup, 0, len(buckets))
	for key, members := range buckets {
		SortByDate(members)
		groups = append(groups, MonthGroup{Key: key, Transactions: members, Totals: ComputeTotals(members)})
	}
	slices.SortFunc(groups, func(a, b MonthGroup) int {
		return b.Key.Compare(a.Key)
	})
	return groups, anomalies
}

// SortByDate orders txs ascending by date in place, keeping the input order
// of same-day entries.
func SortByDate(txs []Transaction) {
	slices.SortStableFunc(txs, func(a, b Transaction) int {
		return a.Date.Compare(b.Date)
	})
}

// MonthTotals flattens the group into its API summary.
func (g MonthGroup) MonthTotals() MonthTotals {
	return MonthTotals{
		Year:    g.Key.Year,
		Month:   g.Key.Month,
		Credits: g.Totals.Credits,
		Debits:  g.Totals.Debits,
		Balance: g.Totals.Balance,
	}
}

// Key returns the month the summary belongs to.
func (m MonthTotals) Key() MonthKey {
	return MonthKey{Year: m.Year, Month: m.Month}
}

// Totals returns the amounts of the summary.
func (m MonthTotals) Totals() Totals {
	return Totals{Credits: m.Credits, Debits: m.Debits, Balance: m.Balance}
}

// Equal compares amounts numerically (1.50 equals 1.5).
func (t Totals) Equal(o Totals) bool {
	return t.Credits.Equal(o.Credits.Decimal) &&
		t.Debits.Equal(o.Debits.Decimal) &&
		t.Balance.Equal(o.Balance.Decimal)
}

func (a Anomaly) String() string {
	return fmt.Sprintf("transaction %d has malformed date %s: %s", a.TransactionID, a.Date, a.Reason)
}

package google

import (
	"fmt"
	"strconv"
	"strings"

	"finance/internal/core"
)

var totalsHeader = []any{"Year", "Month", "Credits", "Debits", "Balance"}

// transactionRow lays out t as [date, description, value, type, id].
// Values are written as plain decimal text so USER_ENTERED parses them as numbers.
func transactionRow(t core.Transaction) []any {
	return []any{
		t.Date.WireString(),
		textCell(t.Description),
		t.Value.Display(),
		string(t.Type),
		t.ID,
	}
}

// textCell keeps free text literal under USER_ENTERED: a leading quote stops
// the sheet from reading it as a formula.
func textCell(s string) string {
	if s != "" && strings.ContainsRune("=+-@", rune(s[0])) {
		return "'" + s
	}
	return s
}

// totalsRows renders the header plus one row per month.
func totalsRows(totals []core.MonthTotals) [][]any {
	rows := make([][]any, 0, len(totals)+1)
	rows = append(rows, totalsHeader)
	for _, mt := range totals {
		rows = append(rows, []any{
			mt.Year,
			fmt.Sprintf("%02d", mt.Month),
			mt.Credits.Display(),
			mt.Debits.Display(),
			mt.Balance.Display(),
		})
	}
	return rows
}

// parseIDColumn reads the ID column. Headers, blanks and anything that is
// not a positive integer are ignored.
func parseIDColumn(values [][]any) map[int64]bool {
	ids := make(map[int64]bool, len(values))
	for _, row := range values {
		if len(row) == 0 {
			continue
		}
		s := strings.TrimSpace(fmt.Sprint(row[0]))
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		ids[id] = true
	}
	return ids
}

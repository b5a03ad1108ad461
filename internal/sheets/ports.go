package sheets

import (
	"context"

	"finance/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionWriter appends one transaction row to the export sheet.
	TransactionWriter interface {
		Append(ctx context.Context, t core.Transaction) (rowRef string, err error)
	}

	// ExportedIDReader lists the transaction IDs already present in the
	// export sheet so redelivered events do not duplicate rows.
	ExportedIDReader interface {
		ExportedIDs(ctx context.Context) (map[int64]bool, error)
	}

	// TotalsWriter replaces the monthly totals sheet.
	TotalsWriter interface {
		WriteMonthlyTotals(ctx context.Context, totals []core.MonthTotals) error
	}

	// Exporter is everything the sync worker needs from a spreadsheet.
	Exporter interface {
		TransactionWriter
		ExportedIDReader
		TotalsWriter
	}
)

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"finance/internal/core"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

const (
	insertTransaction = `INSERT INTO transactions (date, description, value, type, created_at)
VALUES (?, ?, ?, ?, ?)`

	selectTransactions = `SELECT id, date, description, value, type, created_at FROM transactions`

	wherePeriod = ` WHERE substr(date, 1, 7) = ?`
	whereID     = ` WHERE id = ?`

	orderAsc  = ` ORDER BY date ASC, id ASC`
	orderDesc = ` ORDER BY date DESC, id DESC`
)

// SQLiteRepository is the durable transaction store.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks that the database still answers.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Save persists a draft and returns the stored transaction.
func (r *SQLiteRepository) Save(ctx context.Context, d core.Draft) (core.Transaction, error) {
	createdAt := r.now().UTC()
	res, err := r.db.ExecContext(ctx, insertTransaction,
		d.Date.String(),
		d.Description,
		d.Value.String(),
		string(d.Type),
		createdAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("read inserted id: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", id,
		"date", d.Date.String(),
		"value", d.Value.String(),
		"type", d.Type)

	return core.Transaction{
		ID:          id,
		Date:        d.Date,
		Description: d.Description,
		Value:       d.Value,
		Type:        d.Type,
		CreatedAt:   createdAt,
	}, nil
}

// Find returns the transactions selected by f in the requested date order.
func (r *SQLiteRepository) Find(ctx context.Context, f core.Filter, o core.Order) ([]core.Transaction, error) {
	query := selectTransactions
	var args []any
	if f.Period != nil {
		query += wherePeriod
		args = append(args, f.Period.String())
	}
	if o == core.DateDesc {
		query += orderDesc
	} else {
		query += orderAsc
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(ctx, rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// Get retrieves a single transaction by ID
func (r *SQLiteRepository) Get(ctx context.Context, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, selectTransactions+whereID, id)
	t, err := scanTransaction(ctx, row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return t, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanTransaction maps a row. A date that does not parse is kept as-is so
// that aggregation can report it; an unreadable value is a store error.
func scanTransaction(ctx context.Context, s scanner) (core.Transaction, error) {
	var (
		t                         core.Transaction
		date, value, typ, created string
	)
	if err := s.Scan(&t.ID, &date, &t.Description, &value, &typ, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return t, err
		}
		return t, fmt.Errorf("scan transaction: %w", err)
	}

	d, err := core.ParseISODate(date)
	if err != nil {
		slog.DebugContext(ctx, "Stored transaction has malformed date", "id", t.ID, "date", date, "error", err)
	}
	t.Date = d

	amount, err := decimal.NewFromString(value)
	if err != nil {
		return t, fmt.Errorf("scan transaction %d: value %q: %w", t.ID, value, err)
	}
	t.Value = core.NewMoney(amount)
	t.Type = core.TransactionType(typ)

	if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
		t.CreatedAt = ts
	}
	return t, nil
}

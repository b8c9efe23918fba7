package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	_ "modernc.org/sqlite"

	"dailyledger/internal/core"
	"dailyledger/internal/storage"
)

// Dialect selects the SQL flavour and migration set.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

func (d Dialect) driverName() string {
	return string(d)
}

// Repository stores expenses in a SQL database through sqlx. Ids come from
// AUTOINCREMENT (sqlite) or an identity column (postgres), neither of which
// reuses values after a delete.
type Repository struct {
	db      *sqlx.DB
	dialect Dialect
}

var (
	_ storage.ExpenseRepository = (*Repository)(nil)
	_ storage.Pinger            = (*Repository)(nil)
)

type expenseRow struct {
	ID            int64  `db:"id"`
	ExpenseType   string `db:"expense_type"`
	SubmitterName string `db:"submitter_name"`
	DateNs        int64  `db:"date_ns"`
	AmountCents   int64  `db:"amount_cents"`
	CreatedAtNs   int64  `db:"created_at_ns"`
	UpdatedAtNs   int64  `db:"updated_at_ns"`
}

const selectColumns = `id, expense_type, submitter_name, date_ns, amount_cents, created_at_ns, updated_at_ns`

// OpenSQLite opens (creating if needed) the database file at path and
// migrates it.
func OpenSQLite(path string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(SQLite, path); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sqlx.Open(SQLite.driverName(), path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection serialises writers and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return New(db, SQLite), nil
}

// OpenPostgres connects to dsn, configures the pool and migrates.
func OpenPostgres(ctx context.Context, dsn string) (*Repository, error) {
	if err := RunMigrations(Postgres, dsn); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sqlx.Open(Postgres.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	return New(db, Postgres), nil
}

// New wraps an open handle. The schema must already be migrated.
func New(db *sqlx.DB, dialect Dialect) *Repository {
	return &Repository{db: db, dialect: dialect}
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

func (r *Repository) Insert(ctx context.Context, e core.Expense) (core.Expense, error) {
	row := toRow(e)
	query := r.db.Rebind(`INSERT INTO expenses (expense_type, submitter_name, date_ns, amount_cents, created_at_ns, updated_at_ns)
		VALUES (?, ?, ?, ?, ?, ?) RETURNING id`)

	var id int64
	err := r.db.QueryRowxContext(ctx, query,
		row.ExpenseType, row.SubmitterName, row.DateNs, row.AmountCents, row.CreatedAtNs, row.UpdatedAtNs,
	).Scan(&id)
	if err != nil {
		return core.Expense{}, unavailable("insert expense", err)
	}

	e.ID = core.ExpenseID(id)
	slog.DebugContext(ctx, "Expense inserted", "id", id, "dialect", r.dialect)
	return e, nil
}

func (r *Repository) Update(ctx context.Context, e core.Expense) error {
	row := toRow(e)
	query := r.db.Rebind(`UPDATE expenses
		SET expense_type = ?, submitter_name = ?, date_ns = ?, amount_cents = ?, updated_at_ns = ?
		WHERE id = ?`)

	res, err := r.db.ExecContext(ctx, query,
		row.ExpenseType, row.SubmitterName, row.DateNs, row.AmountCents, row.UpdatedAtNs, row.ID)
	if err != nil {
		return unavailable("update expense", err)
	}
	return expectOneRow(res, "update", e.ID)
}

func (r *Repository) Delete(ctx context.Context, id core.ExpenseID) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM expenses WHERE id = ?`), int64(id))
	if err != nil {
		return unavailable("delete expense", err)
	}
	return expectOneRow(res, "delete", id)
}

func (r *Repository) Get(ctx context.Context, id core.ExpenseID) (core.Expense, error) {
	var row expenseRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`SELECT `+selectColumns+` FROM expenses WHERE id = ?`), int64(id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, fmt.Errorf("get expense %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Expense{}, unavailable("get expense", err)
	}
	return row.toExpense(), nil
}

func (r *Repository) List(ctx context.Context) ([]core.Expense, error) {
	var rows []expenseRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT `+selectColumns+` FROM expenses`); err != nil {
		return nil, unavailable("list expenses", err)
	}
	return toExpenses(rows), nil
}

func (r *Repository) ListInRange(ctx context.Context, start, end time.Time) ([]core.Expense, error) {
	var rows []expenseRow
	query := r.db.Rebind(`SELECT ` + selectColumns + ` FROM expenses WHERE date_ns BETWEEN ? AND ?`)
	if err := r.db.SelectContext(ctx, &rows, query, start.UnixNano(), end.UnixNano()); err != nil {
		return nil, unavailable("list expenses in range", err)
	}
	return toExpenses(rows), nil
}

func (r *Repository) SumInRange(ctx context.Context, start, end time.Time) (core.Money, error) {
	var total int64
	query := r.db.Rebind(`SELECT CAST(COALESCE(SUM(amount_cents), 0) AS BIGINT) FROM expenses WHERE date_ns BETWEEN ? AND ?`)
	if err := r.db.GetContext(ctx, &total, query, start.UnixNano(), end.UnixNano()); err != nil {
		if isOverflow(err) {
			return core.Money{}, fmt.Errorf("sum expenses in range: %w", core.ErrAmountOverflow)
		}
		return core.Money{}, unavailable("sum expenses in range", err)
	}
	return core.Money{Cents: total}, nil
}

// isOverflow reports a SUM that left the BIGINT range: SQLite raises
// "integer overflow", Postgres fails the cast with numeric_value_out_of_range.
func isOverflow(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "22003"
	}
	return strings.Contains(err.Error(), "integer overflow")
}

func toRow(e core.Expense) expenseRow {
	return expenseRow{
		ID:            int64(e.ID),
		ExpenseType:   e.ExpenseType,
		SubmitterName: e.SubmitterName,
		DateNs:        e.Date.UnixNano(),
		AmountCents:   e.Amount.Cents,
		CreatedAtNs:   e.CreatedAt.UnixNano(),
		UpdatedAtNs:   e.UpdatedAt.UnixNano(),
	}
}

func (row expenseRow) toExpense() core.Expense {
	return core.Expense{
		ID:            core.ExpenseID(row.ID),
		ExpenseType:   row.ExpenseType,
		SubmitterName: row.SubmitterName,
		Date:          core.FromUnixNano(row.DateNs),
		Amount:        core.Money{Cents: row.AmountCents},
		CreatedAt:     core.FromUnixNano(row.CreatedAtNs),
		UpdatedAt:     core.FromUnixNano(row.UpdatedAtNs),
	}
}

func toExpenses(rows []expenseRow) []core.Expense {
	out := make([]core.Expense, len(rows))
	for i, row := range rows {
		out[i] = row.toExpense()
	}
	return out
}

func expectOneRow(res sql.Result, op string, id core.ExpenseID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable(op+" expense", err)
	}
	if n == 0 {
		return fmt.Errorf("%s expense %d: %w", op, id, core.ErrNotFound)
	}
	return nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, core.ErrUnavailable, err)
}

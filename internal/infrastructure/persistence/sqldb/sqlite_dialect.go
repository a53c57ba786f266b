package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmanzanog/investflow/internal/domain"
	"github.com/jmanzanog/investflow/internal/infrastructure/persistence/sqldb/migrations"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type SQLiteDialect struct{}

func (d *SQLiteDialect) Name() string { return "sqlite" }

func (d *SQLiteDialect) Migrate(ctx context.Context, db *sql.DB) error {
	return gooseUp(ctx, db, migrations.SQLiteFS, "sqlite3", "sqlite")
}

func (d *SQLiteDialect) Rebind(query string) string { return rebindWith(query, "?") }

// TxOptions never asks for read-only: SQLite has no such transaction mode.
func (d *SQLiteDialect) TxOptions(bool) *sql.TxOptions { return nil }

func (d *SQLiteDialect) BindDate(date domain.Date) any { return date.String() }

func (d *SQLiteDialect) InsertPortfolio(ctx context.Context, q Querier, p *domain.Portfolio) (int64, error) {
	query := d.Rebind(`
		INSERT INTO portfolios (name, monthly_amount, duration_months, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (name) DO NOTHING
		RETURNING id
	`)
	row := q.QueryRowContext(ctx, query,
		p.Name, p.MonthlyAmount, p.DurationMonths, d.BindDate(p.CreatedAt), d.BindDate(p.UpdatedAt))
	return scanInsertedID(row)
}

// IsUniqueViolation accepts the primary code too, for connections opened
// without extended result codes.
func (d *SQLiteDialect) IsUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		return strings.Contains(sqliteErr.Error(), "UNIQUE")
	}
	return false
}

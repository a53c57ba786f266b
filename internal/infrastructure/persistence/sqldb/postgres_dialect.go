package sqldb

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmanzanog/investflow/internal/domain"
	"github.com/jmanzanog/investflow/internal/infrastructure/persistence/sqldb/migrations"
)

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

type PostgresDialect struct{}

func (d *PostgresDialect) Name() string { return "postgres" }

func (d *PostgresDialect) Migrate(ctx context.Context, db *sql.DB) error {
	return gooseUp(ctx, db, migrations.PostgresFS, "postgres", "postgres")
}

func (d *PostgresDialect) Rebind(query string) string { return query }

func (d *PostgresDialect) TxOptions(readOnly bool) *sql.TxOptions {
	return &sql.TxOptions{ReadOnly: readOnly}
}

// BindDate sends dates as text so the server never shifts them by its TimeZone.
func (d *PostgresDialect) BindDate(date domain.Date) any { return date.String() }

func (d *PostgresDialect) InsertPortfolio(ctx context.Context, q Querier, p *domain.Portfolio) (int64, error) {
	query := `
		INSERT INTO portfolios (name, monthly_amount, duration_months, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (name) DO NOTHING
		RETURNING id
	`
	row := q.QueryRowContext(ctx, query,
		p.Name, p.MonthlyAmount, p.DurationMonths, d.BindDate(p.CreatedAt), d.BindDate(p.UpdatedAt))
	return scanInsertedID(row)
}

func (d *PostgresDialect) IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

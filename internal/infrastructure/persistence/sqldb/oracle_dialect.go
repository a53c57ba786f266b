package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jmanzanog/investflow/internal/domain"
	"github.com/jmanzanog/investflow/internal/infrastructure/persistence/sqldb/migrations"
)

type OracleDialect struct{}

func (d *OracleDialect) Name() string { return "oracle" }

func (d *OracleDialect) Migrate(ctx context.Context, db *sql.DB) error {
	// Goose does not support Oracle natively in a way that is easy to cross-compile with go-ora.
	// Each embedded script is split on '/' and executed in file order.
	files, err := fs.Glob(migrations.OracleFS, "oracle/*.sql")
	if err != nil {
		return fmt.Errorf("listing migration files: %w", err)
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := migrations.OracleFS.ReadFile(file)
		if err != nil {
			return fmt.Errorf("reading migration file: %w", err)
		}

		for _, stmt := range strings.Split(string(content), "/") {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}

			if _, err := db.ExecContext(ctx, stmt); err != nil {
				// ORA-00955: name is already used by an existing object
				if !strings.Contains(err.Error(), "ORA-00955") {
					return fmt.Errorf("migrating %s: %s: %w", file, stmt, err)
				}
			}
		}
	}
	return nil
}

func (d *OracleDialect) Rebind(query string) string { return rebindWith(query, ":") }

func (d *OracleDialect) TxOptions(bool) *sql.TxOptions { return nil }

func (d *OracleDialect) BindDate(date domain.Date) any { return date.Time() }

// InsertPortfolio relies on uq_portfolios_name: Oracle has no conditional
// insert that also returns the identity, so the violation is translated.
func (d *OracleDialect) InsertPortfolio(ctx context.Context, q Querier, p *domain.Portfolio) (int64, error) {
	query := `INSERT INTO portfolios (name, monthly_amount, duration_months, created_at, updated_at)
             VALUES (:1, :2, :3, :4, :5)
             RETURNING id INTO :6`

	var id int64
	_, err := q.ExecContext(ctx, query,
		p.Name,                  // 1
		p.MonthlyAmount,         // 2
		p.DurationMonths,        // 3
		d.BindDate(p.CreatedAt), // 4
		d.BindDate(p.UpdatedAt), // 5
		sql.Out{Dest: &id},      // 6
	)
	if err != nil {
		if d.IsUniqueViolation(err) {
			return 0, domain.ErrPortfolioAlreadyExists
		}
		return 0, err
	}
	return id, nil
}

// IsUniqueViolation matches ORA-00001: unique constraint violated.
func (d *OracleDialect) IsUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "ORA-00001")
}

package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmanzanog/investflow/internal/domain"
)

const portfolioColumns = "id, name, monthly_amount, duration_months, created_at, updated_at"

type Repository struct {
	db  *DB
	now func() time.Time
}

func NewRepository(db *DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

func (r *Repository) today() domain.Date {
	return domain.DateOf(r.now())
}

// Transact runs fn in a transaction carried by the context. Calls that are
// already inside a transaction join it.
func (r *Repository) Transact(ctx context.Context, opts domain.TxOptions, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}
	return r.db.WithTx(ctx, r.db.Dialect.TxOptions(opts.ReadOnly), func(tx *sql.Tx) error {
		return fn(contextWithTx(ctx, tx))
	})
}

func (r *Repository) ExistsByName(ctx context.Context, name string) (bool, error) {
	return r.exists(ctx, "SELECT COUNT(1) FROM portfolios WHERE name = $1", name)
}

func (r *Repository) ExistsByID(ctx context.Context, id int64) (bool, error) {
	return r.exists(ctx, "SELECT COUNT(1) FROM portfolios WHERE id = $1", id)
}

func (r *Repository) exists(ctx context.Context, query string, arg any) (bool, error) {
	var count int64
	if err := r.db.Querier(ctx).QueryRowContext(ctx, r.rebind(query), arg).Scan(&count); err != nil {
		slog.Error("Failed to check portfolio existence", "arg", arg, "error", err)
		return false, fmt.Errorf("counting portfolios: %w", err)
	}
	return count > 0, nil
}

func (r *Repository) FindByID(ctx context.Context, id int64) (*domain.Portfolio, error) {
	query := r.rebind("SELECT " + portfolioColumns + " FROM portfolios WHERE id = $1")

	p, err := scanPortfolio(r.db.Querier(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			slog.Debug("Portfolio not found", "id", id)
			return nil, fmt.Errorf("portfolio %d: %w", id, domain.ErrPortfolioNotFound)
		}
		slog.Error("Failed to find portfolio", "id", id, "error", err)
		return nil, fmt.Errorf("querying portfolio: %w", err)
	}
	return p, nil
}

func (r *Repository) FindAll(ctx context.Context) ([]*domain.Portfolio, error) {
	query := "SELECT " + portfolioColumns + " FROM portfolios ORDER BY id"

	rows, err := r.db.Querier(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying portfolios: %w", err)
	}
	defer func(rows *sql.Rows) {
		err := rows.Close()
		if err != nil {
			slog.Error("Failed to close rows", "error", err)
		}
	}(rows)

	portfolios := make([]*domain.Portfolio, 0)
	for rows.Next() {
		p, err := scanPortfolio(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		portfolios = append(portfolios, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return portfolios, nil
}

func (r *Repository) Save(ctx context.Context, p *domain.Portfolio) (*domain.Portfolio, error) {
	// The row is written from a stamped copy; p itself is left untouched.
	stamped := p.Stamped(0, r.today())

	id, err := r.db.Dialect.InsertPortfolio(ctx, r.db.Querier(ctx), stamped)
	if err != nil {
		if errors.Is(err, domain.ErrPortfolioAlreadyExists) || r.db.Dialect.IsUniqueViolation(err) {
			return nil, fmt.Errorf("name %q: %w", p.Name, domain.ErrPortfolioAlreadyExists)
		}
		slog.Error("Failed to save portfolio", "name", p.Name, "error", err)
		return nil, fmt.Errorf("insert portfolio: %w", err)
	}

	return stamped.Stamped(id, stamped.CreatedAt), nil
}

func (r *Repository) Update(ctx context.Context, p *domain.Portfolio) (*domain.Portfolio, error) {
	if !p.IsPersisted() {
		return nil, fmt.Errorf("portfolio without id: %w", domain.ErrPortfolioNotFound)
	}
	touched := p.Touched(r.today())

	query := r.rebind(`
		UPDATE portfolios
		SET name = $1, monthly_amount = $2, duration_months = $3, updated_at = $4
		WHERE id = $5
	`)
	res, err := r.db.Querier(ctx).ExecContext(ctx, query,
		touched.Name, touched.MonthlyAmount, touched.DurationMonths, r.db.Dialect.BindDate(touched.UpdatedAt), touched.ID)
	if err != nil {
		if r.db.Dialect.IsUniqueViolation(err) {
			return nil, fmt.Errorf("name %q: %w", p.Name, domain.ErrPortfolioAlreadyExists)
		}
		slog.Error("Failed to update portfolio", "portfolio_id", p.ID, "error", err)
		return nil, fmt.Errorf("update portfolio: %w", err)
	}

	if err := expectAffected(res, p.ID); err != nil {
		return nil, err
	}
	return touched, nil
}

func (r *Repository) DeleteByID(ctx context.Context, id int64) error {
	res, err := r.db.Querier(ctx).ExecContext(ctx, r.rebind("DELETE FROM portfolios WHERE id = $1"), id)
	if err != nil {
		slog.Error("Failed to delete portfolio", "portfolio_id", id, "error", err)
		return fmt.Errorf("failed to delete portfolio: %w", err)
	}
	return expectAffected(res, id)
}

func expectAffected(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("portfolio %d: %w", id, domain.ErrPortfolioNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPortfolio(row rowScanner) (*domain.Portfolio, error) {
	var (
		id                   int64
		name                 string
		amount               domain.Decimal
		months               int
		createdAt, updatedAt domain.Date
	)
	if err := row.Scan(&id, &name, &amount, &months, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	return domain.RestorePortfolio(id, name, amount, months, createdAt, updatedAt), nil
}

func (r *Repository) rebind(query string) string {
	return r.db.Dialect.Rebind(query)
}

package sqldb

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmanzanog/investflow/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stampedPortfolio() *domain.Portfolio {
	p := domain.NewPortfolio("Conservative Portfolio", domain.MustDecimal("500.0"), 12)
	return p.Stamped(0, domain.NewDate(2026, time.October, 14))
}

func TestDialectFor(t *testing.T) {
	for _, name := range []string{"postgres", "oracle", "sqlite"} {
		d, err := DialectFor(name)
		require.NoError(t, err)
		assert.Equal(t, name, d.Name())
	}

	_, err := DialectFor("mysql")
	assert.ErrorContains(t, err, "unsupported database driver: mysql")
}

func TestDialect_Rebind(t *testing.T) {
	query := "UPDATE portfolios SET name = $1 WHERE id = $12"

	assert.Equal(t, query, (&PostgresDialect{}).Rebind(query))
	assert.Equal(t, "UPDATE portfolios SET name = :1 WHERE id = :12", (&OracleDialect{}).Rebind(query))
	assert.Equal(t, "UPDATE portfolios SET name = ?1 WHERE id = ?12", (&SQLiteDialect{}).Rebind(query))
}

func TestDialect_TxOptions(t *testing.T) {
	opts := (&PostgresDialect{}).TxOptions(true)
	require.NotNil(t, opts)
	assert.True(t, opts.ReadOnly)

	assert.Nil(t, (&SQLiteDialect{}).TxOptions(true))
	assert.Nil(t, (&OracleDialect{}).TxOptions(true))
}

func TestDialect_BindDate(t *testing.T) {
	date := domain.NewDate(2026, time.October, 14)

	assert.Equal(t, "2026-10-14", (&PostgresDialect{}).BindDate(date))
	assert.Equal(t, "2026-10-14", (&SQLiteDialect{}).BindDate(date))
	assert.Equal(t, date.Time(), (&OracleDialect{}).BindDate(date))
}

func TestPostgresDialect_InsertPortfolio_QueryGeneration(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	p := stampedPortfolio()
	mock.ExpectQuery(`INSERT INTO portfolios .* ON CONFLICT \(name\) DO NOTHING\s+RETURNING id`).
		WithArgs(p.Name, "500.0", 12, "2026-10-14", "2026-10-14").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	id, err := (&PostgresDialect{}).InsertPortfolio(context.Background(), db, p)

	assert.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDialect_InsertPortfolio_Conflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	mock.ExpectQuery("INSERT INTO portfolios").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = (&PostgresDialect{}).InsertPortfolio(context.Background(), db, stampedPortfolio())

	assert.ErrorIs(t, err, domain.ErrPortfolioAlreadyExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteDialect_InsertPortfolio_QueryGeneration(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	mock.ExpectQuery(`VALUES \(\?1, \?2, \?3, \?4, \?5\)`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	id, err := (&SQLiteDialect{}).InsertPortfolio(context.Background(), db, stampedPortfolio())

	assert.NoError(t, err)
	assert.Equal(t, int64(1), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOracleDialect_InsertPortfolio_QueryGeneration(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	dialect := &OracleDialect{}
	p := stampedPortfolio()

	// ORDER MATTERS: the out parameter is always last.
	mock.ExpectExec(`INSERT INTO portfolios .* RETURNING id INTO :6`).
		WithArgs(
			p.Name,             // 1
			"500.0",            // 2
			12,                 // 3
			p.CreatedAt.Time(), // 4
			p.UpdatedAt.Time(), // 5
			sqlmock.AnyArg(),   // 6 (id)
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err = dialect.InsertPortfolio(context.Background(), db, p)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOracleDialect_InsertPortfolio_Conflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	mock.ExpectExec("INSERT INTO portfolios").
		WillReturnError(errors.New("ORA-00001: unique constraint (SYSTEM.UQ_PORTFOLIOS_NAME) violated"))

	_, err = (&OracleDialect{}).InsertPortfolio(context.Background(), db, stampedPortfolio())

	assert.ErrorIs(t, err, domain.ErrPortfolioAlreadyExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDialect_IsUniqueViolation(t *testing.T) {
	pg := &PostgresDialect{}
	assert.True(t, pg.IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, pg.IsUniqueViolation(&pgconn.PgError{Code: "23514"}))
	assert.False(t, pg.IsUniqueViolation(errors.New("23505")))

	ora := &OracleDialect{}
	assert.True(t, ora.IsUniqueViolation(errors.New("ORA-00001: unique constraint violated")))
	assert.False(t, ora.IsUniqueViolation(errors.New("ORA-02290: check constraint violated")))
	assert.False(t, ora.IsUniqueViolation(nil))

	assert.False(t, (&SQLiteDialect{}).IsUniqueViolation(errors.New("UNIQUE constraint failed")))
}

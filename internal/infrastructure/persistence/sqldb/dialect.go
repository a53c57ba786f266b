package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"regexp"

	"github.com/jmanzanog/investflow/internal/domain"
	"github.com/pressly/goose/v3"
)

type Dialect interface {
	Name() string
	Migrate(ctx context.Context, db *sql.DB) error
	// Rebind rewrites $n placeholders into the dialect's own form.
	Rebind(query string) string
	TxOptions(readOnly bool) *sql.TxOptions
	BindDate(d domain.Date) any
	// InsertPortfolio inserts p and returns the generated id. It returns
	// domain.ErrPortfolioAlreadyExists when the name is taken.
	InsertPortfolio(ctx context.Context, q Querier, p *domain.Portfolio) (int64, error)
	IsUniqueViolation(err error) bool
}

// DialectFor returns the dialect registered under a DB_DRIVER name.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "postgres":
		return &PostgresDialect{}, nil
	case "oracle":
		return &OracleDialect{}, nil
	case "sqlite":
		return &SQLiteDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}

var placeholder = regexp.MustCompile(`\$(\d+)`)

func rebindWith(query, prefix string) string {
	return placeholder.ReplaceAllString(query, prefix+"${1}")
}

// gooseUp applies the embedded migrations found in dir.
func gooseUp(ctx context.Context, db *sql.DB, fsys fs.FS, dialect, dir string) error {
	goose.SetBaseFS(fsys)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("setting dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, dir); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	return nil
}

// scanInsertedID turns the empty result of a conflicting conditional insert
// into domain.ErrPortfolioAlreadyExists.
func scanInsertedID(row *sql.Row) (int64, error) {
	var id int64
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.ErrPortfolioAlreadyExists
		}
		return 0, err
	}
	return id, nil
}

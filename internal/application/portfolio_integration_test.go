package application_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmanzanog/investflow/internal/application"
	"github.com/jmanzanog/investflow/internal/domain"
	"github.com/jmanzanog/investflow/internal/infrastructure/persistence/memory"
	"github.com/jmanzanog/investflow/internal/infrastructure/persistence/sqldb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	_ "modernc.org/sqlite"
)

// setupPostgresRepository starts a real Postgres container and returns a migrated repository.
// This duplicates setup logic from infrastructure tests to ensure application tests are self-contained.
func setupPostgresRepository(t *testing.T) domain.PortfolioRepository {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %s", err)
	}
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %s", err)
	}

	return openRepository(t, "pgx", connStr, &sqldb.PostgresDialect{})
}

func setupSQLiteRepository(t *testing.T) domain.PortfolioRepository {
	return openRepository(t, "sqlite", ":memory:", &sqldb.SQLiteDialect{})
}

func openRepository(t *testing.T, driver, dsn string, dialect sqldb.Dialect) domain.PortfolioRepository {
	t.Helper()
	ctx := context.Background()

	db, err := sql.Open(driver, dsn)
	if err != nil {
		t.Fatalf("failed to open db: %s", err)
	}
	if driver == "sqlite" {
		db.SetMaxOpenConns(1)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	wrapper := sqldb.New(db, dialect)
	if err := wrapper.Dialect.Migrate(ctx, db); err != nil {
		t.Fatalf("failed to migrate: %s", err)
	}
	return sqldb.NewRepository(wrapper)
}

// stores lists every backend the service is exercised against. Postgres only
// runs when TEST_DB asks for it.
func stores() map[string]func(t *testing.T) domain.PortfolioRepository {
	all := map[string]func(t *testing.T) domain.PortfolioRepository{
		"memory": func(t *testing.T) domain.PortfolioRepository { return memory.NewPortfolioRepository() },
		"sqlite": setupSQLiteRepository,
	}
	if os.Getenv("TEST_DB") == "postgres" {
		all["postgres"] = setupPostgresRepository
	}
	return all
}

func createRequest(name string, amount string, months int) *application.CreatePortfolioRequest {
	return &application.CreatePortfolioRequest{
		Name:           name,
		MonthlyAmount:  domain.MustDecimal(amount),
		DurationMonths: months,
	}
}

func TestPortfolioService_Persistence_Lifecycle(t *testing.T) {
	for name, setup := range stores() {
		t.Run(name, func(t *testing.T) {
			service := application.NewPortfolioService(setup(t))
			ctx := context.Background()
			today := domain.DateOf(time.Now())

			created, err := service.Create(ctx, createRequest("Conservative Portfolio", "500.0", 12))
			require.NoError(t, err)
			assert.Positive(t, created.ID)
			assert.Equal(t, "Conservative Portfolio", created.Name)
			assert.True(t, created.MonthlyAmount.Equal(domain.NewDecimalFromInt(500)))
			assert.Equal(t, 12, created.DurationMonths)
			assert.True(t, created.CreatedAt.Equal(today))
			assert.True(t, created.UpdatedAt.Equal(created.CreatedAt))

			found, err := service.FindByID(ctx, created.ID)
			require.NoError(t, err)
			assert.Equal(t, created.ID, found.ID)
			assert.True(t, found.MonthlyAmount.Equal(created.MonthlyAmount))
			assert.True(t, found.CreatedAt.Equal(created.CreatedAt))

			updated, err := service.Update(ctx, created.ID, &application.UpdatePortfolioRequest{
				Name:           "Moderate Portfolio",
				MonthlyAmount:  domain.MustDecimal("650.50"),
				DurationMonths: 24,
			})
			require.NoError(t, err)
			assert.Equal(t, "Moderate Portfolio", updated.Name)
			assert.True(t, updated.CreatedAt.Equal(created.CreatedAt))
			assert.False(t, updated.UpdatedAt.Before(updated.CreatedAt))

			all, err := service.FindAll(ctx)
			require.NoError(t, err)
			require.Len(t, all, 1)
			assert.Equal(t, "Moderate Portfolio", all[0].Name)

			require.NoError(t, service.DeleteByID(ctx, created.ID))

			_, err = service.FindByID(ctx, created.ID)
			var notFound *domain.NotFoundError
			require.ErrorAs(t, err, &notFound)
			assert.Equal(t, created.ID, notFound.ID)
		})
	}
}

func TestPortfolioService_Persistence_DuplicateName(t *testing.T) {
	for name, setup := range stores() {
		t.Run(name, func(t *testing.T) {
			service := application.NewPortfolioService(setup(t))
			ctx := context.Background()

			_, err := service.Create(ctx, createRequest("Aggressive Portfolio", "1500.0", 36))
			require.NoError(t, err)

			_, err = service.Create(ctx, createRequest("Aggressive Portfolio", "1500.0", 36))
			var exists *domain.AlreadyExistsError
			require.ErrorAs(t, err, &exists)
			assert.Equal(t, "Portfolio Name Already Exists: Aggressive Portfolio", err.Error())

			all, err := service.FindAll(ctx)
			require.NoError(t, err)
			assert.Len(t, all, 1)
		})
	}
}

func TestPortfolioService_Persistence_DeleteMissing(t *testing.T) {
	for name, setup := range stores() {
		t.Run(name, func(t *testing.T) {
			service := application.NewPortfolioService(setup(t))

			err := service.DeleteByID(context.Background(), 999)

			assert.True(t, errors.Is(err, domain.ErrPortfolioNotFound))
			assert.Equal(t, "Portfolio Not Found: 999", err.Error())
		})
	}
}

func TestPortfolioService_Persistence_InvalidRequestWritesNothing(t *testing.T) {
	for name, setup := range stores() {
		t.Run(name, func(t *testing.T) {
			service := application.NewPortfolioService(setup(t))
			ctx := context.Background()

			_, err := service.Create(ctx, createRequest("X", "0", 0))
			var verr *application.ValidationError
			require.ErrorAs(t, err, &verr)

			all, err := service.FindAll(ctx)
			require.NoError(t, err)
			assert.Empty(t, all)
		})
	}
}

func TestPortfolioService_Persistence_AmountOutsideColumnRejected(t *testing.T) {
	for name, setup := range stores() {
		t.Run(name, func(t *testing.T) {
			service := application.NewPortfolioService(setup(t))
			ctx := context.Background()

			for _, amount := range []string{"0.00001", "1234567890123456.5"} {
				_, err := service.Create(ctx, createRequest("Precise Portfolio", amount, 12))
				var verr *application.ValidationError
				require.ErrorAs(t, err, &verr, amount)
			}

			created, err := service.Create(ctx, createRequest("Precise Portfolio", "123.4567", 12))
			require.NoError(t, err)

			found, err := service.FindByID(ctx, created.ID)
			require.NoError(t, err)
			assert.True(t, found.MonthlyAmount.Equal(created.MonthlyAmount),
				"stored %s, created %s", found.MonthlyAmount, created.MonthlyAmount)
		})
	}
}

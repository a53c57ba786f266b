package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmanzanog/investflow/internal/application"
	"github.com/jmanzanog/investflow/internal/domain"
	"github.com/jmanzanog/investflow/internal/infrastructure/config"
	"github.com/jmanzanog/investflow/internal/infrastructure/logging"
	"github.com/jmanzanog/investflow/internal/infrastructure/persistence/memory"
	"github.com/jmanzanog/investflow/internal/infrastructure/persistence/sqldb"
	httpHandler "github.com/jmanzanog/investflow/internal/interfaces/http"
	"github.com/joho/godotenv"
	_ "github.com/sijms/go-ora/v2"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

// sqlDrivers maps DB_DRIVER values to database/sql driver names.
var sqlDrivers = map[string]string{
	config.DriverPostgres: "pgx",
	config.DriverOracle:   "oracle",
	config.DriverSQLite:   "sqlite",
}

// setupLogger configures the default structured logger with source information
func setupLogger(level string) (*slog.Logger, error) {
	lvl, err := logging.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	logger := logging.New(os.Stdout, lvl)
	slog.SetDefault(logger)
	return logger, nil
}

// openDatabase connects to the configured SQL store and runs its migrations
func openDatabase(cfg *config.Config) (*sqldb.DB, error) {
	driverName, ok := sqlDrivers[cfg.DBDriver]
	if !ok {
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.DBDriver)
	}
	dialect, err := sqldb.DialectFor(cfg.DBDriver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	if cfg.DBDriver == config.DriverSQLite {
		// SQLite allows a single writer; one connection avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.MigrationTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close() // Close connection if ping fails
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	wrapper := sqldb.New(db, dialect)

	if err := wrapper.Dialect.Migrate(ctx, db); err != nil {
		_ = db.Close() // Close connection if migration fails
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	slog.Info("Database ready", "driver", cfg.DBDriver)
	return wrapper, nil
}

// initializeRepository returns the repository for DB_DRIVER together with a
// function releasing its resources.
func initializeRepository(cfg *config.Config) (domain.PortfolioRepository, func() error, error) {
	if cfg.DBDriver == config.DriverMemory {
		slog.Warn("Using in-memory store, data is lost on exit")
		return memory.NewPortfolioRepository(), func() error { return nil }, nil
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return nil, nil, err
	}
	return sqldb.NewRepository(db), db.Close, nil
}

// buildServer creates and configures the HTTP server with all routes and handlers
func buildServer(cfg *config.Config, portfolioService httpHandler.PortfolioService) *http.Server {
	router := gin.New()
	router.Use(gin.Recovery())
	handler := httpHandler.NewHandler(portfolioService)
	httpHandler.SetupRoutes(router, handler)

	return &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func loadConfig() (*config.Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if _, err := setupLogger(cfg.LogLevel); err != nil {
		return nil, err
	}
	return cfg, nil
}

// serve runs the HTTP server until ctx is cancelled or the server fails
func serve(ctx context.Context, cfg *config.Config) error {
	repo, closeRepo, err := initializeRepository(cfg)
	if err != nil {
		return fmt.Errorf("database initialization failed: %w", err)
	}
	defer func() {
		if err := closeRepo(); err != nil {
			slog.Error("Failed to close database", "error", err)
		}
	}()

	server := buildServer(cfg, application.NewPortfolioService(repo))

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("Server starting", "host", cfg.ServerHost, "port", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	slog.Info("Server exited gracefully")
	return nil
}

func newRootCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.DBDriver == config.DriverMemory {
				slog.Info("Nothing to migrate for the in-memory store")
				return nil
			}

			db, err := openDatabase(cfg)
			if err != nil {
				return err
			}
			return db.Close()
		},
	}

	root := &cobra.Command{
		Use:           "investflow",
		Short:         "Portfolio savings plan API",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          serveCmd.RunE,
	}
	root.AddCommand(serveCmd, migrateCmd)
	return root
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		slog.Error("Application error", "error", err)
		os.Exit(1)
	}
}

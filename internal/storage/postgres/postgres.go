// Package postgres implements the platform repositories and unit of work
// over PostgreSQL, with a primary/replica resolver and versioned schema
// migrations applied on connect.
//
// Aggregate serialization: loans are read with SELECT ... FOR UPDATE inside
// the unit of work, so concurrent mutations of one loan queue on the row
// lock and apply in a well-defined order.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"time"

	logpkg "github.com/anil-trigital/GST/pkg/log"
	"github.com/bxcodec/dbresolver/v2"
	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 10
	defaultConnMaxLifetime = 30 * time.Minute
)

// Config carries the connection settings for the postgres store.
type Config struct {
	PrimaryDSN     string
	ReplicaDSN     string
	DatabaseName   string
	MigrationsPath string
	MaxOpenConns   int
	MaxIdleConns   int
}

// Connect opens the primary and replica pools, runs pending migrations on
// the primary, and returns a store over a round-robin resolver.
func Connect(ctx context.Context, cfg Config, logger logpkg.Logger) (*Store, error) {
	if logger == nil {
		logger = logpkg.NewNop()
	}

	if cfg.ReplicaDSN == "" {
		cfg.ReplicaDSN = cfg.PrimaryDSN
	}

	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = defaultMaxOpenConns
	}

	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = defaultMaxIdleConns
	}

	primary, err := sql.Open("pgx", cfg.PrimaryDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open primary database: %w", err)
	}

	configurePool(primary, cfg)

	replica, err := sql.Open("pgx", cfg.ReplicaDSN)
	if err != nil {
		primary.Close()

		return nil, fmt.Errorf("failed to open replica database: %w", err)
	}

	configurePool(replica, cfg)

	if err := runMigrations(primary, cfg, logger); err != nil {
		primary.Close()
		replica.Close()

		return nil, err
	}

	db := dbresolver.New(
		dbresolver.WithPrimaryDBs(primary),
		dbresolver.WithReplicaDBs(replica),
		dbresolver.WithLoadBalancer(dbresolver.RoundRobinLB),
	)

	if err := db.PingContext(ctx); err != nil {
		db.Close()

		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Log(ctx, logpkg.LevelInfo, "connected to postgres",
		logpkg.String("database", cfg.DatabaseName))

	return &Store{db: db, logger: logger}, nil
}

func configurePool(db *sql.DB, cfg Config) {
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(defaultConnMaxLifetime)
}

func runMigrations(primary *sql.DB, cfg Config, logger logpkg.Logger) error {
	if cfg.MigrationsPath == "" {
		return nil
	}

	absPath, err := filepath.Abs(cfg.MigrationsPath)
	if err != nil {
		return fmt.Errorf("failed to resolve migrations path: %w", err)
	}

	sourceURL := url.URL{Scheme: "file", Path: filepath.ToSlash(absPath)}

	driver, err := migratepg.WithInstance(primary, &migratepg.Config{
		DatabaseName: cfg.DatabaseName,
		SchemaName:   "public",
	})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(sourceURL.String(), cfg.DatabaseName, driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Log(context.Background(), logpkg.LevelInfo, "no new migrations")
			return nil
		}

		return fmt.Errorf("migration failed: %w", err)
	}

	return nil
}

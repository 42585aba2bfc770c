// The gst-platform server exposes the batch resource over HTTP.
//
// Configuration is environment-driven. The in-memory store is the default
// backend; set STORAGE_DRIVER=postgres for the durable one. Redis locking
// and RabbitMQ event publishing are enabled by providing their endpoints.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/anil-trigital/GST/internal/batch"
	"github.com/anil-trigital/GST/internal/client"
	"github.com/anil-trigital/GST/internal/events"
	"github.com/anil-trigital/GST/internal/loan"
	"github.com/anil-trigital/GST/internal/provisioning"
	"github.com/anil-trigital/GST/internal/server"
	"github.com/anil-trigital/GST/internal/storage"
	"github.com/anil-trigital/GST/internal/storage/memory"
	"github.com/anil-trigital/GST/internal/storage/postgres"
	"github.com/anil-trigital/GST/internal/storage/redislock"
	"github.com/anil-trigital/GST/pkg/env"
	logpkg "github.com/anil-trigital/GST/pkg/log"
	zaplog "github.com/anil-trigital/GST/pkg/zap"
	"github.com/redis/go-redis/v9"
)

type config struct {
	Address  string
	LogLevel string

	AuthUsername string
	AuthPassword string

	StorageDriver  string
	PrimaryDSN     string
	ReplicaDSN     string
	DatabaseName   string
	MigrationsPath string
	AutoMigrate    bool
	MaxOpenConns   int
	MaxIdleConns   int

	RedisAddress  string
	RedisPassword string

	RabbitURL      string
	RabbitExchange string
}

func loadConfig() config {
	return config{
		Address:  env.GetOrDefault("SERVER_ADDRESS", ":8080"),
		LogLevel: env.GetOrDefault("LOG_LEVEL", "info"),

		AuthUsername: env.GetOrDefault("AUTH_USERNAME", "mifos"),
		AuthPassword: env.GetOrDefault("AUTH_PASSWORD", "password"),

		StorageDriver:  env.GetOrDefault("STORAGE_DRIVER", "memory"),
		PrimaryDSN:     env.GetOrDefault("DB_PRIMARY_DSN", ""),
		ReplicaDSN:     env.GetOrDefault("DB_REPLICA_DSN", ""),
		DatabaseName:   env.GetOrDefault("DB_NAME", "gst"),
		MigrationsPath: env.GetOrDefault("DB_MIGRATIONS_PATH", "migrations"),
		AutoMigrate:    env.GetBoolOrDefault("DB_AUTO_MIGRATE", true),
		MaxOpenConns:   env.GetIntOrDefault("DB_MAX_OPEN_CONNS", 0),
		MaxIdleConns:   env.GetIntOrDefault("DB_MAX_IDLE_CONNS", 0),

		RedisAddress:  env.GetOrDefault("REDIS_ADDRESS", ""),
		RedisPassword: env.GetOrDefault("REDIS_PASSWORD", ""),

		RabbitURL:      env.GetOrDefault("RABBITMQ_URL", ""),
		RabbitExchange: env.GetOrDefault("RABBITMQ_EXCHANGE", "gst.events"),
	}
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg := loadConfig()

	level, err := logpkg.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logpkg.LevelInfo
	}

	logger := zaplog.New(level)
	defer logger.Sync()

	ctx := context.Background()

	var (
		clientRepo   client.Repository
		loanRepo     loan.Repository
		criteriaRepo provisioning.Repository
		directory    loan.ClientDirectory
		uow          storage.UnitOfWork
	)

	switch cfg.StorageDriver {
	case "memory":
		store := memory.NewStore()
		clientRepo, loanRepo, criteriaRepo, directory, uow = store, store, store, store, store
	case "postgres":
		// An empty migrations path disables the migration run on startup.
		migrationsPath := cfg.MigrationsPath
		if !cfg.AutoMigrate {
			migrationsPath = ""
		}

		store, err := postgres.Connect(ctx, postgres.Config{
			PrimaryDSN:     cfg.PrimaryDSN,
			ReplicaDSN:     cfg.ReplicaDSN,
			DatabaseName:   cfg.DatabaseName,
			MigrationsPath: migrationsPath,
			MaxOpenConns:   cfg.MaxOpenConns,
			MaxIdleConns:   cfg.MaxIdleConns,
		}, logger)
		if err != nil {
			return err
		}

		clientRepo, loanRepo, criteriaRepo, directory, uow = store, store, store, store, store
	default:
		return fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}

	locker, err := buildLocker(cfg)
	if err != nil {
		return err
	}

	publisher, err := buildPublisher(cfg, logger)
	if err != nil {
		return err
	}

	clients := client.NewService(clientRepo, logger)
	loans := loan.NewService(loanRepo, directory, locker, publisher, logger)
	criteria := provisioning.NewService(criteriaRepo, logger)

	registry, err := batch.NewPlatformRegistry(clients, loans, criteria)
	if err != nil {
		return err
	}

	engine := batch.NewEngine(registry, uow, logger)
	handler := server.NewBatchHandler(engine, publisher, logger)
	auth := server.FixedBasicAuthFunc(cfg.AuthUsername, cfg.AuthPassword)

	app := server.NewApp(handler, auth, logger)

	return server.Run(app, cfg.Address, logger)
}

// buildLocker returns a distributed lock manager when redis is configured,
// and a process-local one otherwise.
func buildLocker(cfg config) (storage.Locker, error) {
	if cfg.RedisAddress == "" {
		return storage.NewKeyedLocker(), nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
	})

	return redislock.NewManager(rdb)
}

func buildPublisher(cfg config, logger logpkg.Logger) (events.Publisher, error) {
	if cfg.RabbitURL == "" {
		return events.NopPublisher{}, nil
	}

	return events.NewRabbitPublisher(cfg.RabbitURL, cfg.RabbitExchange, logger)
}

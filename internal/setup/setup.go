// Package setup wires the configured collaborators of the affiliate mirror.
package setup

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/affiliates/internal/database"
	"github.com/robalyx/affiliates/internal/discord/client"
	"github.com/robalyx/affiliates/internal/discord/rate"
	"github.com/robalyx/affiliates/internal/redis"
	"github.com/robalyx/affiliates/internal/setup/config"
	"github.com/robalyx/affiliates/internal/setup/telemetry"
	"github.com/robalyx/affiliates/internal/snapshot"
	"github.com/robalyx/affiliates/internal/worker/mirror"
	"go.uber.org/zap"
)

// ErrPendingMigrations is returned when the database schema is behind and
// auto migration is off.
var ErrPendingMigrations = errors.New("database migrations are pending, run `affiliates db migrate`")

// App bundles all core dependencies needed by a sync run.
type App struct {
	Config       *config.Config
	Logger       *zap.Logger
	DBLogger     *zap.Logger
	LogManager   *telemetry.Manager
	Bot          bot.Client
	Discord      *client.Client
	Store        mirror.SnapshotStore
	DB           database.Client // Set for the postgres backend
	RedisManager *redis.Manager  // Set for the redis backend
	sqliteStore  *snapshot.SQLiteStore
}

// InitializeApp loads the configuration, starts logging and opens the
// Discord client and the snapshot store.
func InitializeApp(ctx context.Context, component string) (*App, error) {
	cfg, _, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	// Logging system is initialized next to capture setup issues
	logManager := telemetry.NewManager(component, &cfg.Debug, true)

	logger, dbLogger, err := logManager.GetLoggers()
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:     cfg,
		Logger:     logger,
		DBLogger:   dbLogger.Named("database"),
		LogManager: logManager,
	}

	botClient, err := disgo.New(cfg.Discord.Token)
	if err != nil {
		app.Cleanup(ctx)
		return nil, fmt.Errorf("failed to create discord client: %w", err)
	}

	app.Bot = botClient
	app.Discord = client.New(
		botClient.Rest(),
		client.Options{
			GuildID:         snowflake.ID(cfg.Discord.GuildID),
			SourceChannelID: snowflake.ID(cfg.Discord.SourceChannelID),
			TargetChannelID: snowflake.ID(cfg.Discord.TargetChannelID),
			AffiliateRoleID: snowflake.ID(cfg.Discord.AffiliateRoleID),
			AuditReason:     cfg.Discord.AuditReason,
		},
		rate.New(time.Duration(cfg.Discord.EmitInterval)*time.Millisecond, 0),
		logger,
	)

	if err := app.openStore(ctx); err != nil {
		app.Cleanup(ctx)
		return nil, err
	}

	logger.Info("Initialized application",
		zap.String("backend", cfg.Storage.Backend),
		zap.String("sessionDir", logManager.GetCurrentSessionDir()))

	return app, nil
}

// openStore opens the snapshot store of the configured backend.
func (s *App) openStore(ctx context.Context) error {
	storage := &s.Config.Storage

	switch storage.Backend {
	case config.BackendPostgres:
		db, err := checkMigrations(ctx, &storage.Postgres, s.DBLogger)
		if err != nil {
			return err
		}

		s.DB = db
		s.Store = db.Affiliates()

	case config.BackendSQLite:
		store, err := snapshot.NewSQLiteStore(storage.SQLite.Path, s.DBLogger)
		if err != nil {
			return err
		}

		s.sqliteStore = store
		s.Store = store

	case config.BackendRedis:
		s.RedisManager = redis.NewManager(&storage.Redis, s.Logger)

		redisClient, err := s.RedisManager.SnapshotClient()
		if err != nil {
			return err
		}

		s.Store = snapshot.NewRedisStore(redisClient, storage.Redis.Key, s.Logger)

	case config.BackendNone:
		s.Logger.Warn("No snapshot store configured, every contact is treated as new")
		s.Store = snapshot.NewEphemeral()

	default:
		return fmt.Errorf("%w: %q", config.ErrInvalidBackend, storage.Backend)
	}

	return nil
}

// Cleanup releases every component in reverse initialization order.
// Errors are logged so that every component gets a cleanup attempt.
func (s *App) Cleanup(ctx context.Context) {
	if s.Bot != nil {
		s.Bot.Close(ctx)
	}

	if s.DB != nil {
		if err := s.DB.Close(); err != nil {
			log.Printf("Failed to close database connection: %v", err)
		}
	}

	if s.sqliteStore != nil {
		if err := s.sqliteStore.Close(); err != nil {
			log.Printf("Failed to close sqlite store: %v", err)
		}
	}

	if s.RedisManager != nil {
		s.RedisManager.Close()
	}

	// Sync buffered logs before shutdown
	if err := s.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	if err := s.DBLogger.Sync(); err != nil {
		log.Printf("Failed to sync DB logger: %v", err)
	}

	if err := s.LogManager.Stop(); err != nil {
		log.Printf("Failed to close log files: %v", err)
	}
}

// checkMigrations connects to PostgreSQL and makes sure the schema is current,
// applying pending migrations when auto migration is enabled.
func checkMigrations(ctx context.Context, cfg *config.PostgreSQL, dbLogger *zap.Logger) (database.Client, error) {
	db, err := database.NewConnection(ctx, cfg, dbLogger, cfg.AutoMigrate)
	if err != nil {
		return nil, err
	}

	if cfg.AutoMigrate {
		return db, nil
	}

	ms, err := db.Migrator().MigrationsWithStatus(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to check migration status: %w", err)
	}

	if unapplied := ms.Unapplied(); len(unapplied) > 0 {
		db.Close()
		return nil, fmt.Errorf("%w: %s", ErrPendingMigrations, unapplied.String())
	}

	return db, nil
}

// InitializeDatabase loads the configuration and connects to PostgreSQL
// without touching migrations. It backs the database management commands.
func InitializeDatabase(ctx context.Context) (database.Client, *zap.Logger, error) {
	cfg, _, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	db, err := database.NewConnection(ctx, &cfg.Storage.Postgres, logger, false)
	if err != nil {
		return nil, logger, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, logger, nil
}

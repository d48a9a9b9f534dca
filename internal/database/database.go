package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/robalyx/affiliates/internal/database/dbretry"
	"github.com/robalyx/affiliates/internal/database/migrations"
	"github.com/robalyx/affiliates/internal/database/models"
	"github.com/robalyx/affiliates/internal/setup/config"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap"
)

// Client defines the methods that a database client must implement.
type Client interface {
	// Affiliates returns the affiliate snapshot model.
	Affiliates() *models.AffiliateModel
	// Migrator returns a migrator over the registered migrations.
	Migrator() *migrate.Migrator
	// Close gracefully shuts down the database connection.
	Close() error
}

// clientImpl represents the concrete implementation of the database client.
type clientImpl struct {
	db         *bun.DB
	logger     *zap.Logger
	affiliates *models.AffiliateModel
}

// NewConnection establishes a new database connection and returns a Client instance.
func NewConnection(
	ctx context.Context, config *config.PostgreSQL, logger *zap.Logger, autoMigrate bool,
) (Client, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(connectorOptions(config)...))

	// Set connection pool settings
	sqldb.SetMaxOpenConns(config.MaxOpenConns)
	sqldb.SetMaxIdleConns(config.MaxIdleConns)
	sqldb.SetConnMaxLifetime(time.Duration(config.MaxLifetime) * time.Minute)
	sqldb.SetConnMaxIdleTime(time.Duration(config.MaxIdleTime) * time.Minute)

	// Create Bun db instance
	db := bun.NewDB(sqldb, pgdialect.New())

	// Add query hook for monitoring
	db.AddQueryHook(NewHook(logger))

	// The server may still be starting when the job is scheduled
	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		return db.PingContext(ctx)
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	client := &clientImpl{
		db:         db,
		logger:     logger,
		affiliates: models.NewAffiliate(db, logger),
	}

	// Run migrations if requested
	if autoMigrate {
		if err := client.migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
	}

	logger.Info("Database connection established")

	return client, nil
}

// connectorOptions builds the driver options, preferring a DSN when one is set.
func connectorOptions(config *config.PostgreSQL) []pgdriver.Option {
	opts := []pgdriver.Option{pgdriver.WithApplicationName("affiliates")}

	if config.DSN != "" {
		return append(opts, pgdriver.WithDSN(config.DSN))
	}

	return append(opts,
		pgdriver.WithAddr(fmt.Sprintf("%s:%d", config.Host, config.Port)),
		pgdriver.WithUser(config.User),
		pgdriver.WithPassword(config.Password),
		pgdriver.WithDatabase(config.DBName),
		pgdriver.WithInsecure(true),
	)
}

// migrate applies pending migrations under the migration lock.
func (c *clientImpl) migrate(ctx context.Context) error {
	migrator := c.Migrator()
	if err := migrator.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}

	if err := migrator.Lock(ctx); err != nil {
		return fmt.Errorf("failed to lock migrations: %w", err)
	}
	defer migrator.Unlock(ctx) //nolint:errcheck

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if !group.IsZero() {
		c.logger.Info("Automatically ran migrations", zap.String("group", group.String()))
	}

	return nil
}

// Close gracefully shuts down the database connection.
func (c *clientImpl) Close() error {
	err := c.db.Close()
	if err != nil {
		c.logger.Error("Failed to close database connection", zap.Error(err))
		return err
	}

	c.logger.Info("Database connection closed")

	return nil
}

// Affiliates returns the affiliate snapshot model.
func (c *clientImpl) Affiliates() *models.AffiliateModel {
	return c.affiliates
}

// Migrator returns a migrator over the registered migrations.
func (c *clientImpl) Migrator() *migrate.Migrator {
	return migrate.NewMigrator(c.db, migrations.Migrations)
}

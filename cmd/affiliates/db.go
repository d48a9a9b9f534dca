package main

import (
	"context"

	"github.com/robalyx/affiliates/internal/setup"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// dbCommand manages the PostgreSQL schema of the snapshot store.
func dbCommand() *cli.Command {
	return &cli.Command{
		Name:  "db",
		Usage: "Database management tool",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Initialize migration tables",
				Action: withMigrator(func(ctx context.Context, _ *cli.Command, migrator *migrate.Migrator, logger *zap.Logger) error {
					if err := migrator.Init(ctx); err != nil {
						return err
					}

					logger.Info("Initialized migration tables")

					return nil
				}),
			},
			{
				Name:  "migrate",
				Usage: "Run pending migrations",
				Action: withMigrator(func(ctx context.Context, _ *cli.Command, migrator *migrate.Migrator, logger *zap.Logger) error {
					if err := migrator.Lock(ctx); err != nil {
						return err
					}
					defer migrator.Unlock(ctx) //nolint:errcheck

					group, err := migrator.Migrate(ctx)
					if err != nil {
						return err
					}

					if group.IsZero() {
						logger.Info("No new migrations to run (database is up to date)")
						return nil
					}

					logger.Info("Successfully migrated", zap.String("group", group.String()))

					return nil
				}),
			},
			{
				Name:  "rollback",
				Usage: "Rollback the last migration group",
				Action: withMigrator(func(ctx context.Context, _ *cli.Command, migrator *migrate.Migrator, logger *zap.Logger) error {
					if err := migrator.Lock(ctx); err != nil {
						return err
					}
					defer migrator.Unlock(ctx) //nolint:errcheck

					group, err := migrator.Rollback(ctx)
					if err != nil {
						return err
					}

					if group.IsZero() {
						logger.Info("No groups to roll back")
						return nil
					}

					logger.Info("Successfully rolled back", zap.String("group", group.String()))

					return nil
				}),
			},
			{
				Name:  "status",
				Usage: "Show migration status",
				Action: withMigrator(func(ctx context.Context, _ *cli.Command, migrator *migrate.Migrator, logger *zap.Logger) error {
					ms, err := migrator.MigrationsWithStatus(ctx)
					if err != nil {
						return err
					}

					logger.Info("Migration status",
						zap.String("migrations", ms.String()),
						zap.String("unapplied", ms.Unapplied().String()),
						zap.String("last_group", ms.LastGroup().String()),
					)

					return nil
				}),
			},
			{
				Name:      "create",
				Usage:     "Create a new Go migration file",
				ArgsUsage: "NAME",
				Action: withMigrator(func(ctx context.Context, c *cli.Command, migrator *migrate.Migrator, logger *zap.Logger) error {
					if c.Args().Len() != 1 {
						return ErrNameRequired
					}

					mf, err := migrator.CreateGoMigration(ctx, c.Args().First())
					if err != nil {
						return err
					}

					logger.Info("Created Go migration",
						zap.String("name", mf.Name),
						zap.String("path", mf.Path),
					)

					return nil
				}),
			},
		},
	}
}

type migratorAction func(ctx context.Context, c *cli.Command, migrator *migrate.Migrator, logger *zap.Logger) error

// withMigrator connects to the database for the duration of one command.
func withMigrator(action migratorAction) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		db, logger, err := setup.InitializeDatabase(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		return action(ctx, c, db.Migrator(), logger)
	}
}

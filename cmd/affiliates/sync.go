package main

import (
	"context"
	"fmt"

	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/affiliates/internal/announcement"
	"github.com/robalyx/affiliates/internal/setup"
	"github.com/robalyx/affiliates/internal/worker/mirror"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Run one mirror batch",
		Description: `Repost the latest affiliate announcements in the public channel and
grant the affiliate role to every listed contact. Contacts that are no longer
listed lose the role.

Examples:
  affiliates sync                          # Mirror the last 100 announcements
  affiliates sync --dry-run                # Log what would be posted and changed
  affiliates sync --report run.json        # Write a JSON summary of the run`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Log messages and role changes without applying them",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Number of recent announcements to process (0 = config value)",
				Value: 0,
			},
			&cli.StringFlag{
				Name:  "report",
				Usage: "Write a JSON run report to this file",
			},
		},
		Action: runSync,
	}
}

func runSync(ctx context.Context, c *cli.Command) error {
	app, err := setup.InitializeApp(ctx, "sync")
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.Cleanup(context.WithoutCancel(ctx))

	cfg := app.Config

	historyLimit := cfg.Discord.HistoryLimit
	if limit := int(c.Int("limit")); limit > 0 {
		historyLimit = limit
	}

	formatter := announcement.NewFormatter(snowflake.ID(cfg.Discord.AffiliateRoleID))

	worker := mirror.New(
		app.Discord, app.Discord, app.Discord, app.Store, formatter,
		mirror.Options{
			RunID:           app.LogManager.GetInstanceID(),
			HistoryLimit:    historyLimit,
			RoleConcurrency: cfg.Worker.RoleConcurrency,
			DryRun:          c.Bool("dry-run"),
		},
		app.Logger,
	)

	report, runErr := worker.Run(ctx)

	if path := c.String("report"); path != "" && report != nil {
		if err := report.WriteFile(path); err != nil {
			app.Logger.Error("Failed to write run report", zap.Error(err))
		} else {
			app.Logger.Info("Wrote run report", zap.String("path", path))
		}
	}

	return runErr
}

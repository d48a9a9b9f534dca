// Package mirror runs the affiliate mirror batch: it reposts the latest
// announcements in the public format and syncs the affiliate role with the
// contacts listed in them.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/affiliates/internal/affiliate"
	"github.com/robalyx/affiliates/internal/announcement"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

const (
	// DefaultHistoryLimit is the size of one Discord message page.
	DefaultHistoryLimit = 100
	// DefaultRoleConcurrency bounds the role requests in flight.
	DefaultRoleConcurrency = 4

	opAdd    = "add"
	opRemove = "remove"
)

// Options tune a run.
type Options struct {
	RunID           string
	HistoryLimit    int
	RoleConcurrency int
	DryRun          bool
}

// Worker mirrors announcements and reconciles the affiliate role.
type Worker struct {
	history         HistorySource
	sink            MessageSink
	roles           RoleManager
	store           SnapshotStore
	formatter       *announcement.Formatter
	logger          *zap.Logger
	runID           string
	historyLimit    int
	roleConcurrency int
	dryRun          bool
}

// New creates a mirror worker. In a dry run the sink and role manager are
// replaced by loggers and the snapshot is never stored.
func New(
	history HistorySource, sink MessageSink, roles RoleManager, store SnapshotStore,
	formatter *announcement.Formatter, opts Options, logger *zap.Logger,
) *Worker {
	logger = logger.Named("mirror_worker")

	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = DefaultHistoryLimit
	}

	if opts.RoleConcurrency <= 0 {
		opts.RoleConcurrency = DefaultRoleConcurrency
	}

	if opts.DryRun {
		sink = &logSink{logger: logger}
		roles = &logRoles{logger: logger}
	}

	return &Worker{
		history:         history,
		sink:            sink,
		roles:           roles,
		store:           store,
		formatter:       formatter,
		logger:          logger,
		runID:           opts.RunID,
		historyLimit:    opts.HistoryLimit,
		roleConcurrency: opts.RoleConcurrency,
		dryRun:          opts.DryRun,
	}
}

// Run performs one batch. Only history and snapshot failures are returned;
// failed messages and role changes are logged and listed in the report.
func (w *Worker) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		RunID:     w.runID,
		StartedAt: time.Now(),
		DryRun:    w.dryRun,
	}
	defer func() {
		report.Duration = time.Since(report.StartedAt)
	}()

	w.logger.Info("Mirror run started",
		zap.String("runID", w.runID),
		zap.Int("historyLimit", w.historyLimit),
		zap.Bool("dryRun", w.dryRun))

	items, err := w.history.FetchRecent(ctx, w.historyLimit)
	if err != nil {
		w.logger.Error("Failed to fetch announcements", zap.Error(err))
		return report, fmt.Errorf("%w: %w", ErrFetchHistory, err)
	}

	report.Fetched = len(items)

	// History arrives newest first, mirror oldest first
	slices.Reverse(items)

	err = w.store.Swap(ctx, func(ctx context.Context, previous affiliate.Set) (affiliate.Set, error) {
		current := w.mirrorItems(ctx, items, report)
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		plan := affiliate.Reconcile(previous, current)
		report.Affiliates = current.Uint64s()

		w.logger.Info("Reconciling affiliate role",
			zap.Int("previous", previous.Len()),
			zap.Int("current", current.Len()),
			zap.Int("toAdd", plan.ToAdd.Len()),
			zap.Int("toRemove", plan.ToRemove.Len()))

		w.applyPlan(ctx, plan, report)

		if w.dryRun {
			return nil, errDryRun
		}

		return current, nil
	})

	switch {
	case errors.Is(err, errDryRun):
		w.logger.Info("Dry run finished, snapshot left unchanged")
	case err != nil:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return report, ctxErr
		}

		w.logger.Error("Failed to store affiliate snapshot", zap.Error(err))

		return report, fmt.Errorf("%w: %w", ErrSnapshot, err)
	default:
		report.SnapshotStored = true
	}

	w.logger.Info("Mirror run finished",
		zap.Int("fetched", report.Fetched),
		zap.Int("actionable", report.Actionable),
		zap.Int("emitted", report.Emitted),
		zap.Int("sendFailures", len(report.SendFailures)),
		zap.Int("added", len(report.Added)),
		zap.Int("removed", len(report.Removed)),
		zap.Int("roleFailures", len(report.RoleFailures)))

	return report, nil
}

// mirrorItems posts every actionable item in order and returns the contacts
// found across them. Emits run one at a time so the destination keeps the order.
func (w *Worker) mirrorItems(ctx context.Context, items []announcement.Item, report *Report) affiliate.Set {
	current := affiliate.NewSet()

	for _, item := range items {
		if ctx.Err() != nil {
			break
		}

		fields, ok := announcement.Extract(item)
		if !ok {
			w.logger.Debug("Skipping message without a complete embed", zap.Uint64("messageID", uint64(item.ID)))
			continue
		}

		report.Actionable++

		// A failed send does not make the listed contacts any less affiliated
		current.Add(fields.ContactIDs()...)

		content := w.formatter.Format(fields)
		if err := w.sink.Emit(ctx, content); err != nil {
			w.logger.Error("Failed to send message",
				zap.Error(err),
				zap.Uint64("messageID", uint64(item.ID)),
				zap.Int("length", len(content)))

			report.SendFailures = append(report.SendFailures, ItemFailure{
				MessageID: uint64(item.ID),
				Error:     fmt.Errorf("%w: %w", ErrSendMessage, err).Error(),
			})

			continue
		}

		report.Emitted++
	}

	return current
}

// applyPlan grants the role to new affiliates, then revokes it from former ones.
func (w *Worker) applyPlan(ctx context.Context, plan affiliate.Plan, report *Report) {
	// Issued role requests run to completion even if the run is cancelled
	ctx = context.WithoutCancel(ctx)

	added, failures := w.applyRoles(ctx, plan.ToAdd, opAdd, w.roles.AddRole)
	report.Added = added
	report.RoleFailures = append(report.RoleFailures, failures...)

	removed, failures := w.applyRoles(ctx, plan.ToRemove, opRemove, w.roles.RemoveRole)
	report.Removed = removed
	report.RoleFailures = append(report.RoleFailures, failures...)
}

// roleResult is the outcome of one role request.
type roleResult struct {
	userID snowflake.ID
	err    error
}

// applyRoles runs op for every user on a bounded pool and waits for all of them.
func (w *Worker) applyRoles(
	ctx context.Context, users affiliate.Set, operation string, op func(context.Context, snowflake.ID) error,
) ([]uint64, []RoleFailure) {
	done := make([]uint64, 0, users.Len())
	if users.Len() == 0 {
		return done, nil
	}

	p := pool.NewWithResults[roleResult]().WithMaxGoroutines(w.roleConcurrency)
	for _, userID := range users.Sorted() {
		p.Go(func() roleResult {
			return roleResult{userID: userID, err: op(ctx, userID)}
		})
	}

	var failures []RoleFailure

	for _, result := range p.Wait() {
		if result.err != nil {
			w.logger.Error("Failed to update affiliate role",
				zap.Error(result.err),
				zap.String("operation", operation),
				zap.Uint64("userID", uint64(result.userID)))

			failures = append(failures, RoleFailure{
				UserID:    uint64(result.userID),
				Operation: operation,
				Error:     fmt.Errorf("%w: %w", ErrRoleOperation, result.err).Error(),
			})

			continue
		}

		done = append(done, uint64(result.userID))
	}

	slices.Sort(done)

	return done, failures
}

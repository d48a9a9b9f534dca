package models

import (
	"context"
	"fmt"

	"github.com/robalyx/affiliates/internal/affiliate"
	"github.com/robalyx/affiliates/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// AffiliateModel handles database operations for the affiliate snapshot.
type AffiliateModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewAffiliate creates a new affiliate model instance.
func NewAffiliate(db *bun.DB, logger *zap.Logger) *AffiliateModel {
	return &AffiliateModel{
		db:     db,
		logger: logger.Named("db_affiliate"),
	}
}

// Swap deletes the stored affiliates, hands them to fn and inserts the set fn
// returns, all in one transaction. The table lock makes concurrent runs wait
// for each other instead of losing updates. An error from fn rolls back.
func (m *AffiliateModel) Swap(ctx context.Context, fn affiliate.SwapFunc) error {
	return m.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.ExecContext(ctx, "LOCK TABLE affiliates IN SHARE ROW EXCLUSIVE MODE"); err != nil {
			return fmt.Errorf("failed to lock affiliates: %w", err)
		}

		var removed []types.Affiliate

		err := tx.NewDelete().
			Model(&removed).
			Where("TRUE").
			Returning("user_id").
			Scan(ctx)
		if err != nil {
			return fmt.Errorf("failed to clear affiliates: %w", err)
		}

		previous := affiliate.NewSet()
		for _, row := range removed {
			previous.Add(row.UserID)
		}

		current, err := fn(ctx, previous)
		if err != nil {
			return err
		}

		if current.Len() > 0 {
			rows := make([]types.Affiliate, 0, current.Len())
			for _, userID := range current.Sorted() {
				rows = append(rows, types.Affiliate{UserID: userID})
			}

			if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
				return fmt.Errorf("failed to insert affiliates: %w", err)
			}
		}

		m.logger.Debug("Swapped affiliate snapshot",
			zap.Int("previous", previous.Len()),
			zap.Int("current", current.Len()))

		return nil
	})
}

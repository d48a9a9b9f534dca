package mirror

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/affiliates/internal/affiliate"
	"github.com/robalyx/affiliates/internal/announcement"
)

// HistorySource fetches the most recent announcements, newest first.
type HistorySource interface {
	FetchRecent(ctx context.Context, limit int) ([]announcement.Item, error)
}

// MessageSink posts mirrored content to the destination channel.
// Implementations must suppress mention pings.
type MessageSink interface {
	Emit(ctx context.Context, content string) error
}

// RoleManager grants and revokes the affiliate role.
type RoleManager interface {
	AddRole(ctx context.Context, userID snowflake.ID) error
	RemoveRole(ctx context.Context, userID snowflake.ID) error
}

// SnapshotStore holds the affiliate set between runs. Swap reads and replaces
// the stored set in one transaction; an error from fn leaves it unchanged.
type SnapshotStore interface {
	Swap(ctx context.Context, fn affiliate.SwapFunc) error
}

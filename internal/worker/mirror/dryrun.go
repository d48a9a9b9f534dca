package mirror

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
	"go.uber.org/zap"
)

// logSink prints messages instead of sending them.
type logSink struct {
	logger *zap.Logger
}

func (s *logSink) Emit(_ context.Context, content string) error {
	s.logger.Info("Dry run message", zap.String("content", content))
	return nil
}

// logRoles prints role changes instead of applying them.
type logRoles struct {
	logger *zap.Logger
}

func (r *logRoles) AddRole(_ context.Context, userID snowflake.ID) error {
	r.logger.Info("Dry run role add", zap.Uint64("userID", uint64(userID)))
	return nil
}

func (r *logRoles) RemoveRole(_ context.Context, userID snowflake.ID) error {
	r.logger.Info("Dry run role remove", zap.Uint64("userID", uint64(userID)))
	return nil
}

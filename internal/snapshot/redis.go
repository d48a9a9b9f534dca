package snapshot

import (
	"context"
	"fmt"
	"strconv"

	"github.com/disgoorg/snowflake/v2"
	"github.com/redis/rueidis"
	"github.com/robalyx/affiliates/internal/affiliate"
	"go.uber.org/zap"
)

// DefaultRedisKey holds the affiliate set when no key is configured.
const DefaultRedisKey = "affiliates:snapshot"

// RedisStore keeps the snapshot in a Redis set.
type RedisStore struct {
	client rueidis.Client
	key    string
	logger *zap.Logger
}

// NewRedisStore creates a store using the set at key.
func NewRedisStore(client rueidis.Client, key string, logger *zap.Logger) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}

	return &RedisStore{
		client: client,
		key:    key,
		logger: logger.Named("redis_snapshot"),
	}
}

// Swap watches the key for the whole run and replaces the set in a MULTI/EXEC
// block. If another run touched the key in between, nothing is written and
// ErrConflict is returned.
func (s *RedisStore) Swap(ctx context.Context, fn affiliate.SwapFunc) error {
	return s.client.Dedicated(func(c rueidis.DedicatedClient) error {
		if err := c.Do(ctx, c.B().Watch().Key(s.key).Build()).Error(); err != nil {
			return fmt.Errorf("failed to watch snapshot: %w", err)
		}

		members, err := c.Do(ctx, c.B().Smembers().Key(s.key).Build()).AsStrSlice()
		if err != nil {
			c.Do(context.Background(), c.B().Unwatch().Build())
			return fmt.Errorf("failed to read snapshot: %w", err)
		}

		previous := affiliate.NewSet()
		for _, member := range members {
			id, err := strconv.ParseUint(member, 10, 64)
			if err != nil {
				s.logger.Warn("Ignoring malformed snapshot member", zap.String("member", member))
				continue
			}

			previous.Add(snowflake.ID(id))
		}

		current, err := fn(ctx, previous)
		if err != nil {
			c.Do(context.Background(), c.B().Unwatch().Build())
			return err
		}

		cmds := rueidis.Commands{
			c.B().Multi().Build(),
			c.B().Del().Key(s.key).Build(),
		}

		if current.Len() > 0 {
			ids := make([]string, 0, current.Len())
			for _, id := range current.Sorted() {
				ids = append(ids, id.String())
			}

			cmds = append(cmds, c.B().Sadd().Key(s.key).Member(ids...).Build())
		}

		cmds = append(cmds, c.B().Exec().Build())

		resps := c.DoMulti(ctx, cmds...)
		for _, resp := range resps[:len(resps)-1] {
			if err := resp.Error(); err != nil {
				return fmt.Errorf("failed to queue snapshot update: %w", err)
			}
		}

		if err := resps[len(resps)-1].Error(); err != nil {
			if rueidis.IsRedisNil(err) {
				return ErrConflict
			}

			return fmt.Errorf("failed to store snapshot: %w", err)
		}

		s.logger.Debug("Stored affiliate snapshot",
			zap.Int("previous", previous.Len()),
			zap.Int("current", current.Len()))

		return nil
	})
}

// Package client adapts the Discord REST API to the collaborators the mirror
// worker needs.
package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/affiliates/internal/announcement"
	"github.com/robalyx/affiliates/internal/discord/rate"
	"go.uber.org/zap"
)

// maxPageSize is the most messages Discord returns per history request.
const maxPageSize = 100

// ErrInvalidLimit is returned when a history fetch asks for no messages.
var ErrInvalidLimit = errors.New("history limit must be positive")

// API is the subset of the disgo REST client the adapter calls.
type API interface {
	GetMessages(
		channelID, around, before, after snowflake.ID, limit int, opts ...rest.RequestOpt,
	) ([]discord.Message, error)
	CreateMessage(
		channelID snowflake.ID, messageCreate discord.MessageCreate, opts ...rest.RequestOpt,
	) (*discord.Message, error)
	AddMemberRole(guildID, userID, roleID snowflake.ID, opts ...rest.RequestOpt) error
	RemoveMemberRole(guildID, userID, roleID snowflake.ID, opts ...rest.RequestOpt) error
}

// Options identify the guild objects the adapter works on.
type Options struct {
	GuildID         snowflake.ID
	SourceChannelID snowflake.ID
	TargetChannelID snowflake.ID
	AffiliateRoleID snowflake.ID
	AuditReason     string
}

// Client reads the source channel, posts to the target channel and manages
// the affiliate role.
type Client struct {
	api     API
	opts    Options
	limiter *rate.Limiter
	logger  *zap.Logger
}

// New creates a Discord adapter. A nil limiter sends without pacing.
func New(api API, opts Options, limiter *rate.Limiter, logger *zap.Logger) *Client {
	return &Client{
		api:     api,
		opts:    opts,
		limiter: limiter,
		logger:  logger.Named("discord_client"),
	}
}

// FetchRecent returns up to limit messages from the source channel, newest
// first. Limits above one page are fetched page by page.
func (c *Client) FetchRecent(ctx context.Context, limit int) ([]announcement.Item, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	items := make([]announcement.Item, 0, limit)
	before := snowflake.ID(0)

	for len(items) < limit {
		page := min(limit-len(items), maxPageSize)

		messages, err := c.api.GetMessages(c.opts.SourceChannelID, 0, before, 0, page, rest.WithCtx(ctx))
		if err != nil {
			return nil, fmt.Errorf("failed to fetch messages from %d: %w", c.opts.SourceChannelID, err)
		}

		for _, message := range messages {
			items = append(items, ToItem(message))
		}

		if len(messages) < page {
			break
		}

		before = messages[len(messages)-1].ID
	}

	c.logger.Debug("Fetched announcement history",
		zap.Uint64("channelID", uint64(c.opts.SourceChannelID)),
		zap.Int("count", len(items)))

	return items, nil
}

// Emit posts content to the target channel with every mention ping disabled.
func (c *Client) Emit(ctx context.Context, content string) error {
	if err := c.limiter.WaitForNextSlot(ctx); err != nil {
		return err
	}

	message := discord.NewMessageCreateBuilder().
		SetContent(content).
		SetAllowedMentions(&discord.AllowedMentions{Parse: []discord.AllowedMentionType{}}).
		Build()

	if _, err := c.api.CreateMessage(c.opts.TargetChannelID, message, rest.WithCtx(ctx)); err != nil {
		return fmt.Errorf("failed to send message to %d: %w", c.opts.TargetChannelID, err)
	}

	return nil
}

// AddRole grants the affiliate role to userID.
func (c *Client) AddRole(ctx context.Context, userID snowflake.ID) error {
	err := c.api.AddMemberRole(c.opts.GuildID, userID, c.opts.AffiliateRoleID, c.requestOpts(ctx)...)
	if err != nil {
		return fmt.Errorf("failed to add role to %d: %w", userID, err)
	}

	return nil
}

// RemoveRole revokes the affiliate role from userID.
func (c *Client) RemoveRole(ctx context.Context, userID snowflake.ID) error {
	err := c.api.RemoveMemberRole(c.opts.GuildID, userID, c.opts.AffiliateRoleID, c.requestOpts(ctx)...)
	if err != nil {
		return fmt.Errorf("failed to remove role from %d: %w", userID, err)
	}

	return nil
}

func (c *Client) requestOpts(ctx context.Context) []rest.RequestOpt {
	opts := []rest.RequestOpt{rest.WithCtx(ctx)}
	if c.opts.AuditReason != "" {
		opts = append(opts, rest.WithReason(c.opts.AuditReason))
	}

	return opts
}

// ToItem converts a Discord message into an announcement item carrying its
// first embed.
func ToItem(message discord.Message) announcement.Item {
	item := announcement.Item{ID: message.ID}
	if len(message.Embeds) == 0 {
		return item
	}

	embed := message.Embeds[0]
	item.Embed = &announcement.Embed{
		Title:       embed.Title,
		Description: embed.Description,
		URL:         embed.URL,
	}

	if embed.Footer != nil {
		item.Embed.Footer = embed.Footer.Text
	}

	for _, field := range embed.Fields {
		item.Embed.Fields = append(item.Embed.Fields, announcement.Field{
			Name:  field.Name,
			Value: field.Value,
		})
	}

	return item
}

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrAlreadySubscribed is returned when adding a channel that already has a subscription.
	ErrAlreadySubscribed = errors.New("channel is already subscribed")
	// ErrNotSubscribed is returned when changing or removing a channel without a subscription.
	ErrNotSubscribed = errors.New("channel is not subscribed")
)

// Channel is a subscribed channel and its delivery preferences.
type Channel struct {
	GuildID          string    `json:"guild_id"`
	ChannelID        string    `json:"channel_id"`
	ScoringPlaysOnly bool      `json:"scoring_plays_only"`
	DelaySeconds     int       `json:"delay_seconds"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// SubscriptionRepo persists subscribed channels.
type SubscriptionRepo struct {
	DB *sql.DB
}

// Add inserts a subscription. At most one row exists per (guild, channel).
func (r *SubscriptionRepo) Add(ctx context.Context, c Channel) error {
	res, err := r.DB.ExecContext(ctx, `INSERT INTO subscribed_channels (guild_id, channel_id, scoring_plays_only, delay_seconds, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (guild_id, channel_id) DO NOTHING`, c.GuildID, c.ChannelID, c.ScoringPlaysOnly, c.DelaySeconds)
	if err != nil {
		return fmt.Errorf("add subscription: %w", err)
	}
	return requireRow(res, ErrAlreadySubscribed)
}

// UpdatePreference changes the delivery preferences of an existing subscription.
func (r *SubscriptionRepo) UpdatePreference(ctx context.Context, guildID, channelID string, scoringPlaysOnly bool, delaySeconds int) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE subscribed_channels SET scoring_plays_only = $3, delay_seconds = $4, updated_at = NOW()
		WHERE guild_id = $1 AND channel_id = $2`, guildID, channelID, scoringPlaysOnly, delaySeconds)
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	return requireRow(res, ErrNotSubscribed)
}

// Remove deletes a subscription.
func (r *SubscriptionRepo) Remove(ctx context.Context, guildID, channelID string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM subscribed_channels WHERE guild_id = $1 AND channel_id = $2`, guildID, channelID)
	if err != nil {
		return fmt.Errorf("remove subscription: %w", err)
	}
	return requireRow(res, ErrNotSubscribed)
}

// List returns every subscription ordered by creation time.
func (r *SubscriptionRepo) List(ctx context.Context) ([]Channel, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT guild_id, channel_id, scoring_plays_only, delay_seconds, created_at, updated_at
		FROM subscribed_channels ORDER BY created_at, channel_id`)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()
	var out []Channel
	for rows.Next() {
		var c Channel
		var created, updated sql.NullTime
		if err := rows.Scan(&c.GuildID, &c.ChannelID, &c.ScoringPlaysOnly, &c.DelaySeconds, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		c.CreatedAt = created.Time
		c.UpdatedAt = updated.Time
		out = append(out, c)
	}
	return out, rows.Err()
}

func requireRow(res sql.Result, none error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return none
	}
	return nil
}

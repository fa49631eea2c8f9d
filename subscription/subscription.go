// Package subscription manages the channels that receive live game updates. The list
// is cached in memory for the play dispatcher and reloaded after every change.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/disgoorg/snowflake/v2"

	"github.com/onnwee/gameday-bot/db"
	"github.com/onnwee/gameday-bot/telemetry"
)

// ErrInvalidID is returned for guild or channel ids that are not Discord snowflakes.
var ErrInvalidID = errors.New("invalid discord id")

// ErrInvalidDelay is returned for negative delays.
var ErrInvalidDelay = errors.New("delay must not be negative")

// Repository persists subscriptions; *db.SubscriptionRepo implements it.
type Repository interface {
	Add(ctx context.Context, c db.Channel) error
	UpdatePreference(ctx context.Context, guildID, channelID string, scoringPlaysOnly bool, delaySeconds int) error
	Remove(ctx context.Context, guildID, channelID string) error
	List(ctx context.Context) ([]db.Channel, error)
}

// Service wraps a Repository with a read cache.
type Service struct {
	repo Repository

	mu       sync.RWMutex
	channels []db.Channel
}

// NewService creates a service; call Refresh to populate the cache.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Refresh reloads the cache from the repository.
func (s *Service) Refresh(ctx context.Context) error {
	list, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("refresh subscriptions: %w", err)
	}
	s.mu.Lock()
	s.channels = list
	s.mu.Unlock()
	telemetry.SetSubscribedChannels(len(list))
	return nil
}

// Channels returns a copy of the cached subscriptions.
func (s *Service) Channels() []db.Channel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]db.Channel(nil), s.channels...)
}

// Subscribe adds a channel. It fails with db.ErrAlreadySubscribed when the channel is
// already subscribed.
func (s *Service) Subscribe(ctx context.Context, guildID, channelID string, scoringPlaysOnly bool, delaySeconds int) error {
	if err := validate(guildID, channelID, delaySeconds); err != nil {
		return err
	}
	err := s.repo.Add(ctx, db.Channel{
		GuildID:          guildID,
		ChannelID:        channelID,
		ScoringPlaysOnly: scoringPlaysOnly,
		DelaySeconds:     delaySeconds,
	})
	return s.afterMutation(ctx, "subscribe", channelID, err)
}

// UpdatePreference changes the filter and delay of a subscribed channel. It fails with
// db.ErrNotSubscribed when the channel is not subscribed.
func (s *Service) UpdatePreference(ctx context.Context, guildID, channelID string, scoringPlaysOnly bool, delaySeconds int) error {
	if err := validate(guildID, channelID, delaySeconds); err != nil {
		return err
	}
	err := s.repo.UpdatePreference(ctx, guildID, channelID, scoringPlaysOnly, delaySeconds)
	return s.afterMutation(ctx, "update_preference", channelID, err)
}

// Unsubscribe removes a channel.
func (s *Service) Unsubscribe(ctx context.Context, guildID, channelID string) error {
	if err := validate(guildID, channelID, 0); err != nil {
		return err
	}
	err := s.repo.Remove(ctx, guildID, channelID)
	return s.afterMutation(ctx, "unsubscribe", channelID, err)
}

func (s *Service) afterMutation(ctx context.Context, op, channelID string, err error) error {
	if err != nil {
		return err
	}
	slog.Info("subscription changed",
		slog.String("component", "subscription"),
		slog.String("op", op),
		slog.String("channel_id", channelID))
	return s.Refresh(ctx)
}

func validate(guildID, channelID string, delaySeconds int) error {
	if _, err := snowflake.Parse(guildID); err != nil {
		return fmt.Errorf("%w: guild %q", ErrInvalidID, guildID)
	}
	if _, err := snowflake.Parse(channelID); err != nil {
		return fmt.Errorf("%w: channel %q", ErrInvalidID, channelID)
	}
	if delaySeconds < 0 {
		return ErrInvalidDelay
	}
	return nil
}

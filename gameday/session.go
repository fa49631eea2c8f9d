package gameday

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/onnwee/gameday-bot/gamestate"
	"github.com/onnwee/gameday-bot/mlbapi"
	"github.com/onnwee/gameday-bot/telemetry"
)

// ErrGameFinished is returned by Session.Run when the provider announced the end of
// the game.
var ErrGameFinished = errors.New("gameday: game finished")

// FeedSource fetches live feed documents.
type FeedSource interface {
	LiveFeed(ctx context.Context, gamePk int) ([]byte, error)
	LiveFeedAt(ctx context.Context, gamePk int, updateID string) ([]byte, error)
	DiffPatch(ctx context.Context, gamePk int, updateID, startTimecode string) (mlbapi.Diff, error)
}

// Session consumes the push notifications of one game sequentially. Each
// notification is merged into the store and followed by a reporting pass.
type Session struct {
	Store    *gamestate.Store
	Feed     FeedSource
	Reporter *Reporter
}

// Run handles notifications until the channel closes, ctx ends or the game finishes.
// A closed channel returns nil so the caller can reconnect.
func (s *Session) Run(ctx context.Context, updates <-chan mlbapi.Notification) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n, ok := <-updates:
			if !ok {
				return nil
			}
			err := s.Handle(ctx, n)
			if errors.Is(err, ErrGameFinished) {
				return err
			}
			if err != nil {
				slog.Error("problem processing a gameday event",
					slog.String("component", "session"),
					slog.Int("game_pk", s.Store.GamePk()),
					slog.String("update_id", n.UpdateID),
					slog.Any("err", err))
			}
		}
	}
}

// Handle processes a single notification.
func (s *Session) Handle(ctx context.Context, n mlbapi.Notification) error {
	telemetry.Inc(telemetry.NotificationsReceived)
	if s.Store.SeenNotification(n.TimeStamp, n.Length) {
		telemetry.Inc(telemetry.DuplicateNotifications)
		slog.Debug("duplicate notification; disregarding",
			slog.String("component", "session"),
			slog.String("update_id", n.UpdateID))
		return nil
	}
	if s.Store.Finished() {
		return ErrGameFinished
	}
	if n.HasGameEvent("game_finished") {
		s.Store.MarkFinished()
		slog.Info("notified of game conclusion",
			slog.String("component", "session"),
			slog.Int("game_pk", s.Store.GamePk()))
		return ErrGameFinished
	}

	ctx = telemetry.WithCorrelation(ctx, uuid.NewString())
	ctx, span := telemetry.StartSpan(ctx, "gameday", "gameday.update",
		telemetry.GamePkAttr(s.Store.GamePk()),
		telemetry.UpdateIDAttr(n.UpdateID))
	defer span.End()

	var err error
	telemetry.TimeFunc(telemetry.UpdateDuration, func() {
		err = s.update(ctx, n)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	telemetry.SetSpanSuccess(span)
	return nil
}

func (s *Session) update(ctx context.Context, n mlbapi.Notification) error {
	gamePk := s.Store.GamePk()
	log := telemetry.LoggerWithCorr(ctx).With(slog.String("component", "session"), slog.String("update_id", n.UpdateID))

	if n.IsFullRefresh() {
		log.Debug("full refresh requested")
		raw, err := s.Feed.LiveFeedAt(ctx, gamePk, n.UpdateID)
		if err != nil {
			return fmt.Errorf("full refresh: %w", err)
		}
		return s.replaceAndReport(ctx, raw)
	}

	diff, err := s.Feed.DiffPatch(ctx, gamePk, n.UpdateID, s.Store.TimeStamp())
	if err != nil {
		return fmt.Errorf("fetch diff: %w", err)
	}
	if diff.IsFull() {
		return s.replaceAndReport(ctx, diff.Full)
	}
	for i, p := range diff.Patches {
		if err := s.Store.ApplyPatch(p.Diff); err != nil {
			telemetry.Inc(telemetry.MergeFailures)
			log.Warn("patch failed; refetching live feed", slog.Int("patch", i), slog.Any("err", err))
			raw, ferr := s.Feed.LiveFeed(ctx, gamePk)
			if ferr != nil {
				return fmt.Errorf("refetch after failed merge: %w", ferr)
			}
			if rerr := s.Store.Replace(raw); rerr != nil {
				return fmt.Errorf("refetch after failed merge: %w", rerr)
			}
		}
		s.Reporter.Report(ctx, s.Store)
	}
	return nil
}

func (s *Session) replaceAndReport(ctx context.Context, raw []byte) error {
	if err := s.Store.Replace(raw); err != nil {
		return err
	}
	telemetry.Inc(telemetry.FullRefreshes)
	s.Reporter.Report(ctx, s.Store)
	return nil
}

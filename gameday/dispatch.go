package gameday

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/onnwee/gameday-bot/db"
	"github.com/onnwee/gameday-bot/discord"
	"github.com/onnwee/gameday-bot/mlbapi"
	"github.com/onnwee/gameday-bot/telemetry"
)

// Messenger delivers play messages and edits them later.
type Messenger interface {
	Send(ctx context.Context, channelID string, embed discord.Embed) (discord.Message, error)
	Edit(ctx context.Context, msg discord.Message, embed discord.Embed) error
}

// Subscribers lists the channels that receive plays.
type Subscribers interface {
	Channels() []db.Channel
}

// AtBatSource looks up an at-bat of the tracked game by index.
type AtBatSource interface {
	AtBat(index int) *mlbapi.AtBat
}

// Dispatch is one claimed play ready to fan out.
type Dispatch struct {
	GamePk     int
	VenueID    int
	Title      string
	Color      int
	Extraction Extraction
	AtBats     AtBatSource
}

// Dispatcher fans a play out to every subscribed channel. Immediate sends happen in
// channel order on the caller's goroutine; delayed sends fire from timers and always
// fire, there is no cancellation. Every delivered message gets its own backfill.
type Dispatcher struct {
	Messenger   Messenger
	Subscribers Subscribers
	Backfill    *Backfiller

	// DelayUnit scales a channel's delay; one second in production.
	DelayUnit time.Duration
	// SendTimeout bounds each send.
	SendTimeout time.Duration

	wg sync.WaitGroup
}

func (d *Dispatcher) delayUnit() time.Duration {
	if d.DelayUnit > 0 {
		return d.DelayUnit
	}
	return time.Second
}

func (d *Dispatcher) sendTimeout() time.Duration {
	if d.SendTimeout > 0 {
		return d.SendTimeout
	}
	return 15 * time.Second
}

// Dispatch sends item to all subscribed channels according to their preferences.
func (d *Dispatcher) Dispatch(ctx context.Context, item Dispatch) {
	ex := item.Extraction
	for _, ch := range d.Subscribers.Channels() {
		if ch.ScoringPlaysOnly && !ex.IsScoringPlay() {
			slog.Debug("skipping channel: scoring plays only",
				slog.String("component", "dispatch"),
				slog.String("channel_id", ch.ChannelID))
			continue
		}
		if ch.DelaySeconds <= 0 || ex.IsStartEvent {
			d.deliver(ctx, ch.ChannelID, item)
			continue
		}
		delay := time.Duration(ch.DelaySeconds) * d.delayUnit()
		slog.Debug("scheduling delayed send",
			slog.String("component", "dispatch"),
			slog.String("channel_id", ch.ChannelID),
			slog.Duration("delay", delay))
		channelID := ch.ChannelID
		// detached so a scheduled send still fires after the notification is handled
		detached := context.WithoutCancel(ctx)
		d.wg.Add(1)
		time.AfterFunc(delay, func() {
			defer d.wg.Done()
			d.deliver(detached, channelID, item)
		})
	}
}

// deliver sends one message and starts its backfill.
func (d *Dispatcher) deliver(ctx context.Context, channelID string, item Dispatch) {
	content := item.Extraction.Content.Clone()
	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout())
	msg, err := d.Messenger.Send(sendCtx, channelID, discord.Embed{
		Title:       item.Title,
		Description: content.Render(),
		Color:       item.Color,
	})
	cancel()
	if err != nil {
		class := discord.ClassifyError(err)
		telemetry.IncClass(telemetry.MessagesFailed, class.String())
		telemetry.LoggerWithCorr(ctx).Error("send play failed",
			slog.String("component", "dispatch"),
			slog.String("channel_id", channelID),
			slog.String("class", class.String()),
			slog.Int("at_bat_index", item.Extraction.Play.AtBatIndex),
			slog.Any("err", err))
		return
	}
	telemetry.Inc(telemetry.MessagesSent)
	if d.Backfill != nil {
		d.Backfill.Start(ctx, item, msg, content)
	}
}

// Wait blocks until every scheduled send and backfill has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
	if d.Backfill != nil {
		d.Backfill.Wait()
	}
}

package gameday

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/onnwee/gameday-bot/discord"
	"github.com/onnwee/gameday-bot/mlbapi"
	"github.com/onnwee/gameday-bot/poll"
	"github.com/onnwee/gameday-bot/telemetry"
)

// MetricsSource is the advanced metrics feed.
type MetricsSource interface {
	GameFeed(ctx context.Context, gamePk int) (*mlbapi.SavantFeed, error)
	XParks(ctx context.Context, gamePk int, playID string) (*mlbapi.XParks, error)
}

// parkOutliers are HR/Park counts rare enough to name the parks.
var parkOutliers = []int{1, 2, 3, 27, 28, 29}

const totalParks = 30

// Backfiller edits sent messages as advanced metrics become available. Each message
// is tracked by its own goroutine; fetches for the same game are coalesced by the
// metrics client.
type Backfiller struct {
	Metrics     MetricsSource
	Messenger   Messenger
	Interval    time.Duration
	MaxAttempts int

	wg sync.WaitGroup
}

// tracker is the backfill state of one sent message.
type tracker struct {
	msg     discord.Message
	title   string
	color   int
	content Content
}

func (t *tracker) embed() discord.Embed {
	return discord.Embed{Title: t.title, Description: t.content.Render(), Color: t.color}
}

// Start begins backfill for one delivered message and returns immediately. Balls in
// play are polled for xBA and HR/Park; strikeouts get a single zone check.
func (b *Backfiller) Start(ctx context.Context, item Dispatch, msg discord.Message, content Content) {
	ex := item.Extraction
	tr := &tracker{msg: msg, title: item.Title, color: item.Color, content: content}
	// trackers end on their own budget, not with the session that sent the message
	ctx = context.WithoutCancel(ctx)
	log := telemetry.LoggerWithCorr(ctx).With(
		slog.String("component", "backfill"),
		slog.String("message_id", msg.ID),
		slog.Int("at_bat_index", ex.Play.AtBatIndex))

	switch {
	case ex.IsInPlay():
		if !tr.content.Pending() {
			return
		}
		if ex.PlayID() == "" {
			log.Info("play has no play id; metrics not available")
			if tr.content.GiveUp() {
				b.edit(ctx, tr)
			}
			return
		}
		b.wg.Add(1)
		telemetry.AddPendingBackfills(1)
		go func() {
			defer b.wg.Done()
			defer telemetry.AddPendingBackfills(-1)
			b.pollMetrics(ctx, log, item, tr)
		}()
	case ex.Play.Terminal.IsStrikeout():
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			b.checkZone(ctx, log, item, tr)
		}()
	}
}

// Wait blocks until all running trackers finish.
func (b *Backfiller) Wait() {
	b.wg.Wait()
}

func (b *Backfiller) pollMetrics(ctx context.Context, log *slog.Logger, item Dispatch, tr *tracker) {
	playID := item.Extraction.PlayID()
	policy := poll.Policy{
		Interval:    b.Interval,
		MaxAttempts: b.MaxAttempts,
		IsDone:      func() bool { return !tr.content.Pending() },
		OnExhausted: func() {
			telemetry.Inc(telemetry.SavantExhausted)
			log.Debug("max savant polling attempts reached", slog.String("play_id", playID))
			if tr.content.GiveUp() {
				b.edit(ctx, tr)
			}
		},
	}
	err := policy.Run(ctx, func(ctx context.Context, n int) error {
		telemetry.Inc(telemetry.SavantPolls)
		feed, err := b.Metrics.GameFeed(ctx, item.GamePk)
		if err != nil {
			return fmt.Errorf("savant game feed: %w", err)
		}
		play := feed.FindPlay(playID)
		if play == nil {
			return nil
		}
		if b.apply(ctx, item, tr, play) {
			b.edit(ctx, tr)
		}
		return nil
	})
	switch {
	case err == nil, errors.Is(err, poll.ErrExhausted):
	case ctx.Err() != nil:
		log.Debug("backfill stopped", slog.Any("err", err))
	default:
		log.Error("savant polling failed", slog.String("play_id", playID), slog.Any("err", err))
		if tr.content.GiveUp() {
			b.edit(ctx, tr)
		}
	}
}

// apply fills whichever pending metrics the play carries and reports whether the
// content changed.
func (b *Backfiller) apply(ctx context.Context, item Dispatch, tr *tracker, play *mlbapi.SavantPlay) bool {
	s := tr.content.Statcast
	changed := false
	if s.XBA.State == FieldPending && play.XBA != "" {
		s.XBA = Field{State: FieldValue, Value: formatXBA(play.XBA)}
		changed = true
	}
	if s.HRPark.State == FieldPending {
		if n, ok := play.HomeRunBallparks(); ok {
			v := fmt.Sprintf("%d/%d", n, totalParks) + b.parkContext(ctx, item, n)
			s.HRPark = Field{State: FieldValue, Value: v}
			changed = true
		}
	}
	return changed
}

func formatXBA(xba mlbapi.FlexString) string {
	v := string(xba)
	if f, ok := xba.Float(); ok && f > 0.5 {
		v += " 🟢"
	}
	return v
}

// parkContext returns the parenthetical for outlier HR/Park counts.
func (b *Backfiller) parkContext(ctx context.Context, item Dispatch, n int) string {
	switch {
	case n == 0:
		return " (gone nowhere!)"
	case n == totalParks:
		return " (gone everywhere!)"
	case !slices.Contains(parkOutliers, n):
		return ""
	}
	parks, err := b.Metrics.XParks(ctx, item.GamePk, item.Extraction.PlayID())
	if err != nil {
		telemetry.LoggerWithCorr(ctx).Warn("fetch x-parks failed",
			slog.String("component", "backfill"),
			slog.Int("game_pk", item.GamePk),
			slog.Any("err", err))
		return ""
	}
	return ParkOutlierText(parks, item.VenueID)
}

// ParkOutlierText names the parks that would (or would not) have allowed the home
// run, adding 🏠 when the home park is among them or 🦄 when exactly one is.
func ParkOutlierText(parks *mlbapi.XParks, homeParkID int) string {
	if parks == nil {
		return ""
	}
	var list []mlbapi.Park
	var text string
	switch {
	case len(parks.HR) > 0:
		list = parks.HR
		text = " (only a HR at %s)"
	case len(parks.Not) > 0:
		list = parks.Not
		text = " (a HR at every park except %s)"
	default:
		return ""
	}
	names := make([]string, len(list))
	home := false
	for i, p := range list {
		names[i] = p.Name
		if p.ID == homeParkID {
			home = true
		}
	}
	out := fmt.Sprintf(text, strings.Join(names, ", "))
	switch {
	case home:
		out += " 🏠"
	case len(list) == 1:
		out += " 🦄"
	}
	return out
}

// checkZone is the single strikeout check: when the final pitch was outside the zone
// and the message does not say so yet, a note is appended.
func (b *Backfiller) checkZone(ctx context.Context, log *slog.Logger, item Dispatch, tr *tracker) {
	if item.AtBats == nil {
		return
	}
	ab := item.AtBats.AtBat(item.Extraction.Play.AtBatIndex)
	if ab == nil {
		log.Warn("strikeout at-bat missing from snapshot")
		return
	}
	zc, ok := CheckStrikeout(FromAtBat(ab))
	if !ok {
		log.Warn("pitch data missing or incomplete for strikeout")
		return
	}
	if !zc.Outside {
		return
	}
	if z := item.Extraction.Zone; z != nil && z.Outside {
		return
	}
	tr.content.ZoneNote = zoneNote
	b.edit(ctx, tr)
}

func (b *Backfiller) edit(ctx context.Context, tr *tracker) {
	if err := b.Messenger.Edit(ctx, tr.msg, tr.embed()); err != nil {
		class := discord.ClassifyError(err)
		telemetry.IncClass(telemetry.MessageEditsFailed, class.String())
		telemetry.LoggerWithCorr(ctx).Error("edit message failed",
			slog.String("component", "backfill"),
			slog.String("message_id", tr.msg.ID),
			slog.String("class", class.String()),
			slog.Any("err", err))
		return
	}
	telemetry.Inc(telemetry.MessageEdits)
}

package gameday

import (
	"context"
	"log/slog"

	"github.com/onnwee/gameday-bot/gamestate"
	"github.com/onnwee/gameday-bot/mlbapi"
	"github.com/onnwee/gameday-bot/telemetry"
)

// Reporter decides which at-bats to (re)report after every snapshot change and hands
// new plays to the dispatcher. A play is claimed in the ledger before any send.
type Reporter struct {
	Extractor  *Extractor
	Dispatcher *Dispatcher
}

// Report runs one reporting pass over the current snapshot of st.
func (r *Reporter) Report(ctx context.Context, st *gamestate.Store) {
	feed := st.Feed()
	if feed == nil || feed.LiveData.Plays.CurrentPlay == nil {
		return
	}
	current := feed.LiveData.Plays.CurrentPlay
	idx := current.About.AtBatIndex

	if idx > 0 {
		prev := findPlay(feed, idx-1)
		last, ok := st.Ledger().LastComplete()
		switch {
		case prev != nil && prev.About.HasReview:
			// a review can change an outcome that was already reported
			r.process(ctx, st, feed, FromAtBat(prev))
		case ok && idx-last > 1:
			telemetry.LoggerWithCorr(ctx).Debug("recovering missed at-bats",
				slog.String("component", "reporter"),
				slog.Int("last_complete", last),
				slog.Int("at_bat_index", idx))
			for missed := last + 1; missed < idx; missed++ {
				ab := findPlay(feed, missed)
				if ab == nil {
					continue
				}
				r.reportMissed(ctx, st, feed, ab)
				r.process(ctx, st, feed, FromAtBat(ab))
			}
		}
	}

	r.reportMissed(ctx, st, feed, current)
	r.process(ctx, st, feed, FromAtBat(current))
}

// reportMissed reports allow-listed sub-events of ab that are not in the ledger yet.
func (r *Reporter) reportMissed(ctx context.Context, st *gamestate.Store, feed *mlbapi.LiveFeed, ab *mlbapi.AtBat) {
	idx := ab.About.AtBatIndex
	for i := range ab.PlayEvents {
		d := ab.PlayEvents[i].Details
		if !IsReportable(d.EventType) || st.Ledger().Contains(d.Description, idx) {
			continue
		}
		r.process(ctx, st, feed, FromSubEvent(ab, &ab.PlayEvents[i]))
	}
}

// process extracts, claims and dispatches one play.
func (r *Reporter) process(ctx context.Context, st *gamestate.Store, feed *mlbapi.LiveFeed, p Play) {
	g := GameFromFeed(feed, st.StartReported())
	ex := r.Extractor.Extract(p, g)
	if ex.Content.Empty() {
		return
	}
	if !st.Ledger().Claim(p.Description, p.AtBatIndex, p.IsComplete) {
		return
	}
	if ex.StartAnnounced {
		st.MarkStartReported()
	}
	ctx, span := telemetry.StartSpan(ctx, "gameday", "gameday.report",
		telemetry.GamePkAttr(g.GamePk),
		telemetry.AtBatIndexAttr(p.AtBatIndex),
		telemetry.EventTypeAttr(p.EventType))
	defer span.End()

	telemetry.Inc(telemetry.PlaysReported)
	telemetry.LoggerWithCorr(ctx).Info("reporting play",
		slog.String("component", "reporter"),
		slog.Int("game_pk", g.GamePk),
		slog.Int("at_bat_index", p.AtBatIndex),
		slog.String("event_type", p.EventType),
		slog.Bool("scoring", p.IsScoringPlay))

	home, away := GameColors(g.Home.ID, g.Away.ID)
	color := home
	if p.IsTopHalf() {
		color = away
	}
	r.Dispatcher.Dispatch(ctx, Dispatch{
		GamePk:     g.GamePk,
		VenueID:    g.Venue.ID,
		Title:      Title(p, g),
		Color:      color,
		Extraction: ex,
		AtBats:     st,
	})
}

// findPlay returns the at-bat with the given index from allPlays.
func findPlay(feed *mlbapi.LiveFeed, index int) *mlbapi.AtBat {
	plays := feed.LiveData.Plays.AllPlays
	for i := range plays {
		if plays[i].About.AtBatIndex == index {
			return &plays[i]
		}
	}
	return nil
}

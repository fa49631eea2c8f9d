package gameday

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/onnwee/gameday-bot/gamestate"
	"github.com/onnwee/gameday-bot/mlbapi"
	"github.com/onnwee/gameday-bot/telemetry"
)

// Schedule lists the games around a point in time.
type Schedule interface {
	CurrentGames(ctx context.Context, teamID int, now time.Time) ([]mlbapi.ScheduleGame, error)
}

// PushSource opens the push notification stream for a game.
type PushSource interface {
	Subscribe(ctx context.Context, gamePk int) (<-chan mlbapi.Notification, error)
}

// StateWriter persists small operational values (the kv table).
type StateWriter interface {
	SetKV(ctx context.Context, key, value string) error
}

// KeyLastPoll is the kv key holding the time of the last schedule poll.
const KeyLastPoll = "gameday_last_poll"

// Poller waits for a live game, tracks it until it ends and then resumes polling.
// The State Store is rebuilt only when a different game starts being tracked, so a
// reconnect to the same game keeps its ledger.
type Poller struct {
	Schedule Schedule
	Feed     FeedSource
	Push     PushSource
	Reporter *Reporter
	State    StateWriter

	TeamID   int
	Interval time.Duration
	// ReconnectDelay is the pause before polling again after the socket closed
	// without the game finishing.
	ReconnectDelay time.Duration
	Now            func() time.Time

	mu       sync.RWMutex
	store    *gamestate.Store
	finished map[int]bool
	lastPoll time.Time
}

// Store returns the state of the tracked (or last tracked) game, or nil.
func (p *Poller) Store() *gamestate.Store {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.store
}

// LastPoll returns when the schedule was last polled.
func (p *Poller) LastPoll() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastPoll
}

func (p *Poller) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// Run polls until ctx is canceled.
func (p *Poller) Run(ctx context.Context) {
	interval := p.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	reconnect := p.ReconnectDelay
	if reconnect <= 0 {
		reconnect = 5 * time.Second
	}
	slog.Info("gameday: started poller", slog.String("component", "poller"), slog.Duration("interval", interval))
	for {
		if ctx.Err() != nil {
			return
		}
		wait := interval
		game, ok, err := p.PollOnce(ctx)
		switch {
		case err != nil:
			slog.Error("gameday: poll failed", slog.String("component", "poller"), slog.Any("err", err))
		case ok:
			err := p.Track(ctx, game)
			switch {
			case errors.Is(err, ErrGameFinished):
				wait = 0
			case err != nil && ctx.Err() == nil:
				slog.Error("gameday: tracking failed", slog.String("component", "poller"), slog.Int("game_pk", game.GamePk), slog.Any("err", err))
				wait = reconnect
			default:
				wait = reconnect
			}
		}
		if wait == 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// PollOnce looks for a live game among the games nearest to now. Double headers
// share an official date, so every game on the nearest date is considered.
func (p *Poller) PollOnce(ctx context.Context) (mlbapi.ScheduleGame, bool, error) {
	telemetry.Inc(telemetry.StatusPolls)
	now := p.now()
	games, err := p.Schedule.CurrentGames(ctx, p.TeamID, now)
	p.mu.Lock()
	p.lastPoll = time.Now()
	p.mu.Unlock()
	if p.State != nil {
		if kvErr := p.State.SetKV(ctx, KeyLastPoll, strconv.FormatInt(time.Now().Unix(), 10)); kvErr != nil {
			slog.Debug("gameday: record last poll", slog.Any("err", kvErr))
		}
	}
	if err != nil {
		return mlbapi.ScheduleGame{}, false, err
	}
	if len(games) == 0 {
		return mlbapi.ScheduleGame{}, false, nil
	}
	sort.SliceStable(games, func(i, j int) bool {
		return distance(games[i], now) < distance(games[j], now)
	})
	nearest := games[0].OfficialDate

	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, g := range games {
		if g.OfficialDate != nearest || !g.InProgress() || p.finished[g.GamePk] {
			continue
		}
		return g, true, nil
	}
	return mlbapi.ScheduleGame{}, false, nil
}

func distance(g mlbapi.ScheduleGame, now time.Time) time.Duration {
	t, err := time.Parse(time.RFC3339, g.GameDate)
	if err != nil {
		return time.Duration(1<<63 - 1)
	}
	d := t.Sub(now)
	if d < 0 {
		d = -d
	}
	return d
}

// Track loads the game's snapshot, subscribes to its notifications and runs a
// Session until the socket closes or the game finishes.
func (p *Poller) Track(ctx context.Context, game mlbapi.ScheduleGame) error {
	log := slog.With(slog.String("component", "poller"), slog.Int("game_pk", game.GamePk))
	raw, err := p.Feed.LiveFeed(ctx, game.GamePk)
	if err != nil {
		return fmt.Errorf("load live feed: %w", err)
	}

	p.mu.Lock()
	if p.store == nil || p.store.GamePk() != game.GamePk {
		st, err := gamestate.New(game.GamePk, raw)
		if err != nil {
			p.mu.Unlock()
			return err
		}
		p.store = st
		log.Info("gameday: a game is live; tracking new game")
	} else if err := p.store.Replace(raw); err != nil {
		p.mu.Unlock()
		return err
	}
	st := p.store
	p.mu.Unlock()

	sctx, cancel := context.WithCancel(ctx)
	defer cancel()
	updates, err := p.Push.Subscribe(sctx, game.GamePk)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	telemetry.SetTrackedGame(game.GamePk)
	defer telemetry.SetTrackedGame(0)

	sess := &Session{Store: st, Feed: p.Feed, Reporter: p.Reporter}
	err = sess.Run(sctx, updates)
	if errors.Is(err, ErrGameFinished) {
		p.mu.Lock()
		if p.finished == nil {
			p.finished = make(map[int]bool)
		}
		p.finished[game.GamePk] = true
		p.mu.Unlock()
		log.Info("gameday: game finished; resuming polling")
		return err
	}
	log.Info("gameday: socket closed", slog.Any("err", err))
	return err
}

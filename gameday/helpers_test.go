package gameday

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/onnwee/gameday-bot/db"
	"github.com/onnwee/gameday-bot/discord"
	"github.com/onnwee/gameday-bot/gamestate"
	"github.com/onnwee/gameday-bot/mlbapi"
)

func fp(v float64) *float64 { return &v }
func ip(v int) *int { return &v }

type sentMessage struct {
	ChannelID string
	Embed     discord.Embed
	At        time.Time
}

// fakeMessenger records sends and edits.
type fakeMessenger struct {
	mu      sync.Mutex
	next    int
	sends   []sentMessage
	edits   []discord.Embed
	sendErr error
}

func (f *fakeMessenger) Send(_ context.Context, channelID string, e discord.Embed) (discord.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return discord.Message{}, f.sendErr
	}
	f.next++
	f.sends = append(f.sends, sentMessage{ChannelID: channelID, Embed: e, At: time.Now()})
	return discord.Message{ChannelID: channelID, ID: fmt.Sprintf("m%d", f.next)}, nil
}

func (f *fakeMessenger) Edit(_ context.Context, _ discord.Message, e discord.Embed) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, e)
	return nil
}

func (f *fakeMessenger) Sends() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sends...)
}

func (f *fakeMessenger) Edits() []discord.Embed {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]discord.Embed(nil), f.edits...)
}

type fakeSubscribers []db.Channel

func (f fakeSubscribers) Channels() []db.Channel { return f }

// fakeMetrics returns feeds in order, repeating the last one.
type fakeMetrics struct {
	mu         sync.Mutex
	feeds      []*mlbapi.SavantFeed
	err        error
	xparks     *mlbapi.XParks
	feedCalls  int
	xparkCalls int
}

func (f *fakeMetrics) GameFeed(context.Context, int) (*mlbapi.SavantFeed, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feedCalls++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.feeds) == 0 {
		return &mlbapi.SavantFeed{}, nil
	}
	i := f.feedCalls - 1
	if i >= len(f.feeds) {
		i = len(f.feeds) - 1
	}
	return f.feeds[i], nil
}

func (f *fakeMetrics) XParks(context.Context, int, string) (*mlbapi.XParks, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.xparkCalls++
	if f.xparks == nil {
		return nil, errors.New("no x-parks")
	}
	return f.xparks, nil
}

func (f *fakeMetrics) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.feedCalls
}

var (
	awayTeam = mlbapi.Team{ID: 147, Name: "New York Yankees", TeamName: "Yankees", Abbreviation: "NYY"}
	homeTeam = mlbapi.Team{ID: 111, Name: "Boston Red Sox", TeamName: "Red Sox", Abbreviation: "BOS"}
	venue    = mlbapi.Venue{ID: 3, Name: "Fenway Park"}
)

func testGame() Game {
	return Game{GamePk: 745, Away: awayTeam, Home: homeTeam, Venue: venue, AwayRuns: 1, HomeRuns: 2}
}

// completeAtBat builds a finished at-bat whose last event is a plain pitch.
func completeAtBat(idx int, half, description string) mlbapi.AtBat {
	return mlbapi.AtBat{
		AtBatIndex: idx,
		About:      mlbapi.About{AtBatIndex: idx, HalfInning: half, IsTopInning: half == "top", Inning: 1, IsComplete: true},
		Result:     &mlbapi.Result{Type: "atBat", Event: "Groundout", EventType: "field_out", Description: description},
		PlayEvents: []mlbapi.PlayEvent{{IsPitch: true, Details: mlbapi.EventDetails{Description: "In play, out(s)", IsInPlay: false}}},
	}
}

func openAtBat(idx int, half string, events ...mlbapi.PlayEvent) mlbapi.AtBat {
	return mlbapi.AtBat{
		AtBatIndex: idx,
		About:      mlbapi.About{AtBatIndex: idx, HalfInning: half, IsTopInning: half == "top", Inning: 1},
		Result:     &mlbapi.Result{Type: "atBat"},
		PlayEvents: events,
	}
}

// snapshot renders a live feed document with the given plays; current defaults to
// the last at-bat.
func snapshot(t *testing.T, timeStamp string, plays ...mlbapi.AtBat) []byte {
	t.Helper()
	feed := mlbapi.LiveFeed{
		GamePk:   745,
		MetaData: mlbapi.MetaData{TimeStamp: timeStamp},
		GameData: mlbapi.GameData{
			Teams:  mlbapi.GameTeams{Away: awayTeam, Home: homeTeam},
			Venue:  venue,
			Status: mlbapi.Status{AbstractGameState: "Live", StatusCode: "I"},
		},
		LiveData: mlbapi.LiveData{Plays: mlbapi.Plays{AllPlays: plays}},
	}
	if n := len(plays); n > 0 {
		cp := plays[n-1]
		feed.LiveData.Plays.CurrentPlay = &cp
	}
	b, err := json.Marshal(feed)
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}
	return b
}

func newTestStore(t *testing.T, plays ...mlbapi.AtBat) *gamestate.Store {
	t.Helper()
	st, err := gamestate.New(745, snapshot(t, "20240704_200000", plays...))
	if err != nil {
		t.Fatalf("gamestate.New: %v", err)
	}
	return st
}

// newTestReporter wires a reporter to one immediate channel.
func newTestReporter(m *fakeMessenger) *Reporter {
	return &Reporter{
		Extractor: &Extractor{},
		Dispatcher: &Dispatcher{
			Messenger:   m,
			Subscribers: fakeSubscribers{{GuildID: "1", ChannelID: "100"}},
		},
	}
}

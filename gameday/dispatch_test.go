package gameday

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/onnwee/gameday-bot/db"
)

func dispatchItem(scoring, start bool) Dispatch {
	p := outPlay(1)
	p.IsScoringPlay = scoring
	p.HasStartMarker = start
	ex := (&Extractor{}).Extract(p, testGame())
	return Dispatch{GamePk: 745, Title: Title(p, testGame()), Color: 0x0C2340, Extraction: ex}
}

func TestDispatchFanOut(t *testing.T) {
	m := &fakeMessenger{}
	d := &Dispatcher{
		Messenger: m,
		Subscribers: fakeSubscribers{
			{GuildID: "1", ChannelID: "X"},
			{GuildID: "1", ChannelID: "Y", ScoringPlaysOnly: true, DelaySeconds: 2},
		},
		DelayUnit: 20 * time.Millisecond,
	}

	begin := time.Now()
	d.Dispatch(context.Background(), dispatchItem(true, false))
	sends := m.Sends()
	if len(sends) != 1 || sends[0].ChannelID != "X" {
		t.Fatalf("immediate sends = %+v, want only X", sends)
	}

	d.Wait()
	sends = m.Sends()
	if len(sends) != 2 || sends[1].ChannelID != "Y" {
		t.Fatalf("sends after wait = %+v, want X then Y", sends)
	}
	if elapsed := sends[1].At.Sub(begin); elapsed < 40*time.Millisecond {
		t.Errorf("delayed send after %v, want at least 40ms", elapsed)
	}
	if sends[0].Embed != sends[1].Embed {
		t.Errorf("channels got different embeds: %+v vs %+v", sends[0].Embed, sends[1].Embed)
	}
	if sends[0].Embed.Title != "TOP 2, NYY 1 - 2 BOS - Scoring Play ❗" {
		t.Errorf("title = %q", sends[0].Embed.Title)
	}
}

func TestDispatchScoringOnlyFilter(t *testing.T) {
	m := &fakeMessenger{}
	d := &Dispatcher{
		Messenger: m,
		Subscribers: fakeSubscribers{
			{GuildID: "1", ChannelID: "X"},
			{GuildID: "1", ChannelID: "Y", ScoringPlaysOnly: true, DelaySeconds: 1},
		},
		DelayUnit: time.Millisecond,
	}
	d.Dispatch(context.Background(), dispatchItem(false, false))
	d.Wait()
	for _, s := range m.Sends() {
		if s.ChannelID == "Y" {
			t.Fatal("non-scoring play reached a scoring-only channel")
		}
	}
	if n := len(m.Sends()); n != 1 {
		t.Errorf("sends = %d, want 1", n)
	}
}

func TestDispatchStartEventIgnoresDelay(t *testing.T) {
	m := &fakeMessenger{}
	d := &Dispatcher{
		Messenger:   m,
		Subscribers: fakeSubscribers{{GuildID: "1", ChannelID: "Y", DelaySeconds: 3600}},
	}
	d.Dispatch(context.Background(), dispatchItem(false, true))
	if n := len(m.Sends()); n != 1 {
		t.Fatalf("start event sends = %d, want 1 immediate send", n)
	}
}

func TestDispatchDelayedSendSurvivesCancel(t *testing.T) {
	m := &fakeMessenger{}
	d := &Dispatcher{
		Messenger:   m,
		Subscribers: fakeSubscribers{{GuildID: "1", ChannelID: "Y", DelaySeconds: 1}},
		DelayUnit:   10 * time.Millisecond,
	}
	ctx, cancel := context.WithCancel(context.Background())
	d.Dispatch(ctx, dispatchItem(false, false))
	cancel()
	d.Wait()
	if n := len(m.Sends()); n != 1 {
		t.Errorf("sends = %d, want the scheduled send to fire", n)
	}
}

func TestDispatchSendFailureContinues(t *testing.T) {
	m := &fakeMessenger{sendErr: errors.New("HTTP 403 Forbidden")}
	d := &Dispatcher{
		Messenger:   m,
		Subscribers: fakeSubscribers{{GuildID: "1", ChannelID: "X"}, {GuildID: "1", ChannelID: "Z"}},
		Backfill:    &Backfiller{Messenger: m, Metrics: &fakeMetrics{}},
	}
	d.Dispatch(context.Background(), dispatchItem(false, false))
	d.Wait()
	if n := len(m.Edits()); n != 0 {
		t.Errorf("edits = %d; failed sends must not start backfill", n)
	}
}

func TestDispatchNoSubscribers(t *testing.T) {
	m := &fakeMessenger{}
	d := &Dispatcher{Messenger: m, Subscribers: fakeSubscribers([]db.Channel{})}
	d.Dispatch(context.Background(), dispatchItem(true, false))
	d.Wait()
	if n := len(m.Sends()); n != 0 {
		t.Errorf("sends = %d, want 0", n)
	}
}

package gameday

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/onnwee/gameday-bot/mlbapi"
)

type diffCall struct {
	UpdateID      string
	StartTimecode string
}

// fakeFeed serves canned documents and records what was asked for.
type fakeFeed struct {
	mu        sync.Mutex
	live      []byte
	liveErr   error
	at        []byte
	diffs     []mlbapi.Diff
	diffCalls []diffCall
	liveCalls int
	atCalls   []string
}

func (f *fakeFeed) LiveFeed(context.Context, int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.liveCalls++
	return f.live, f.liveErr
}

func (f *fakeFeed) LiveFeedAt(_ context.Context, _ int, updateID string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.atCalls = append(f.atCalls, updateID)
	return f.at, nil
}

func (f *fakeFeed) DiffPatch(_ context.Context, _ int, updateID, startTimecode string) (mlbapi.Diff, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.diffCalls = append(f.diffCalls, diffCall{updateID, startTimecode})
	if len(f.diffs) == 0 {
		return mlbapi.Diff{}, nil
	}
	d := f.diffs[0]
	f.diffs = f.diffs[1:]
	return d, nil
}

func newTestSession(t *testing.T, feed *fakeFeed, m *fakeMessenger) *Session {
	t.Helper()
	st := newTestStore(t, openAtBat(0, "top"))
	return &Session{Store: st, Feed: feed, Reporter: newTestReporter(m)}
}

func TestSessionDropsDuplicateNotification(t *testing.T) {
	feed := &fakeFeed{}
	s := newTestSession(t, feed, &fakeMessenger{})
	n := mlbapi.Notification{UpdateID: "u1", TimeStamp: "20240704_200001", Length: 120}

	for i := 0; i < 2; i++ {
		if err := s.Handle(context.Background(), n); err != nil {
			t.Fatalf("Handle: %v", err)
		}
	}
	if got := len(feed.diffCalls); got != 1 {
		t.Errorf("diff requests = %d, want 1", got)
	}

	// same timestamp with a different length is a new notification
	n.Length = 121
	if err := s.Handle(context.Background(), n); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if got := len(feed.diffCalls); got != 2 {
		t.Errorf("diff requests = %d, want 2", got)
	}
}

func TestSessionAppliesPatchesAndReports(t *testing.T) {
	m := &fakeMessenger{}
	feed := &fakeFeed{diffs: []mlbapi.Diff{{Patches: []mlbapi.Patch{{Diff: []mlbapi.Operation{
		{Op: "replace", Path: "/metaData/timeStamp", Value: []byte(`"20240704_200030"`)},
		{Op: "replace", Path: "/liveData/plays/currentPlay/about/isComplete", Value: []byte(`true`)},
		{Op: "replace", Path: "/liveData/plays/currentPlay/result/description", Value: []byte(`"Aaron Judge flies out to center fielder."`)},
	}}}}}}
	s := newTestSession(t, feed, m)

	if err := s.Handle(context.Background(), mlbapi.Notification{UpdateID: "u1", TimeStamp: "t1"}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	s.Reporter.Dispatcher.Wait()

	if got := feed.diffCalls[0]; got.UpdateID != "u1" || got.StartTimecode != "20240704_200000" {
		t.Errorf("diff request = %+v", got)
	}
	if got := s.Store.TimeStamp(); got != "20240704_200030" {
		t.Errorf("TimeStamp = %q", got)
	}
	sends := m.Sends()
	if len(sends) != 1 || sends[0].Embed.Description != "Aaron Judge flies out to center fielder." {
		t.Fatalf("sends = %+v", descriptions(sends))
	}
}

func TestSessionMergeFailureRefetches(t *testing.T) {
	m := &fakeMessenger{}
	feed := &fakeFeed{
		diffs: []mlbapi.Diff{{Patches: []mlbapi.Patch{{Diff: []mlbapi.Operation{
			{Op: "remove", Path: "/liveData/plays/allPlays/42"},
		}}}}},
		live: snapshot(t, "20240704_200200", completeAtBat(0, "top", "Aaron Judge lines out to left fielder.")),
	}
	s := newTestSession(t, feed, m)

	if err := s.Handle(context.Background(), mlbapi.Notification{UpdateID: "u2", TimeStamp: "t2"}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	s.Reporter.Dispatcher.Wait()

	if feed.liveCalls != 1 {
		t.Errorf("live feed refetches = %d, want 1", feed.liveCalls)
	}
	if got := s.Store.TimeStamp(); got != "20240704_200200" {
		t.Errorf("TimeStamp = %q, want refetched snapshot", got)
	}
	if n := len(m.Sends()); n != 1 {
		t.Errorf("sends = %d; reporting should run on the refetched snapshot", n)
	}
}

func TestSessionRefetchFailure(t *testing.T) {
	feed := &fakeFeed{
		diffs: []mlbapi.Diff{{Patches: []mlbapi.Patch{{Diff: []mlbapi.Operation{
			{Op: "remove", Path: "/liveData/plays/allPlays/42"},
		}}}}},
		liveErr: errors.New("statsapi returned 502"),
	}
	s := newTestSession(t, feed, &fakeMessenger{})
	before := s.Store.Raw()
	if err := s.Handle(context.Background(), mlbapi.Notification{UpdateID: "u3", TimeStamp: "t3"}); err == nil {
		t.Fatal("expected refetch error")
	}
	if string(s.Store.Raw()) != string(before) {
		t.Error("snapshot changed after a failed merge and refetch")
	}
}

func TestSessionFullRefresh(t *testing.T) {
	m := &fakeMessenger{}
	feed := &fakeFeed{at: snapshot(t, "20240704_200500", completeAtBat(0, "top", "Juan Soto walks."))}
	s := newTestSession(t, feed, m)

	n := mlbapi.Notification{UpdateID: "u9", TimeStamp: "t9", ChangeEvent: &mlbapi.ChangeEvent{Type: mlbapi.ChangeFullRefresh}}
	if err := s.Handle(context.Background(), n); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	s.Reporter.Dispatcher.Wait()

	if len(feed.atCalls) != 1 || feed.atCalls[0] != "u9" {
		t.Errorf("full refresh requests = %v", feed.atCalls)
	}
	if len(feed.diffCalls) != 0 {
		t.Errorf("full refresh must not request a diff")
	}
	if n := len(m.Sends()); n != 1 {
		t.Errorf("sends = %d, want 1", n)
	}
}

func TestSessionFullDiffResponse(t *testing.T) {
	feed := &fakeFeed{diffs: []mlbapi.Diff{{Full: snapshot(t, "20240704_201000", openAtBat(0, "top"))}}}
	s := newTestSession(t, feed, &fakeMessenger{})
	if err := s.Handle(context.Background(), mlbapi.Notification{UpdateID: "u4", TimeStamp: "t4"}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if got := s.Store.TimeStamp(); got != "20240704_201000" {
		t.Errorf("TimeStamp = %q", got)
	}
}

func TestSessionGameFinished(t *testing.T) {
	feed := &fakeFeed{}
	s := newTestSession(t, feed, &fakeMessenger{})

	updates := make(chan mlbapi.Notification, 2)
	updates <- mlbapi.Notification{UpdateID: "u5", TimeStamp: "t5", GameEvents: []string{"game_finished"}}
	updates <- mlbapi.Notification{UpdateID: "u6", TimeStamp: "t6"}

	if err := s.Run(context.Background(), updates); !errors.Is(err, ErrGameFinished) {
		t.Fatalf("Run = %v, want ErrGameFinished", err)
	}
	if !s.Store.Finished() {
		t.Error("store should be marked finished")
	}
	if err := s.Handle(context.Background(), <-updates); !errors.Is(err, ErrGameFinished) {
		t.Errorf("Handle after finish = %v", err)
	}
	if len(feed.diffCalls) != 0 {
		t.Error("no diff expected for a finished game")
	}
}

func TestSessionRunReturnsOnClose(t *testing.T) {
	s := newTestSession(t, &fakeFeed{}, &fakeMessenger{})
	updates := make(chan mlbapi.Notification)
	close(updates)
	if err := s.Run(context.Background(), updates); err != nil {
		t.Errorf("Run = %v, want nil on close", err)
	}
}

func TestSessionRunStopsOnCancel(t *testing.T) {
	s := newTestSession(t, &fakeFeed{}, &fakeMessenger{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Run(ctx, make(chan mlbapi.Notification)); !errors.Is(err, context.Canceled) {
		t.Errorf("Run = %v, want context.Canceled", err)
	}
}

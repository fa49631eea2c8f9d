// Package gamestate holds the per-game mutable state of the live feed pipeline: the
// current live feed snapshot, the reported-description ledger, and the duplicate
// notification fingerprint. A Store is replaced wholesale when a new game is tracked.
package gamestate

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	jsonpatch "github.com/evanphx/json-patch"

	"github.com/onnwee/gameday-bot/mlbapi"
)

// ErrNoSnapshot is returned when an operation needs a snapshot before one was loaded.
var ErrNoSnapshot = errors.New("gamestate: no snapshot loaded")

// Store is the state of one tracked game. All methods are safe for concurrent use;
// the feed session is the only writer, background pollers only read.
type Store struct {
	mu     sync.RWMutex
	gamePk int
	raw    []byte
	feed   *mlbapi.LiveFeed

	ledger *Ledger

	startReported bool
	finished      bool

	lastTimeStamp string
	lastLength    int
	seenAny       bool
}

// New builds the state for a newly tracked game from its full snapshot.
func New(gamePk int, snapshot []byte) (*Store, error) {
	s := &Store{gamePk: gamePk, ledger: NewLedger()}
	if err := s.Replace(snapshot); err != nil {
		return nil, err
	}
	return s, nil
}

// GamePk returns the tracked game id.
func (s *Store) GamePk() int {
	return s.gamePk
}

// Ledger returns the reported-description ledger for this game.
func (s *Store) Ledger() *Ledger {
	return s.ledger
}

// Replace swaps in a full snapshot. The previous snapshot is kept if decoding fails.
func (s *Store) Replace(snapshot []byte) error {
	feed, err := decode(snapshot)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.raw = append([]byte(nil), snapshot...)
	s.feed = feed
	s.mu.Unlock()
	return nil
}

// ApplyPatch applies one batch of operations in order. The batch is all-or-nothing:
// when any operation fails the snapshot is left exactly as it was and the error is
// returned, so the caller can refetch the full document.
func (s *Store) ApplyPatch(ops []mlbapi.Operation) error {
	if len(ops) == 0 {
		return nil
	}
	encoded, err := json.Marshal(ops)
	if err != nil {
		return fmt.Errorf("encode patch: %w", err)
	}
	patch, err := jsonpatch.DecodePatch(encoded)
	if err != nil {
		return fmt.Errorf("decode patch: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.raw == nil {
		return ErrNoSnapshot
	}
	next, err := patch.Apply(s.raw)
	if err != nil {
		return fmt.Errorf("apply patch: %w", err)
	}
	feed, err := decode(next)
	if err != nil {
		return err
	}
	s.raw = next
	s.feed = feed
	return nil
}

// Feed returns the decoded snapshot. Callers must treat it as read-only; a new value
// is produced on every successful merge.
func (s *Store) Feed() *mlbapi.LiveFeed {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.feed
}

// Raw returns a copy of the current snapshot document.
func (s *Store) Raw() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]byte(nil), s.raw...)
}

// TimeStamp returns metaData.timeStamp of the current snapshot, the start timecode
// for the next diff request.
func (s *Store) TimeStamp() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.feed == nil {
		return ""
	}
	return s.feed.MetaData.TimeStamp
}

// AtBat returns the at-bat with the given index from allPlays, falling back to
// currentPlay, or nil.
func (s *Store) AtBat(index int) *mlbapi.AtBat {
	feed := s.Feed()
	if feed == nil {
		return nil
	}
	for i := range feed.LiveData.Plays.AllPlays {
		if feed.LiveData.Plays.AllPlays[i].About.AtBatIndex == index {
			return &feed.LiveData.Plays.AllPlays[i]
		}
	}
	if cp := feed.LiveData.Plays.CurrentPlay; cp != nil && cp.About.AtBatIndex == index {
		return cp
	}
	return nil
}

// MarkStartReported flips the start flag and reports whether this call did it.
func (s *Store) MarkStartReported() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startReported {
		return false
	}
	s.startReported = true
	return true
}

// StartReported reports whether the game start announcement was already produced.
func (s *Store) StartReported() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.startReported
}

// MarkFinished flags the game as concluded and reports whether this call did it.
func (s *Store) MarkFinished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return false
	}
	s.finished = true
	return true
}

// Finished reports whether the game concluded.
func (s *Store) Finished() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.finished
}

// SeenNotification records the (timeStamp, length) fingerprint of a notification and
// reports whether it matches the immediately preceding one.
func (s *Store) SeenNotification(timeStamp string, length int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	dup := s.seenAny && s.lastTimeStamp == timeStamp && s.lastLength == length
	s.lastTimeStamp = timeStamp
	s.lastLength = length
	s.seenAny = true
	return dup
}

func decode(snapshot []byte) (*mlbapi.LiveFeed, error) {
	var feed mlbapi.LiveFeed
	if err := json.Unmarshal(snapshot, &feed); err != nil {
		return nil, fmt.Errorf("decode live feed: %w", err)
	}
	return &feed, nil
}

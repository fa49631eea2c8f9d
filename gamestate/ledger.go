package gamestate

import "sync"

// Entry is one reported (description, atBatIndex) pair.
type Entry struct {
	Description string
	AtBatIndex  int
}

// Ledger is the append-only list of descriptions already sent to subscribers this game.
type Ledger struct {
	mu      sync.Mutex
	entries []Entry
	seen    map[Entry]struct{}

	lastComplete    int
	hasLastComplete bool
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{seen: make(map[Entry]struct{})}
}

// Contains reports whether the pair was already reported.
func (l *Ledger) Contains(description string, atBatIndex int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.seen[Entry{description, atBatIndex}]
	return ok
}

// Claim appends the pair unless present. It returns false when the pair was already
// reported; the check and the append happen under one lock.
func (l *Ledger) Claim(description string, atBatIndex int, complete bool) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	e := Entry{description, atBatIndex}
	if _, ok := l.seen[e]; ok {
		return false
	}
	l.seen[e] = struct{}{}
	l.entries = append(l.entries, e)
	if complete {
		l.lastComplete = atBatIndex
		l.hasLastComplete = true
	}
	return true
}

// LastComplete returns the at-bat index of the most recent complete report.
func (l *Ledger) LastComplete() (int, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastComplete, l.hasLastComplete
}

// Entries returns a copy of the ledger in report order.
func (l *Ledger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), l.entries...)
}

// Len returns the number of reported pairs.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Package poll provides a small fixed-interval retry policy used by background
// loops that wait for delayed upstream data.
package poll

import (
	"context"
	"errors"
	"time"
)

// ErrExhausted is returned by Run when MaxAttempts elapsed before IsDone reported true.
var ErrExhausted = errors.New("poll: attempt budget exhausted")

// Policy describes how often and how many times an attempt is made.
//
// IsDone is consulted before every attempt and once more after the last one.
// OnExhausted runs at most once, only when the budget is spent without IsDone.
type Policy struct {
	Interval    time.Duration
	MaxAttempts int
	IsDone      func() bool
	OnExhausted func()
}

// AttemptFunc performs one attempt. n starts at 1. A non-nil error stops the loop
// immediately and is returned from Run; OnExhausted is not called in that case.
type AttemptFunc func(ctx context.Context, n int) error

// Run executes attempt until IsDone reports true, the budget is exhausted, attempt
// fails, or ctx is canceled.
func (p Policy) Run(ctx context.Context, attempt AttemptFunc) error {
	for n := 1; n <= p.MaxAttempts; n++ {
		if p.done() {
			return nil
		}
		if err := attempt(ctx, n); err != nil {
			return err
		}
		if p.done() {
			return nil
		}
		if n == p.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.Interval):
		}
	}
	if p.done() {
		return nil
	}
	if p.OnExhausted != nil {
		p.OnExhausted()
	}
	return ErrExhausted
}

func (p Policy) done() bool {
	return p.IsDone != nil && p.IsDone()
}

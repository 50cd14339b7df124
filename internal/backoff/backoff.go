// Package backoff provides a bounded exponential retry counter for operations that
// poll an external system and must give up deterministically.
package backoff

import (
	"context"
	"fmt"
	"time"

	operatorerrors "github.com/dc-tec/kafka-cluster-operator/internal/errors"
)

// DefaultPolicy doubles from 200ms and never waits longer than 30s.
var DefaultPolicy = Policy{
	Base: 200 * time.Millisecond,
	Max:  30 * time.Second,
}

// Policy computes wait intervals. It holds no state.
type Policy struct {
	// Base is the delay returned for attempt 0.
	Base time.Duration
	// Max caps every delay. A zero Max means no cap.
	Max time.Duration
}

// NextDelay returns Base*2^attempt, capped at Max. It depends only on attempt,
// so the same attempt always yields the same delay. Negative attempts are treated as 0.
func (p Policy) NextDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if p.Base <= 0 {
		return 0
	}

	delay := p.Base
	for i := 0; i < attempt; i++ {
		// Stop doubling once the next step would pass the cap or overflow.
		if p.Max > 0 && delay >= p.Max/2 {
			return p.Max
		}
		if delay > maxDuration/2 {
			return maxDuration
		}
		delay *= 2
	}

	if p.Max > 0 && delay > p.Max {
		return p.Max
	}
	return delay
}

const maxDuration = time.Duration(1<<63 - 1)

// State counts the attempts of one logical retry operation.
//
// A State is owned by exactly one retry loop and is not safe for concurrent use.
// Once exhausted it stays exhausted; start a fresh operation with a new State.
type State struct {
	policy      Policy
	attempt     int
	maxAttempts int
}

// New returns a State that allows maxAttempts calls to Next.
func New(policy Policy, maxAttempts int) (*State, error) {
	if maxAttempts <= 0 {
		return nil, fmt.Errorf("maxAttempts must be positive, got %d", maxAttempts)
	}
	return &State{policy: policy, maxAttempts: maxAttempts}, nil
}

// Next returns the delay for the current attempt and advances the counter.
// After maxAttempts successful calls it returns ErrMaxAttemptsExceeded, and keeps
// doing so on every later call.
func (s *State) Next() (time.Duration, error) {
	if s.Exhausted() {
		return 0, fmt.Errorf("%w: %d attempts used", operatorerrors.ErrMaxAttemptsExceeded, s.maxAttempts)
	}
	delay := s.policy.NextDelay(s.attempt)
	s.attempt++
	return delay, nil
}

// Attempt returns how many delays have been handed out.
func (s *State) Attempt() int {
	return s.attempt
}

// MaxAttempts returns the configured attempt cap.
func (s *State) MaxAttempts() int {
	return s.maxAttempts
}

// Exhausted reports whether the State has reached its terminal state.
func (s *State) Exhausted() bool {
	return s.attempt >= s.maxAttempts
}

// Retry calls op until it succeeds, returns an error that retryable rejects, or the
// State is exhausted. Between calls it waits for the delay returned by state.Next,
// returning early with ctx.Err() if ctx is done.
//
// On exhaustion the returned error wraps both ErrMaxAttemptsExceeded and the last
// error returned by op.
func Retry(ctx context.Context, state *State, retryable func(error) bool, op func(context.Context) error) error {
	for {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if retryable != nil && !retryable(err) {
			return err
		}

		delay, nextErr := state.Next()
		if nextErr != nil {
			return fmt.Errorf("%w: last error: %w", nextErr, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

package notion

import (
	"errors"
	"fmt"
	"time"
)

const (
	defaultMaxRetries = 3
	defaultBaseDelay  = 500 * time.Millisecond
	defaultMaxDelay   = 8 * time.Second
)

// RetryPolicy bounds the retry loop of a single API call.
type RetryPolicy struct {
	MaxRetries int           // retries after the first attempt
	BaseDelay  time.Duration // delay before the first retry
	MaxDelay   time.Duration // cap for any computed or Retry-After delay
}

// DefaultRetryPolicy allows 3 retries starting at 500ms, capped at 8s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: defaultMaxRetries,
		BaseDelay:  defaultBaseDelay,
		MaxDelay:   defaultMaxDelay,
	}
}

// Attempts is the total attempt budget.
func (p RetryPolicy) Attempts() int {
	return p.MaxRetries + 1
}

// Backoff returns the delay before retry number n (1-based):
// BaseDelay doubled n-1 times, never above MaxDelay.
func (p RetryPolicy) Backoff(n int) time.Duration {
	delay := p.BaseDelay
	for i := 1; i < n; i++ {
		delay *= 2
		if delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

type retryPhase int

const (
	phaseRequesting retryPhase = iota
	phaseRetryWait
	phaseSucceeded
	phaseFailed
)

func (p retryPhase) String() string {
	switch p {
	case phaseRequesting:
		return "requesting"
	case phaseRetryWait:
		return "retry-wait"
	case phaseSucceeded:
		return "succeeded"
	case phaseFailed:
		return "failed"
	}
	return "unknown"
}

// retryState is the state machine driving one call:
// Requesting -> Succeeded | RetryWait -> Requesting | Failed.
type retryState struct {
	policy  RetryPolicy
	phase   retryPhase
	attempt int
	delay   time.Duration
	err     error
}

func newRetryState(p RetryPolicy) *retryState {
	return &retryState{policy: p, phase: phaseRequesting, attempt: 1}
}

// observe records the outcome of the current attempt and moves to the next
// phase.
func (s *retryState) observe(err error) retryPhase {
	if err == nil {
		s.phase, s.err = phaseSucceeded, nil
		return s.phase
	}
	s.err = err
	if !isRetryable(err) {
		s.phase = phaseFailed
		return s.phase
	}
	if s.attempt >= s.policy.Attempts() {
		s.phase = phaseFailed
		s.err = fmt.Errorf("%w after %d attempts: %w", ErrUnavailable, s.attempt, err)
		return s.phase
	}
	s.delay = s.policy.Backoff(s.attempt)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.RetryAfter > s.delay {
		s.delay = min(apiErr.RetryAfter, s.policy.MaxDelay)
	}
	s.phase = phaseRetryWait
	return s.phase
}

// resume leaves RetryWait for the next attempt.
func (s *retryState) resume() {
	s.attempt++
	s.phase = phaseRequesting
}

// transientError marks network failures and per-call timeouts.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return "notion: transient failure: " + e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func isRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.retryable()
	}
	var te *transientError
	return errors.As(err, &te)
}

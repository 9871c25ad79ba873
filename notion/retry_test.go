package notion

import (
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestBackoffDoublesAndCaps(t *testing.T) {
	p := RetryPolicy{MaxRetries: 5, BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second}
	want := []time.Duration{100, 200, 400, 800, 1000, 1000}
	for i, w := range want {
		if got := p.Backoff(i + 1); got != w*time.Millisecond {
			t.Errorf("Backoff(%d) = %v, want %v", i+1, got, w*time.Millisecond)
		}
	}
}

func TestRetryStateTransitions(t *testing.T) {
	s := newRetryState(RetryPolicy{MaxRetries: 2, BaseDelay: 10 * time.Millisecond, MaxDelay: time.Second})
	limited := &APIError{Status: http.StatusTooManyRequests}

	if got := s.observe(limited); got != phaseRetryWait {
		t.Fatalf("phase = %v, want retry-wait", got)
	}
	if s.delay != 10*time.Millisecond {
		t.Errorf("delay = %v", s.delay)
	}
	s.resume()
	if got := s.observe(&APIError{Status: http.StatusTooManyRequests, RetryAfter: 300 * time.Millisecond}); got != phaseRetryWait {
		t.Fatalf("phase = %v, want retry-wait", got)
	}
	if s.delay != 300*time.Millisecond {
		t.Errorf("Retry-After not honored: %v", s.delay)
	}
	s.resume()
	if got := s.observe(limited); got != phaseFailed {
		t.Fatalf("phase = %v, want failed", got)
	}
	if !errors.Is(s.err, ErrUnavailable) || !errors.Is(s.err, ErrRateLimited) {
		t.Errorf("err = %v", s.err)
	}
	if s.attempt != 3 {
		t.Errorf("attempt = %d", s.attempt)
	}
}

func TestRetryStateSuccessAndFatal(t *testing.T) {
	s := newRetryState(DefaultRetryPolicy())
	if got := s.observe(nil); got != phaseSucceeded {
		t.Errorf("phase = %v", got)
	}

	s = newRetryState(DefaultRetryPolicy())
	if got := s.observe(&APIError{Status: http.StatusForbidden}); got != phaseFailed {
		t.Errorf("phase = %v", got)
	}
	if !errors.Is(s.err, ErrAuth) {
		t.Errorf("err = %v", s.err)
	}

	s = newRetryState(DefaultRetryPolicy())
	if got := s.observe(&transientError{err: errors.New("connection reset")}); got != phaseRetryWait {
		t.Errorf("phase = %v", got)
	}
}

func TestRetryAfterIsCapped(t *testing.T) {
	s := newRetryState(RetryPolicy{MaxRetries: 1, BaseDelay: time.Millisecond, MaxDelay: 50 * time.Millisecond})
	s.observe(&APIError{Status: http.StatusTooManyRequests, RetryAfter: time.Minute})
	if s.delay != 50*time.Millisecond {
		t.Errorf("delay = %v, want cap", s.delay)
	}
}

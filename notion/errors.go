package notion

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	// ErrAuth means the integration token was rejected. It is never retried.
	ErrAuth = errors.New("notion: credentials rejected")
	// ErrRateLimited means the API answered 429. It is retried with backoff
	// and escalates to ErrUnavailable once the retry budget is spent.
	ErrRateLimited = errors.New("notion: rate limited")
	// ErrUnavailable means the source could not be reached or kept failing.
	ErrUnavailable = errors.New("notion: source unavailable")
	// ErrNotFound means the requested object does not exist or is not shared
	// with the integration.
	ErrNotFound = errors.New("notion: object not found")
)

// APIError is a non-2xx API response.
type APIError struct {
	Status     int           `json:"-"`
	Code       string        `json:"code"`
	Message    string        `json:"message"`
	RetryAfter time.Duration `json:"-"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("notion: HTTP %d", e.Status)
	}
	return fmt.Sprintf("notion: HTTP %d %s: %s", e.Status, e.Code, e.Message)
}

// Unwrap maps the status code onto the error taxonomy.
func (e *APIError) Unwrap() error {
	switch {
	case e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden:
		return ErrAuth
	case e.Status == http.StatusNotFound:
		return ErrNotFound
	case e.Status == http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return ErrUnavailable
	}
}

// retryable reports whether another attempt may succeed.
func (e *APIError) retryable() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

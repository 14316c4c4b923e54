package reasoning

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"scoreparse/internal/domain"
)

// TransientError is a recoverable provider failure: a timeout, a network
// error, HTTP 429 or HTTP 5xx.
type TransientError struct {
	Endpoint   string
	Status     int // 0 when no response was received
	RetryAfter time.Duration
	Err        error
}

func (e *TransientError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("reasoning: %s unreachable: %v", e.Endpoint, e.Err)
	}
	return fmt.Sprintf("reasoning: %s returned status %d: %v", e.Endpoint, e.Status, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Is matches domain.ErrTransientProvider.
func (e *TransientError) Is(target error) bool {
	return target == domain.ErrTransientProvider
}

// NonRecoverableError is a provider rejection that must not be retried.
type NonRecoverableError struct {
	Endpoint string
	Status   int
	Body     string
}

func (e *NonRecoverableError) Error() string {
	return fmt.Sprintf("reasoning: %s rejected request (status %d): %s", e.Endpoint, e.Status, e.Body)
}

// Is matches domain.ErrNonRecoverableProvider.
func (e *NonRecoverableError) Is(target error) bool {
	return target == domain.ErrNonRecoverableProvider
}

// IsTransient reports whether err is worth failing over or retrying.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// isSchemaRejection reports whether the provider refused a schema-constrained
// output format.
func isSchemaRejection(err error) bool {
	var ne *NonRecoverableError
	if !errors.As(err, &ne) {
		return false
	}
	switch ne.Status {
	case http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity:
		return true
	}
	return false
}

func isTransientStatus(code int) bool {
	return code == http.StatusTooManyRequests || (code >= 500 && code <= 599)
}

// ParseRetryAfter parses a Retry-After header given either as (possibly
// fractional) seconds or as an HTTP date. It returns 0 when absent or invalid.
func ParseRetryAfter(val string, now time.Time) time.Duration {
	val = strings.TrimSpace(val)
	if val == "" {
		return 0
	}
	if secs, err := strconv.ParseFloat(val, 64); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs * float64(time.Second))
	}
	if at, err := http.ParseTime(val); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

func truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

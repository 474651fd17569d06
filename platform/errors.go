package platform

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Platform error codes that indicate a temporary condition. Mirrors the
// ad platform's published retryable codes (unknown error, service
// unavailable, too many calls, user request limit).
var transientCodes = map[int]bool{
	1:  true,
	2:  true,
	4:  true,
	17: true,
	32: true,
}

// Error is a structured error returned by an ad platform call. Transient
// errors may be retried with backoff; non-transient errors (validation,
// permissions, not-found) must fail the caller immediately.
type Error struct {
	Op         string
	StatusCode int
	Code       int
	Subcode    int
	Message    string
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s: platform error %d (subcode %d): %s", e.Op, e.Code, e.Subcode, e.Message)
	}
	return fmt.Sprintf("%s: http status %d: %s", e.Op, e.StatusCode, e.Message)
}

// Transient reports whether the error is worth retrying
func (e *Error) Transient() bool {
	if transientCodes[e.Code] {
		return true
	}
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// IsTransient classifies any error from an adapter call. Context deadline
// and network timeouts count as transient; everything unrecognized does
// not, so unexpected failures surface instead of looping.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Transient()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return false
}

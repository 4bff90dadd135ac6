package types

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrNoStaleData is joined into upstream failures when no cached fallback exists.
var ErrNoStaleData = errors.New("no cached discount data available")

// ValidationError is returned for malformed input. It is never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

// UpstreamError is returned when an external collaborator (discount source,
// geocoder) fails. Transient failures are eligible for retry.
type UpstreamError struct {
	Source     string        // collaborator name, e.g. "http", "postgres"
	Op         string        // operation, e.g. "fetch"
	StatusCode int           // HTTP status if any
	Attempts   int           // attempts made before giving up
	Transient  bool          // whether a retry could succeed
	RetryAfter time.Duration // server-requested delay before the next attempt
	Err        error
}

func (e *UpstreamError) Error() string {
	msg := e.Source + " " + e.Op + " failed"
	if e.Attempts > 1 {
		msg += " after " + strconv.Itoa(e.Attempts) + " attempts"
	}
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// RetryDelay returns the server-requested delay, or 0.
func (e *UpstreamError) RetryDelay() time.Duration {
	return e.RetryAfter
}

// IsTransient reports whether err is an UpstreamError marked transient.
func IsTransient(err error) bool {
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return upstream.Transient
	}
	return false
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v ValidationError
	return errors.As(err, &v)
}

// IsUpstream reports whether err is an UpstreamError.
func IsUpstream(err error) bool {
	var upstream *UpstreamError
	return errors.As(err, &upstream)
}

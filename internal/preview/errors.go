package preview

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Kind classifies preview failures
type Kind string

const (
	KindConfigNotFound Kind = "CONFIG_NOT_FOUND"
	KindAuthRequired   Kind = "AUTHENTICATION_REQUIRED"
	KindRateLimited    Kind = "RATE_LIMITED"
	KindUpstreamFetch  Kind = "UPSTREAM_FETCH_FAILED"
)

// Error is a classified preview failure
type Error struct {
	Kind       Kind
	Message    string
	PluginName string
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so callers can test against the
// sentinel values below
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Message == "" && t.Err == nil
}

// StatusCode maps the kind to its HTTP status
func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindConfigNotFound:
		return http.StatusNotFound
	case KindAuthRequired:
		return http.StatusBadRequest
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// RetryAfterSeconds rounds the retry-after duration up to whole seconds
func (e *Error) RetryAfterSeconds() int {
	if e.RetryAfter <= 0 {
		return 0
	}
	secs := int(e.RetryAfter / time.Second)
	if e.RetryAfter%time.Second != 0 {
		secs++
	}
	return secs
}

var (
	ErrConfigNotFound = &Error{Kind: KindConfigNotFound}
	ErrAuthRequired   = &Error{Kind: KindAuthRequired}
	ErrRateLimited    = &Error{Kind: KindRateLimited}
	ErrUpstreamFetch  = &Error{Kind: KindUpstreamFetch}
)

func configNotFound(err error) *Error {
	return &Error{Kind: KindConfigNotFound, Message: "plugin configuration not found", Err: err}
}

func upstreamFailed(message string, err error) *Error {
	return &Error{Kind: KindUpstreamFetch, Message: message, Err: err}
}

// AsError extracts a classified error
func AsError(err error) (*Error, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

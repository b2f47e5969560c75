package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for callers that need to branch on it.
type Kind int

const (
	KindInvalidArgument Kind = iota + 1
	KindNotFound
	KindRemote
	KindCacheIO
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "INVALID_ARGUMENT"
	case KindNotFound:
		return "NOT_FOUND"
	case KindRemote:
		return "REMOTE_ERROR"
	case KindCacheIO:
		return "CACHE_IO_ERROR"
	default:
		return "UNKNOWN"
	}
}

// Error is the error type returned by the market client, caches and service.
type Error struct {
	Kind       Kind
	Message    string
	StatusCode int // upstream HTTP status for KindRemote, 0 otherwise
	Err        error
}

// Sentinels for errors.Is matching by kind.
var (
	ErrInvalidArgument = &Error{Kind: KindInvalidArgument}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrRemote          = &Error{Kind: KindRemote}
	ErrCacheIO         = &Error{Kind: KindCacheIO}
)

func (e *Error) Error() string {
	if e.Err != nil && e.Message != "" {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// HTTPStatus maps the error kind to the status the HTTP API answers with.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindInvalidArgument:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindRemote:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// InvalidArgument creates a caller error that must not be retried.
func InvalidArgument(message string) *Error {
	return &Error{Kind: KindInvalidArgument, Message: message}
}

// NotFound creates a terminal lookup failure.
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// Remote creates a transport failure. status is 0 when no response was received.
func Remote(status int, message string, cause error) *Error {
	if message == "" {
		message = "market request failed"
	}
	return &Error{Kind: KindRemote, Message: message, StatusCode: status, Err: cause}
}

// CacheIO wraps a persistent cache store failure.
func CacheIO(op string, cause error) *Error {
	return &Error{Kind: KindCacheIO, Message: "cache store " + op + " failed", Err: cause}
}

// KindOf returns the kind of err, or 0 when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds surfaced by the session subsystem
var (
	// Client-side input rejected before any request is made
	ErrValidationFailed = errors.New("validation failed")

	// Login or refresh rejected by the server
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Mid-session 401 that a refresh could not heal
	ErrAuthorizationExpired = errors.New("session expired")

	// No response from the server
	ErrNetworkUnavailable = errors.New("network unavailable")

	// 5xx or a payload that could not be understood
	ErrServerError = errors.New("server error")

	// Persisted session data that could not be decoded. Never surfaced to users.
	ErrCorruptedState = errors.New("corrupted persisted state")

	// General errors
	ErrNotFound = errors.New("not found")
)

// Failure is the single failure result returned by session operations and API calls.
// Message is human readable; Kind is one of the sentinel errors above.
type Failure struct {
	Kind    error
	Message string
	Status  int
}

// NewFailure returns a Failure of the given kind.
func NewFailure(kind error, message string) *Failure {
	return &Failure{Kind: kind, Message: message}
}

func (f *Failure) Error() string {
	if f.Message == "" && f.Kind != nil {
		return f.Kind.Error()
	}
	return f.Message
}

func (f *Failure) Unwrap() error {
	return f.Kind
}

// FromStatus classifies a non-2xx HTTP status into a Failure.
func FromStatus(status int, message string) *Failure {
	var kind error
	switch {
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		kind = ErrValidationFailed
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		kind = ErrInvalidCredentials
	case status == http.StatusNotFound:
		kind = ErrNotFound
	default:
		kind = ErrServerError
	}
	f := NewFailure(kind, message)
	f.Status = status
	return f
}

// Message returns the server or validation text carried by err, or fallback when there is none.
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var f *Failure
	if As(err, &f) && f.Message != "" {
		return f.Message
	}
	return fallback
}

// WithFallback returns err as a Failure whose message is never empty.
func WithFallback(err error, fallback string) *Failure {
	var f *Failure
	if !As(err, &f) {
		return NewFailure(err, fallback)
	}
	out := *f
	if out.Message == "" {
		out.Message = fallback
	}
	return &out
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New is errors.New, re-exported so callers need a single errors import
func New(text string) error {
	return errors.New(text)
}

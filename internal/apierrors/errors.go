// Package apierrors defines the facade's error taxonomy and its mapping to
// HTTP responses. Storage errors propagate unmodified; validation and
// authorization failures are surfaced to the caller and never retried.
package apierrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error for transport mapping.
type Kind string

const (
	// KindValidation covers malformed input or schema application failures,
	// such as a projection path resolving through a non-object value.
	KindValidation Kind = "VALIDATION"
	// KindAuthorization covers key resolution failures. Fails closed.
	KindAuthorization Kind = "AUTHORIZATION"
	// KindStorage covers connectivity and constraint failures from the
	// backing store. No retry happens inside the core.
	KindStorage Kind = "STORAGE"
	// KindUpstream covers SFG20 call failures.
	KindUpstream Kind = "UPSTREAM"
)

// Error carries a kind alongside the wrapped cause.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation wraps err as a validation error.
func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Err: fmt.Errorf(format, args...)}
}

// Authorization wraps err as an authorization rejection.
func Authorization(format string, args ...any) error {
	return &Error{Kind: KindAuthorization, Err: fmt.Errorf(format, args...)}
}

// Storage wraps a backing-store error without altering the cause.
func Storage(op string, err error) error {
	return &Error{Kind: KindStorage, Err: fmt.Errorf("%s: %w", op, err)}
}

// Upstream wraps an SFG20 call failure.
func Upstream(format string, args ...any) error {
	return &Error{Kind: KindUpstream, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of err, or KindStorage for unclassified errors so
// that unknown failures map to a server-side status.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorage
}

// IsAuthorization reports whether err is an authorization rejection.
func IsAuthorization(err error) bool {
	return KindOf(err) == KindAuthorization
}

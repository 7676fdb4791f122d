// Package apperr defines the abstract error kinds the engine and its
// collaborators surface, independent of any transport. internal/httpapi
// maps a Kind to an HTTP status at the edge; nothing below that edge
// should know about status codes.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the purposes of transport-level handling.
type Kind string

const (
	Validation           Kind = "validation"
	Unauthorized         Kind = "unauthorized"
	NotFound             Kind = "not_found"
	Conflict             Kind = "conflict"
	RateLimited          Kind = "rate_limited"
	EphemeralUnavailable Kind = "ephemeral_unavailable"
	MetadataUnavailable  Kind = "metadata_unavailable"
	Internal             Kind = "internal"
)

// Error is an error carrying a Kind alongside the usual wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New builds an *Error with no wrapped cause.
func New(kind Kind, message string) error {
	return &Error{Kind: kind, Message: message}
}

// Newf builds an *Error with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a Kind to an existing error.
func Wrap(kind Kind, message string, cause error) error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the Kind from err, defaulting to Internal when err does
// not carry one.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Package apperr defines the engine's error taxonomy. Business failures are
// expected outcomes and travel back to the transport as structured values
// with a machine-readable code; unexpected store or runtime failures are
// wrapped as Internal so their detail never reaches an end user.
package apperr

import "errors"

type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindFull         Kind = "full"
	KindValidation   Kind = "validation"
	KindConflict     Kind = "conflict"
	KindUnauthorized Kind = "unauthorized"
	KindInternal     Kind = "internal"
)

// Error carries a kind (for dispatch), a short machine code (for the UI to
// map to localized text) and a human-readable message.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func NotFound(code, message string) *Error     { return New(KindNotFound, code, message) }
func Full(code, message string) *Error         { return New(KindFull, code, message) }
func Validation(code, message string) *Error   { return New(KindValidation, code, message) }
func Conflict(code, message string) *Error     { return New(KindConflict, code, message) }
func Unauthorized(code, message string) *Error { return New(KindUnauthorized, code, message) }

// Internal wraps an unexpected failure. The cause is kept for logging but
// the outward message stays generic.
func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, Code: "internal_error", Message: "internal error", cause: cause}
}

// KindOf reports the kind of err, or KindInternal for errors outside the
// taxonomy.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf reports the machine code of err, or "internal_error" for errors
// outside the taxonomy.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "internal_error"
}

func IsKind(err error, kind Kind) bool { return KindOf(err) == kind }

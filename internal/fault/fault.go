package fault

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies why an outbound call (or its input) failed.
type Kind string

const (
	// NetworkFailure means the request never reached the service or never returned.
	NetworkFailure Kind = "NETWORK_FAILURE"
	// BackendError means the service answered with a non-2xx status.
	BackendError Kind = "BACKEND_ERROR"
	// MalformedResponse means a 2xx body did not match the expected shape.
	MalformedResponse Kind = "MALFORMED_RESPONSE"
	// ValidationError means caller-supplied input was rejected before any call.
	ValidationError Kind = "VALIDATION_ERROR"
	// NotFound means a referenced entity (bucket, order, wallet network) is absent.
	NotFound Kind = "NOT_FOUND"
)

// Error is the single error value the orchestration core lets callers see.
// It always carries the operation that failed and a short human-readable message.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error without an underlying cause.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap attaches a kind and operation to an underlying cause.
func Wrap(kind Kind, op, message string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

// FromStatus converts a non-2xx HTTP status into a classified error.
func FromStatus(op string, status int) *Error {
	if status == http.StatusNotFound {
		return New(NotFound, op, "not found")
	}
	return New(BackendError, op, fmt.Sprintf("upstream returned status %d", status))
}

// KindOf reports the kind of err, or empty string if err carries no Error.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Message returns the short user-visible message for err. Unclassified errors
// fall back to their plain Error() text.
func Message(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

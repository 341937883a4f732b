package coordinator

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind is the machine-readable classification surfaced to the client.
type ErrorKind string

const (
	KindInputInvalid    ErrorKind = "input_invalid"
	KindRateLimited     ErrorKind = "rate_limited"
	KindUpstreamFailure ErrorKind = "upstream_failure"
	KindInternalFailure ErrorKind = "internal_failure"
)

// Error carries the failure kind, the pipeline stage it occurred in, and a
// user-safe message. Internal detail stays in Err for logs, never for clients.
type Error struct {
	Kind       ErrorKind
	Stage      string
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (%s): %v", e.Kind, e.Stage, e.Err)
	}
	return fmt.Sprintf("%s (%s): %s", e.Kind, e.Stage, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf classifies any error returned by the coordinator. Non-coordinator
// errors count as internal failures.
func KindOf(err error) ErrorKind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindInternalFailure
}

// AsError extracts the typed error, wrapping foreign errors as internal ones.
func AsError(err error) *Error {
	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}
	return &Error{Kind: KindInternalFailure, Stage: "unknown", Message: genericFailureMessage, Err: err}
}

const genericFailureMessage = "Ha ocurrido un error interno. Intenta de nuevo."

func errInputInvalid(stage, message string) *Error {
	return &Error{Kind: KindInputInvalid, Stage: stage, Message: message}
}

func errRateLimited(retryAfter time.Duration) *Error {
	return &Error{
		Kind:       KindRateLimited,
		Stage:      "rate_check",
		Message:    "Consulta muy rápida",
		RetryAfter: retryAfter,
	}
}

func errUpstream(stage string, err error) *Error {
	return &Error{
		Kind:    KindUpstreamFailure,
		Stage:   stage,
		Message: "La IA tardó demasiado en responder",
		Err:     err,
	}
}

func errInternal(stage string, err error) *Error {
	return &Error{Kind: KindInternalFailure, Stage: stage, Message: genericFailureMessage, Err: err}
}

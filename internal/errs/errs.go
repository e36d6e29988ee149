// Package errs defines the typed error taxonomy the rest of memoryvault
// dispatches on: HTTP status mapping (internal/httpapi) and retry eligibility
// (internal/resilience) both read Code, never a type assertion chain.
package errs

import "fmt"

// Code classifies an Error for dispatch purposes.
type Code string

const (
	// Configuration covers missing/invalid environment configuration,
	// discovered at bootstrap or on first use of a misconfigured provider.
	Configuration Code = "CONFIGURATION_ERROR"
	// InvalidRequest covers malformed or unvalidatable caller input.
	InvalidRequest Code = "INVALID_REQUEST"
	// API covers a non-retryable failure from an upstream LLM or embedding
	// provider (4xx, schema rejection, auth failure).
	API Code = "API_SERVICE_UNAVAILABLE"
	// Retryable covers an upstream failure the caller should retry
	// (timeouts, 5xx, connection resets). The underlying cause, when there
	// is one, is wrapped; a 5xx response is reported with a nil cause.
	Retryable Code = "API_SERVICE_TEMPORARILY_UNAVAILABLE"
	// Database covers a non-retryable vector store failure.
	Database Code = "DATABASE_SERVICE_UNAVAILABLE"
	// NotFound covers a lookup that resolved to zero memories by ID.
	NotFound Code = "MEMORY_NOT_FOUND"
)

// Error is the boundary error value every component surfaces across a
// public method call. Internal helpers may still use fmt.Errorf("%w", ...)
// to add context within a layer; Error is what a layer hands to its caller.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

func newErr(code Code, msg string, cause error) *Error {
	return &Error{Code: code, Message: msg, cause: cause}
}

func Config(msg string, cause error) *Error       { return newErr(Configuration, msg, cause) }
func Invalid(msg string) *Error                   { return newErr(InvalidRequest, msg, nil) }
func Invalidf(format string, a ...any) *Error     { return newErr(InvalidRequest, fmt.Sprintf(format, a...), nil) }
func API_(msg string, cause error) *Error         { return newErr(API, msg, cause) }
func RetryableErr(msg string, cause error) *Error { return newErr(Retryable, msg, cause) }
func Database(msg string, cause error) *Error     { return newErr(Database, msg, cause) }

// NotFoundErr reports that the given memory IDs could not be located.
func NotFoundErr(ids []string) *Error {
	return newErr(NotFound, fmt.Sprintf("memories not found: %v", ids), nil)
}

// CodeOf extracts the Code carried by err, if any. For an error with no
// *Error in its chain it returns ("", false); callers choose the fallback
// (the HTTP layer maps such an error to API).
func CodeOf(err error) (Code, bool) {
	var e *Error
	if asError(err, &e) {
		return e.Code, true
	}
	return "", false
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// IsRetryable reports whether err is tagged Retryable.
func IsRetryable(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == Retryable
}

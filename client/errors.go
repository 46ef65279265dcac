package client

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrInstanceNotFound reports an operation against an instance id the
	// host has no record of.
	ErrInstanceNotFound = errors.New("no orchestration instance found")

	// ErrUnsupportedContent reports an event payload the host refused;
	// only application/json request content is supported.
	ErrUnsupportedContent = errors.New("only application/json request content is supported")

	// ErrNotFailed reports a rewind attempted on an instance that is not in
	// the Failed state.
	ErrNotFailed = errors.New("rewind is only supported on failed orchestration instances")

	// ErrNoInstancesPurged reports a purge filter that matched nothing.
	ErrNoInstancesPurged = errors.New("no orchestration instances matched the purge filter")

	// ErrRetryIntervalExceedsTimeout reports inverted polling bounds.
	ErrRetryIntervalExceedsTimeout = errors.New("retry interval exceeds wait timeout")
)

type (
	// UnexpectedStatusError reports a webhook response whose status code has
	// no defined outcome for the operation that issued it. The raw body is
	// kept for diagnostics.
	UnexpectedStatusError struct {
		// Op names the operation that received the response.
		Op string
		// Status is the HTTP status code.
		Status int
		// Body is the raw response payload, nil when the body was empty.
		Body json.RawMessage
	}

	// StartError reports a start request the host rejected. Error returns the
	// response body verbatim so the host's own diagnostic reaches the caller
	// unchanged; Status carries the HTTP code for branching.
	StartError struct {
		// Status is the HTTP status code.
		Status int
		// Detail is the response body rendered as text.
		Detail string
	}
)

// Error implements the error interface.
func (e *UnexpectedStatusError) Error() string {
	if len(e.Body) == 0 {
		return fmt.Sprintf("%s: webhook returned unrecognized status code %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: webhook returned unrecognized status code %d: %s", e.Op, e.Status, bodyText(e.Body))
}

// Error implements the error interface.
func (e *StartError) Error() string {
	return e.Detail
}

// instanceNotFound wraps ErrInstanceNotFound with the offending id.
func instanceNotFound(instanceID string) error {
	return fmt.Errorf("instance %q: %w", instanceID, ErrInstanceNotFound)
}

// bodyText renders a raw JSON body for error messages. JSON strings unwrap to
// their text so quoted host diagnostics read cleanly.
func bodyText(body json.RawMessage) string {
	var s string
	if err := json.Unmarshal(body, &s); err == nil {
		return s
	}
	return string(body)
}

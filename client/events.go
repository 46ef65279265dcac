package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// connectionPattern locates the connection query parameter for rewriting.
var connectionPattern = regexp.MustCompile(`(?i)(connection=)(\w+)`)

type (
	// RaiseEventOption configures RaiseEvent.
	RaiseEventOption func(*raiseEventOptions)

	raiseEventOptions struct {
		data       any
		hasData    bool
		taskHub    string
		connection string
	}
)

// WithEventData sets the JSON payload delivered to the waiting instance. A
// nil value posts JSON null; omitting the option posts no body at all.
func WithEventData(data any) RaiseEventOption {
	return func(o *raiseEventOptions) {
		o.data = data
		o.hasData = true
	}
}

// WithTaskHub targets a task hub other than the configured one by rewriting
// the task hub segment of the webhook URL.
func WithTaskHub(name string) RaiseEventOption {
	return func(o *raiseEventOptions) {
		o.taskHub = name
	}
}

// WithConnection swaps the storage connection name in the webhook query.
func WithConnection(name string) RaiseEventOption {
	return func(o *raiseEventOptions) {
		o.connection = name
	}
}

// RaiseEvent delivers an external event to a waiting orchestration instance.
// An empty eventName fails immediately with no network call. Statuses 202 and
// 410 both succeed: the event was accepted, or the instance already reached a
// terminal state and there is nothing left to signal. 404 fails with
// ErrInstanceNotFound, 400 with ErrUnsupportedContent, anything else with
// *UnexpectedStatusError.
func (c *Client) RaiseEvent(ctx context.Context, instanceID, eventName string, opts ...RaiseEventOption) (err error) {
	ctx, finish := c.observe(ctx, "raise_event",
		attribute.String("instance.id", instanceID),
		attribute.String("event.name", eventName),
	)
	defer func() { finish(err) }()

	if eventName == "" {
		return errors.New("durable: eventName is required")
	}
	var o raiseEventOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	urls := c.cfg.ManagementURLs
	requestURL := strings.ReplaceAll(urls.SendEventPostURI, urls.ID, instanceID)
	requestURL = strings.ReplaceAll(requestURL, eventNamePlaceholder, eventName)
	if o.taskHub != "" {
		requestURL = strings.Replace(requestURL, c.cfg.TaskHubName, o.taskHub, 1)
	}
	if o.connection != "" {
		requestURL = connectionPattern.ReplaceAllString(requestURL, "${1}"+o.connection)
	}

	var body any
	if o.hasData {
		body = o.data
		if body == nil {
			body = json.RawMessage("null")
		}
	}
	result, err := c.caller.Post(ctx, requestURL, body, c.callOpts()...)
	if err != nil {
		return err
	}
	switch result.Status {
	case http.StatusAccepted, http.StatusGone:
		return nil
	case http.StatusNotFound:
		return instanceNotFound(instanceID)
	case http.StatusBadRequest:
		return ErrUnsupportedContent
	default:
		return &UnexpectedStatusError{Op: "raise event", Status: result.Status, Body: result.Body}
	}
}

// Terminate requests termination of a running instance. Activity and
// sub-orchestration work already dispatched runs to completion regardless.
// Statuses 202 and 410 both succeed: the termination was accepted, or the
// instance already finished on its own. 404 fails with ErrInstanceNotFound,
// anything else with *UnexpectedStatusError.
func (c *Client) Terminate(ctx context.Context, instanceID, reason string) (err error) {
	ctx, finish := c.observe(ctx, "terminate", attribute.String("instance.id", instanceID))
	defer func() { finish(err) }()

	urls := c.cfg.ManagementURLs
	requestURL := strings.ReplaceAll(urls.TerminatePostURI, urls.ID, instanceID)
	requestURL = strings.ReplaceAll(requestURL, reasonPlaceholder, reason)

	result, err := c.caller.Post(ctx, requestURL, nil, c.callOpts()...)
	if err != nil {
		return err
	}
	switch result.Status {
	case http.StatusAccepted, http.StatusGone:
		return nil
	case http.StatusNotFound:
		return instanceNotFound(instanceID)
	default:
		return &UnexpectedStatusError{Op: "terminate", Status: result.Status, Body: result.Body}
	}
}

// Rewind replays a failed instance from its last good checkpoint. Only failed
// instances can be rewound: 410 fails with ErrNotFailed. 202 succeeds, 404
// fails with ErrInstanceNotFound, anything else with *UnexpectedStatusError.
func (c *Client) Rewind(ctx context.Context, instanceID, reason string) (err error) {
	ctx, finish := c.observe(ctx, "rewind", attribute.String("instance.id", instanceID))
	defer func() { finish(err) }()

	urls := c.cfg.ManagementURLs
	requestURL := strings.ReplaceAll(urls.RewindPostURI, urls.ID, instanceID)
	requestURL = strings.ReplaceAll(requestURL, reasonPlaceholder, reason)

	result, err := c.caller.Post(ctx, requestURL, nil, c.callOpts()...)
	if err != nil {
		return err
	}
	switch result.Status {
	case http.StatusAccepted:
		return nil
	case http.StatusNotFound:
		return instanceNotFound(instanceID)
	case http.StatusGone:
		return ErrNotFailed
	default:
		return &UnexpectedStatusError{Op: "rewind", Status: result.Status, Body: result.Body}
	}
}

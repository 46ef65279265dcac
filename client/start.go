package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

type (
	// StartOption configures StartNew.
	StartOption func(*startOptions)

	startOptions struct {
		instanceID string
		input      any
		hasInput   bool
	}

	// StartResult reports an accepted start request. The host may accept a
	// start without returning a payload; HasInstanceID distinguishes that
	// from an id-bearing acceptance.
	StartResult struct {
		// InstanceID is the id of the new instance.
		InstanceID string
		// HasInstanceID reports whether the host returned an id.
		HasInstanceID bool
	}
)

// WithInstanceID assigns the id of the new instance. Without it the host
// assigns one.
func WithInstanceID(instanceID string) StartOption {
	return func(o *startOptions) {
		o.instanceID = instanceID
	}
}

// WithInput sets the orchestrator input, delivered as the JSON request body.
// A nil input posts JSON null; omitting the option posts no body at all.
func WithInput(input any) StartOption {
	return func(o *startOptions) {
		o.input = input
		o.hasInput = true
	}
}

// StartNew schedules a new orchestration instance of the named orchestrator.
// A response status above 202 fails with *StartError carrying the response
// body as message. On acceptance the host normally echoes the management
// payload and the new id is returned; an acceptance with an empty body
// resolves with HasInstanceID unset.
func (c *Client) StartNew(ctx context.Context, orchestratorName string, opts ...StartOption) (res StartResult, err error) {
	ctx, finish := c.observe(ctx, "start_new", attribute.String("orchestrator.name", orchestratorName))
	defer func() { finish(err) }()

	if orchestratorName == "" {
		return StartResult{}, errors.New("durable: orchestratorName is required")
	}
	var o startOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	var segment string
	if o.instanceID != "" {
		segment = "/" + o.instanceID
	}
	requestURL := strings.ReplaceAll(c.cfg.CreationURLs.CreateNewInstancePostURI, functionNamePlaceholder, orchestratorName)
	requestURL = strings.ReplaceAll(requestURL, instanceIDPlaceholder, segment)

	var body any
	if o.hasInput {
		body = o.input
		if body == nil {
			body = json.RawMessage("null")
		}
	}
	result, err := c.caller.Post(ctx, requestURL, body, c.callOpts()...)
	if err != nil {
		return StartResult{}, err
	}
	if result.Status > http.StatusAccepted {
		return StartResult{}, &StartError{Status: result.Status, Detail: bodyText(result.Body)}
	}
	if len(result.Body) == 0 {
		return StartResult{}, nil
	}
	var payload ManagementPayload
	if err = result.Decode(&payload); err != nil {
		return StartResult{}, err
	}
	c.logger.Debug(ctx, "orchestration instance started",
		"orchestrator", orchestratorName,
		"instance_id", payload.ID,
	)
	return StartResult{InstanceID: payload.ID, HasInstanceID: true}, nil
}

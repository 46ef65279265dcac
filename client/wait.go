package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// Defaults for the completion polling protocol.
const (
	// DefaultWaitTimeout bounds the total time spent polling.
	DefaultWaitTimeout = 10 * time.Second
	// DefaultRetryInterval is the pause between consecutive status polls.
	DefaultRetryInterval = time.Second
)

type (
	// WaitOption adjusts the polling protocol.
	WaitOption func(*waitOptions)

	waitOptions struct {
		timeout       time.Duration
		retryInterval time.Duration
	}
)

// WithWaitTimeout bounds the total time spent polling before the wait
// degrades to the check-status response.
func WithWaitTimeout(d time.Duration) WaitOption {
	return func(o *waitOptions) {
		o.timeout = d
	}
}

// WithRetryInterval sets the pause between consecutive status polls. The
// interval must not exceed the wait timeout.
func WithRetryInterval(d time.Duration) WaitOption {
	return func(o *waitOptions) {
		o.retryInterval = d
	}
}

// WaitForCompletionOrCreateCheckStatusResponse polls the instance status
// until it reaches a terminal state or the wait timeout elapses. Completed
// yields 200 with the instance output as body; Canceled and Terminated yield
// 200 with the full status; Failed yields 500 with the full status. When the
// timeout elapses first the wait degrades to the async-pattern 202 response
// of CreateCheckStatusResponse — a documented success, not an error.
//
// The loop is time-bounded, not count-bounded: each pause is the retry
// interval clamped to the time remaining, so the final poll lands on the
// deadline without overshoot. Transport and protocol errors abort the wait,
// as does ctx cancellation during a pause.
func (c *Client) WaitForCompletionOrCreateCheckStatusResponse(ctx context.Context, r *http.Request, instanceID string, opts ...WaitOption) (resp *Response, err error) {
	ctx, finish := c.observe(ctx, "wait", attribute.String("instance.id", instanceID))
	defer func() { finish(err) }()

	o := waitOptions{timeout: DefaultWaitTimeout, retryInterval: DefaultRetryInterval}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.retryInterval > o.timeout {
		return nil, fmt.Errorf("durable: retry interval %v against wait timeout %v: %w",
			o.retryInterval, o.timeout, ErrRetryIntervalExceedsTimeout)
	}

	start := time.Now()
	for {
		c.metrics.IncCounter("durable.client.polls", 1)
		status, serr := c.GetStatus(ctx, instanceID)
		if serr != nil {
			return nil, serr
		}
		if status != nil {
			switch status.RuntimeStatus {
			case RuntimeStatusCompleted:
				return newResponse(http.StatusOK, status.Output), nil
			case RuntimeStatusCanceled, RuntimeStatusTerminated:
				return marshalResponse(http.StatusOK, status)
			case RuntimeStatusFailed:
				return marshalResponse(http.StatusInternalServerError, status)
			}
		}
		elapsed := time.Since(start)
		if elapsed >= o.timeout {
			return c.CreateCheckStatusResponse(r, instanceID), nil
		}
		pause := o.retryInterval
		if remaining := o.timeout - elapsed; remaining < pause {
			pause = remaining
		}
		c.logger.Debug(ctx, "instance not finished, polling again",
			"instance_id", instanceID,
			"elapsed", elapsed.String(),
			"pause", pause.String(),
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pause):
		}
	}
}

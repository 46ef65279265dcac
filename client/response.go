package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

// Response is the HTTP response a webhook-triggered caller relays to its own
// client: 200 for a finished instance, 202 with management links while it
// runs, 500 when it failed. Headers always carry Content-Type and a
// Content-Length matching the serialized body.
type Response struct {
	// Status is the HTTP status code.
	Status int `json:"status"`
	// Body is the serialized JSON body, nil for an empty body.
	Body json.RawMessage `json:"body,omitempty"`
	// Headers are the response headers.
	Headers map[string]string `json:"headers"`
}

// CreateCheckStatusResponse builds the async-pattern response for an instance
// that is still running: HTTP 202 with the management payload as body, the
// status query URL in Location, and Retry-After set to 10 seconds. When r
// carries a usable origin the payload URLs are rewritten to it. Pure; no
// network call.
func (c *Client) CreateCheckStatusResponse(r *http.Request, instanceID string) *Response {
	payload := c.managementPayload(r, instanceID)
	body, _ := json.Marshal(payload)
	resp := newResponse(http.StatusAccepted, body)
	resp.Headers["Location"] = payload.StatusQueryGetURI
	resp.Headers["Retry-After"] = "10"
	return resp
}

// newResponse builds a Response around an already-serialized JSON body and
// stamps the content headers. A nil body yields Content-Length 0.
func newResponse(status int, body json.RawMessage) *Response {
	return &Response{
		Status: status,
		Body:   body,
		Headers: map[string]string{
			"Content-Type":   "application/json",
			"Content-Length": strconv.Itoa(len(body)),
		},
	}
}

// marshalResponse serializes body and wraps it in a Response.
func marshalResponse(status int, body any) (*Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("durable: encode response body: %w", err)
	}
	return newResponse(status, data), nil
}

// Write relays the response through an HTTP response writer.
func (r *Response) Write(w http.ResponseWriter) error {
	for k, v := range r.Headers {
		w.Header().Set(k, v)
	}
	w.WriteHeader(r.Status)
	if len(r.Body) == 0 {
		return nil
	}
	_, err := w.Write(r.Body)
	return err
}

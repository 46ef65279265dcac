package webhook

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Result holds a fully buffered webhook response. Body is nil when the
// response carried no payload; otherwise it holds the validated JSON document.
type Result struct {
	// Status is the HTTP status code of the response.
	Status int
	// Body is the raw JSON response payload, nil when the body was empty.
	Body json.RawMessage
	// Headers are the response headers.
	Headers http.Header
}

// Decode unmarshals the result body into v. Decoding an empty body is an
// error; callers check Body before decoding when emptiness is expected.
func (r *Result) Decode(v any) error {
	if len(r.Body) == 0 {
		return fmt.Errorf("webhook: empty response body (status %d)", r.Status)
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("webhook: decode response body: %w", err)
	}
	return nil
}

// Package webhook executes HTTP exchanges against the management endpoints
// exposed by a durable orchestration host. Each call performs exactly one
// request/response cycle: the URL scheme selects a plaintext or TLS transport,
// an optional body is JSON-encoded, and the full response body is buffered and
// parsed as JSON before the result is returned. The package applies no retry
// policy; callers own retries and interpret status codes.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"goa.design/durable/telemetry"
)

type (
	// Option configures the Caller.
	Option func(*Caller)

	// CallOption adjusts a single exchange.
	CallOption func(*callOptions)

	// Caller issues webhook requests. It holds one transport per supported URL
	// scheme and no per-call state, so a single Caller is safe for concurrent
	// use.
	Caller struct {
		plain   Transport
		secure  Transport
		headers http.Header
		limiter *rate.Limiter
		logger  telemetry.Logger
	}

	callOptions struct {
		timeout time.Duration
	}
)

// wireGrace pads the wire-level timeout past the protocol deadline so the
// deadline fires first and surfaces context.DeadlineExceeded instead of a
// mid-flight transport error.
const wireGrace = 500 * time.Millisecond

// WithHeader adds a static header to all outgoing requests.
func WithHeader(name, value string) Option {
	return func(c *Caller) {
		if c.headers == nil {
			c.headers = make(http.Header)
		}
		c.headers.Add(name, value)
	}
}

// WithLimiter rate-limits exchanges with the given limiter. The limiter is
// awaited before each request, so fleets of pollers sharing one limiter bound
// the aggregate pressure they put on the host's webhook endpoints.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Caller) {
		c.limiter = l
	}
}

// WithLogger emits a debug log per exchange. The default logger is a noop.
func WithLogger(l telemetry.Logger) Option {
	return func(c *Caller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTransport overrides the transport bound to the given URL scheme. Schemes
// other than "http" and "https" are ignored.
func WithTransport(scheme string, t Transport) Option {
	return func(c *Caller) {
		if t == nil {
			return
		}
		switch scheme {
		case "http":
			c.plain = t
		case "https":
			c.secure = t
		}
	}
}

// WithTimeout bounds a single exchange. The deadline applies at the protocol
// level; the wire-level timeout is set to the same value plus a fixed grace
// margin so context.DeadlineExceeded is the error callers observe on expiry.
func WithTimeout(d time.Duration) CallOption {
	return func(o *callOptions) {
		o.timeout = d
	}
}

// New constructs a Caller with plaintext and TLS transports installed.
func New(opts ...Option) *Caller {
	c := &Caller{
		plain:   NewPlainTransport(),
		secure:  NewTLSTransport(nil),
		headers: make(http.Header),
		logger:  telemetry.NewNoopLogger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Get issues a GET request against the given URL.
func (c *Caller) Get(ctx context.Context, rawURL string, opts ...CallOption) (*Result, error) {
	return c.do(ctx, http.MethodGet, rawURL, nil, opts)
}

// Post issues a POST request against the given URL. A non-nil body is
// JSON-encoded and sent with Content-Type application/json; a nil body yields
// a zero Content-Length request.
func (c *Caller) Post(ctx context.Context, rawURL string, body any, opts ...CallOption) (*Result, error) {
	return c.do(ctx, http.MethodPost, rawURL, body, opts)
}

// Delete issues a DELETE request against the given URL.
func (c *Caller) Delete(ctx context.Context, rawURL string, opts ...CallOption) (*Result, error) {
	return c.do(ctx, http.MethodDelete, rawURL, nil, opts)
}

// do performs one exchange. The URL is parsed and its scheme resolved to a
// transport before any I/O so unsupported schemes fail without touching the
// network.
func (c *Caller) do(ctx context.Context, method, rawURL string, body any, opts []CallOption) (*Result, error) {
	var co callOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&co)
		}
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("webhook: parse url: %w", err)
	}
	transport, err := c.transportFor(u.Scheme)
	if err != nil {
		return nil, err
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	var wire time.Duration
	if co.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, co.timeout)
		defer cancel()
		wire = co.timeout + wireGrace
	}

	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("webhook: encode request body: %w", err)
		}
	}
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return nil, fmt.Errorf("webhook: build request: %w", err)
	}
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range c.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	injectTraceHeaders(ctx, req.Header)

	resp, err := transport.Do(req, wire)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("webhook: read response body: %w", err)
	}

	result := &Result{Status: resp.StatusCode, Headers: resp.Header}
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 {
		if !json.Valid(trimmed) {
			return nil, fmt.Errorf("webhook: response body is not valid JSON (status %d)", resp.StatusCode)
		}
		result.Body = json.RawMessage(trimmed)
	}

	// The query string carries host system keys; log only method, host and path.
	c.logger.Debug(ctx, "webhook exchange",
		"method", method,
		"host", u.Host,
		"path", u.Path,
		"status", resp.StatusCode,
	)
	return result, nil
}

// transportFor resolves the transport bound to the given URL scheme.
func (c *Caller) transportFor(scheme string) (Transport, error) {
	switch scheme {
	case "http":
		return c.plain, nil
	case "https":
		return c.secure, nil
	default:
		return nil, &SchemeError{Scheme: scheme}
	}
}

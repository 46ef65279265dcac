// Package client implements the orchestration management client: the typed
// surface through which an application starts, queries, signals, terminates,
// rewinds and purges orchestration instances running in a remote durable
// workflow host.
//
// # Lifecycle operations
//
// The host exposes one webhook per lifecycle action as a URL template with an
// embedded instance-id placeholder. Each operation substitutes the
// placeholder, performs a single HTTP exchange through the webhook package,
// and maps the response status code to a typed outcome; the code semantics
// differ per endpoint and are documented on each method.
//
// # Waiting for completion
//
// WaitForCompletionOrCreateCheckStatusResponse composes status queries into a
// time-bounded polling loop that resolves with the instance outcome or
// degrades to the async-pattern 202 response carrying the management links.
package client

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"goa.design/durable/telemetry"
	"goa.design/durable/webhook"
)

type (
	// Caller performs webhook exchanges on behalf of the client.
	// *webhook.Caller implements it; tests substitute fakes.
	Caller interface {
		Get(ctx context.Context, rawURL string, opts ...webhook.CallOption) (*webhook.Result, error)
		Post(ctx context.Context, rawURL string, body any, opts ...webhook.CallOption) (*webhook.Result, error)
		Delete(ctx context.Context, rawURL string, opts ...webhook.CallOption) (*webhook.Result, error)
	}

	// Option configures the client.
	Option func(*options)

	options struct {
		caller         Caller
		webhookOpts    []webhook.Option
		logger         telemetry.Logger
		metrics        telemetry.Metrics
		tracer         telemetry.Tracer
		requestTimeout time.Duration
	}

	// Client issues lifecycle operations against the management webhooks of
	// one task hub. It holds only immutable state and is safe for concurrent
	// use. Operations perform sequential exchanges and never retry; the wait
	// operation's polling loop is a protocol, not a retry policy.
	Client struct {
		cfg            Config
		caller         Caller
		logger         telemetry.Logger
		metrics        telemetry.Metrics
		tracer         telemetry.Tracer
		requestTimeout time.Duration
	}
)

var _ Caller = (*webhook.Caller)(nil)

// WithCaller substitutes the webhook transport. Options aimed at the default
// caller (WithWebhookOptions, WithLimiter) are ignored when a caller is
// supplied.
func WithCaller(caller Caller) Option {
	return func(o *options) {
		o.caller = caller
	}
}

// WithWebhookOptions forwards options to the default webhook caller.
func WithWebhookOptions(opts ...webhook.Option) Option {
	return func(o *options) {
		o.webhookOpts = append(o.webhookOpts, opts...)
	}
}

// WithLimiter rate-limits the exchanges issued by the default webhook caller.
func WithLimiter(l *rate.Limiter) Option {
	return func(o *options) {
		o.webhookOpts = append(o.webhookOpts, webhook.WithLimiter(l))
	}
}

// WithRequestTimeout bounds each webhook exchange. Zero leaves exchanges
// unbounded; the wait operation stays bounded by its own timeout either way.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *options) {
		o.requestTimeout = d
	}
}

// WithLogger installs a logger. The default discards all messages.
func WithLogger(l telemetry.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics installs a metrics recorder. The default discards all metrics.
func WithMetrics(m telemetry.Metrics) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithTracer installs a tracer. The default records no spans.
func WithTracer(t telemetry.Tracer) Option {
	return func(o *options) {
		if t != nil {
			o.tracer = t
		}
	}
}

// New builds a client for the given configuration. The configuration is
// validated and copied; mutating cfg afterwards does not affect the client.
func New(cfg *Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("durable: configuration is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := options{
		logger:  telemetry.NewNoopLogger(),
		metrics: telemetry.NewNoopMetrics(),
		tracer:  telemetry.NewNoopTracer(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.caller == nil {
		o.caller = webhook.New(append(o.webhookOpts, webhook.WithLogger(o.logger))...)
	}
	return &Client{
		cfg:            cfg.clone(),
		caller:         o.caller,
		logger:         o.logger,
		metrics:        o.metrics,
		tracer:         o.tracer,
		requestTimeout: o.requestTimeout,
	}, nil
}

// TaskHubName returns the task hub the client addresses.
func (c *Client) TaskHubName() string {
	return c.cfg.TaskHubName
}

// observe opens a span for op and returns the context plus a finish func that
// records the outcome counter, the duration histogram and the span status.
func (c *Client) observe(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "durable.client."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
	return ctx, func(err error) {
		outcome := "success"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		c.metrics.IncCounter("durable.client.requests", 1, "operation", op, "outcome", outcome)
		c.metrics.RecordTimer("durable.client.duration", time.Since(start), "operation", op, "outcome", outcome)
		span.End()
	}
}

// callOpts renders the per-exchange webhook options.
func (c *Client) callOpts() []webhook.CallOption {
	if c.requestTimeout <= 0 {
		return nil
	}
	return []webhook.CallOption{webhook.WithTimeout(c.requestTimeout)}
}

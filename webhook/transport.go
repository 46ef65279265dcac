package webhook

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"time"
)

type (
	// Transport performs a single HTTP round trip and returns the raw
	// response. wire bounds the whole exchange at the connection level; zero
	// means no wire-level timeout.
	Transport interface {
		Do(req *http.Request, wire time.Duration) (*http.Response, error)
	}

	// SchemeError reports a URL whose scheme has no registered transport.
	SchemeError struct {
		Scheme string
	}

	plainTransport struct {
		client *http.Client
	}

	tlsTransport struct {
		client *http.Client
	}
)

var (
	_ Transport = (*plainTransport)(nil)
	_ Transport = (*tlsTransport)(nil)
)

// Error returns a human-readable description of the error.
func (e *SchemeError) Error() string {
	return fmt.Sprintf("webhook: unsupported URL scheme %q", e.Scheme)
}

// NewPlainTransport returns the transport used for http URLs.
func NewPlainTransport() Transport {
	return &plainTransport{
		client: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConnsPerHost: 8,
			},
		},
	}
}

// NewTLSTransport returns the transport used for https URLs. A nil config
// yields the default TLS configuration with a minimum version of TLS 1.2.
func NewTLSTransport(cfg *tls.Config) Transport {
	if cfg == nil {
		cfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return &tlsTransport{
		client: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConnsPerHost: 8,
				TLSClientConfig:     cfg,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
	}
}

func (t *plainTransport) Do(req *http.Request, wire time.Duration) (*http.Response, error) {
	return doWithWireTimeout(t.client, req, wire)
}

func (t *tlsTransport) Do(req *http.Request, wire time.Duration) (*http.Response, error) {
	return doWithWireTimeout(t.client, req, wire)
}

// doWithWireTimeout executes the request with the given wire-level timeout.
// The client is shallow-copied so the timeout never leaks into concurrent
// exchanges while the underlying transport keeps its connection pool.
func doWithWireTimeout(client *http.Client, req *http.Request, wire time.Duration) (*http.Response, error) {
	if wire <= 0 {
		return client.Do(req)
	}
	c := *client
	c.Timeout = wire
	return c.Do(req)
}

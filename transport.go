package restretry

import (
	"bytes"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-cleanhttp"
)

// AttemptConfig is the per-attempt transport configuration the executor
// applies before each send.
type AttemptConfig struct {
	// Timeout overrides the transport's request timeout for subsequent
	// attempts. Zero restores the transport's base timeout.
	Timeout time.Duration

	// SuppressCookies disables cookie handling for subsequent attempts.
	SuppressCookies bool
}

// A Transport sends a single request attempt. The executor drives it; it
// owns connection pooling, TLS and everything else below the retry loop.
type Transport interface {
	// Do performs one attempt. A returned error satisfying
	// errors.Is(err, ErrTransportClosed), or unwrapping to
	// *InvalidStateError, is treated as fatal and never retried.
	Do(req *http.Request) (*http.Response, error)

	// ApplyConfig reconfigures the transport for the attempts that
	// follow. It is called before every attempt.
	ApplyConfig(cfg AttemptConfig)

	// Release frees the attempt-scoped resources of a response that is
	// about to be superseded by a retry, so connections don't pile up
	// across attempts. resp may be nil.
	Release(resp *http.Response)
}

// HTTPTransport is the default Transport, wrapping an *http.Client.
type HTTPTransport struct {
	client *http.Client

	baseTimeout time.Duration
	jar         http.CookieJar
	closed      atomic.Bool
}

var _ Transport = (*HTTPTransport)(nil)

// NewTransport wraps client in a Transport. A nil client gets a pooled
// client from go-cleanhttp, untangled from any package-global transport
// state.
func NewTransport(client *http.Client) *HTTPTransport {
	if client == nil {
		client = cleanhttp.DefaultPooledClient()
	}

	return &HTTPTransport{
		client:      client,
		baseTimeout: client.Timeout,
		jar:         client.Jar,
	}
}

// Do implements Transport.
func (t *HTTPTransport) Do(req *http.Request) (*http.Response, error) {
	if t.closed.Load() {
		return nil, &InvalidStateError{Err: ErrTransportClosed}
	}

	return t.client.Do(req)
}

// ApplyConfig implements Transport.
func (t *HTTPTransport) ApplyConfig(cfg AttemptConfig) {
	if cfg.Timeout > 0 {
		t.client.Timeout = cfg.Timeout
	} else {
		t.client.Timeout = t.baseTimeout
	}

	if cfg.SuppressCookies {
		t.client.Jar = nil
	} else {
		t.client.Jar = t.jar
	}
}

// Release implements Transport. The body is drained before closing so the
// underlying connection can go back into the pool instead of being torn
// down.
func (t *HTTPTransport) Release(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

// Close shuts the transport down. Requests sent through a closed transport
// fail immediately with an InvalidStateError; the executor will not retry
// them.
func (t *HTTPTransport) Close() {
	t.closed.Store(true)
	t.client.CloseIdleConnections()
}

// NewRequest wraps the function from net/http, but with the addition
// of a `GetBody` function on that request.
//
// Without GetBody, a request whose body was partially read by a failed
// attempt resends only the remainder on the next attempt- a 100mb upload
// that dies 70mb in would retry with just the last 30mb, which is probably
// broken. Setting GetBody lets net/http rewind to the full payload for
// every attempt.
//
// Note: you're probably better off providing your own `req.GetBody` function;
// especially on large requests- this function reads your body into memory,
// persisting a copy of it until the request finally succeeds and the copy is
// garbage collected.
func NewRequest(method, url string, body io.Reader) (*http.Request, error) {
	if body == nil {
		return http.NewRequest(method, url, nil)
	}

	buf := new(bytes.Buffer)

	_, err := io.Copy(buf, body)
	if err != nil {
		return nil, err
	}

	bb := buf.Bytes()

	req, err := http.NewRequest(method, url, buf)
	if err != nil {
		return nil, err
	}

	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(bb)), nil
	}

	return req, nil
}

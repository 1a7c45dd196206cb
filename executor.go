package restretry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

const (
	// DefaultMinRetryCount is how many retries are attempted even after
	// the retry budget has been spent.
	DefaultMinRetryCount = 1

	// DefaultOperation labels metrics when the caller doesn't name the
	// operation.
	DefaultOperation = "http_request"

	// longAttemptThreshold is how long a single attempt may run before it
	// earns its own diagnostic log line.
	longAttemptThreshold = 5 * time.Minute
)

// Options carries the per-call knobs of Execute.
type Options struct {
	// RetryTimeout bounds the total time attributed to transient issues.
	// Zero or negative disables the budget: transient failures are
	// retried indefinitely.
	RetryTimeout time.Duration

	// InjectSocketTimeout, when positive, is applied as the transport
	// timeout for the first attempt only. It exists to let tests and
	// fault-injection harnesses force a socket timeout; leave it zero
	// otherwise.
	InjectSocketTimeout time.Duration

	// Canceling stops the loop when set. It may be flipped from another
	// goroutine at any time; the loop reads it once per iteration and
	// returns whatever response (possibly none) it has at that point.
	// Cancellation is not an error.
	Canceling *atomic.Bool

	// SuppressCookies disables cookie handling on every attempt.
	SuppressCookies bool

	// IncludeRetryParameters adds the clientStartTime query parameter to
	// retried attempts so the server can correlate them.
	IncludeRetryParameters bool

	// IncludeRequestGUID adds a fresh request_guid query parameter to
	// every attempt.
	IncludeRequestGUID bool

	// Ctx, when created by NewContext, receives attempt metadata for the
	// caller to read back afterwards. It does not cancel the loop; use
	// Canceling for that.
	Ctx context.Context
}

// An Executor drives an HTTP request to completion despite transient
// network failures and transient server errors, waiting a decorrelated-
// jitter backoff between attempts.
type Executor struct {
	// MinBackoff and MaxBackoff bound the wait between attempts.
	MinBackoff time.Duration
	MaxBackoff time.Duration

	// MinRetryCount retries are attempted even once RetryTimeout is
	// already spent.
	MinRetryCount int

	// Operation labels this executor's metrics.
	Operation string

	// Policy classifies outcomes. Nil means DefaultPolicy.
	Policy *Policy

	// Logger receives per-attempt diagnostics.
	Logger zerolog.Logger

	// Events receives the network-error event for terminal error
	// responses. Nil means no events.
	Events EventSink
}

// New returns an Executor with the stock backoff bounds and classification.
func New() *Executor {
	return &Executor{
		MinBackoff:    DefaultMinBackoff,
		MaxBackoff:    DefaultMaxBackoff,
		MinRetryCount: DefaultMinRetryCount,
		Operation:     DefaultOperation,
		Policy:        DefaultPolicy(),
		Logger:        zerolog.Nop(),
		Events:        NopSink{},
	}
}

// Execute sends req through transport until it gets a non-retryable
// response, the retry budget runs out, or the caller cancels.
//
// The request is mutated in place: its query parameters are restamped
// before every attempt, and the mutations remain visible to the caller
// after Execute returns. Use NewRequest (or set req.GetBody) when the
// request carries a body, so retried attempts resend the full payload.
//
// The returned response may carry any status code; a terminal error status
// is the caller's problem, not Execute's. Only two situations produce an
// error instead of a response: a fatal transport fault (InvalidStateError)
// and an exhausted retry budget during which no response was ever obtained
// (NetworkTimeoutError). A response returned after the budget ran out may
// still carry a retryable status; the caller owns it the same as any other
// returned response.
func (e *Executor) Execute(transport Transport, req *http.Request, opts Options) (*http.Response, error) {
	if transport == nil {
		return nil, errors.New("restretry: nil transport")
	}
	if req == nil || req.URL == nil {
		return nil, errors.New("restretry: nil request")
	}

	var (
		start            = time.Now()
		policy           = e.policy()
		minRetries       = e.minRetries()
		operation        = e.operation()
		resp             *http.Response
		savedErr         error
		retryCount       int
		elapsedTransient time.Duration
		lastDuration     time.Duration
	)

	// One generator per call; they're not safe to share.
	var bo backoff.BackOff = NewDecorrelatedJitter(e.MinBackoff, e.MaxBackoff)
	wait := bo.NextBackOff()

	md, hasMD := getAttemptMetadata(opts.Ctx)

	for {
		e.Logger.Debug().Int("retry_count", retryCount).Msg("attempting request")
		recordAttempt(operation)

		if hasMD {
			md.attempts = retryCount + 1
		}

		attemptStart := time.Now()
		attemptResp, attemptErr := e.attempt(transport, req, opts, retryCount, start)
		lastDuration = time.Since(attemptStart)

		if attemptErr != nil {
			if policy.IsFatal(attemptErr) {
				recordExecute(operation, false, time.Since(start).Seconds())
				return nil, fatalError(attemptErr)
			}

			savedErr = attemptErr

			if lastDuration > longAttemptThreshold {
				e.Logger.Error().
					Dur("elapsed", lastDuration).
					Msg("HTTP attempt took longer than 5 min")
			}

			e.Logger.Warn().
				Err(attemptErr).
				Str("request", describeRequest(req)).
				Msg("exception encountered for request")
		} else {
			resp = attemptResp
		}

		// A response outside the transient set ends the loop, success
		// or not.
		if attemptErr == nil && !policy.ShouldRetryStatus(attemptResp.StatusCode) {
			e.Logger.Debug().Int("status", attemptResp.StatusCode).Msg("http response code")

			if attemptResp.StatusCode != policy.SuccessStatus {
				e.Logger.Debug().
					Int("status", attemptResp.StatusCode).
					Str("request", describeRequest(req)).
					Msg("error response not retryable")
				e.emit(Event{
					Type: EventNetworkError,
					Message: fmt.Sprintf("StatusCode: %d, Reason: %s, Request: %s",
						attemptResp.StatusCode,
						http.StatusText(attemptResp.StatusCode),
						describeRequest(req)),
				})
			} else if hasMD {
				md.successfulDuration = lastDuration
			}

			break
		}

		if attemptErr == nil {
			e.Logger.Warn().
				Int("status", attemptResp.StatusCode).
				Str("request", describeRequest(req)).
				Msg("http response not ok")
		} else {
			e.Logger.Warn().
				Str("request", describeRequest(req)).
				Msg("no response for request")
		}

		if opts.Canceling != nil && opts.Canceling.Load() {
			e.Logger.Info().Msg("stop retrying since canceling is requested")
			break
		}

		if opts.RetryTimeout > 0 {
			elapsedTransient += lastDuration

			if elapsedTransient > opts.RetryTimeout && retryCount >= minRetries {
				e.Logger.Error().
					Dur("elapsed", elapsedTransient).
					Dur("timeout", opts.RetryTimeout).
					Msg("stop retrying since elapsed time due to network issues has reached timeout")

				if resp == nil && savedErr != nil {
					recordExecute(operation, false, time.Since(start).Seconds())
					return nil, &NetworkTimeoutError{Cause: savedErr}
				}

				break
			}
		}

		e.Logger.Debug().Str("request", describeRequest(req)).Msg("retrying request")

		// The attempt itself may have outlasted the backoff, in which
		// case its latency already absorbed the wait.
		if wait > lastDuration {
			e.Logger.Debug().Dur("backoff", wait).Msg("sleeping before retry")
			time.Sleep(wait)
			elapsedTransient += wait
			recordBackoff(operation, wait.Seconds())
			wait = bo.NextBackOff()
		}

		if attemptErr == nil {
			transport.Release(attemptResp)
		}

		retryCount++
	}

	if resp == nil {
		e.Logger.Error().Str("request", describeRequest(req)).Msg("returning no response for request")
	} else if resp.StatusCode != policy.SuccessStatus {
		e.Logger.Error().
			Int("status", resp.StatusCode).
			Str("request", describeRequest(req)).
			Msg("error response")
	}

	recordExecute(operation, resp != nil && resp.StatusCode == policy.SuccessStatus, time.Since(start).Seconds())

	return resp, nil
}

// attempt configures the transport, stamps the request and sends it once.
// The injected first-attempt timeout is undone on the way out, fault or
// not.
func (e *Executor) attempt(transport Transport, req *http.Request, opts Options, retryCount int, start time.Time) (*http.Response, error) {
	cfg := AttemptConfig{SuppressCookies: opts.SuppressCookies}

	if retryCount == 0 && opts.InjectSocketTimeout > 0 {
		e.Logger.Info().
			Dur("timeout", opts.InjectSocketTimeout).
			Msg("injecting socket timeout for first attempt")
		cfg.Timeout = opts.InjectSocketTimeout

		defer transport.ApplyConfig(AttemptConfig{SuppressCookies: opts.SuppressCookies})
	}

	transport.ApplyConfig(cfg)

	stampRequest(req, retryCount, start, opts)

	// A retried request has already had its body consumed; rewind it so
	// the attempt resends the whole payload.
	if retryCount > 0 && req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		req.Body = body
	}

	return transport.Do(req)
}

func (e *Executor) policy() *Policy {
	if e.Policy != nil {
		return e.Policy
	}

	return DefaultPolicy()
}

func (e *Executor) minRetries() int {
	if e.MinRetryCount > 0 {
		return e.MinRetryCount
	}

	return DefaultMinRetryCount
}

func (e *Executor) operation() string {
	if e.Operation != "" {
		return e.Operation
	}

	return DefaultOperation
}

func (e *Executor) emit(ev Event) {
	if e.Events != nil {
		e.Events.Emit(ev)
	}
}

// fatalError normalises an invalid-local-state fault into an
// *InvalidStateError for the caller.
func fatalError(err error) error {
	var ise *InvalidStateError
	if errors.As(err, &ise) {
		return err
	}

	return &InvalidStateError{Err: err}
}

func describeRequest(req *http.Request) string {
	return req.Method + " " + req.URL.Redacted()
}

/*
Package restretry drives an HTTP request to completion despite transient
network failures and transient server errors, wrapping whatever client the
caller already has behind a narrow Transport interface.

The retry loop waits a decorrelated-jitter backoff between attempts, bounds
the total time spent on transient issues with a caller-supplied budget,
honours a cross-goroutine cancellation flag, and stamps retried requests
with query parameters (`retryCount`, `clientStartTime`, `request_guid`) so
the receiving service can recognise and correlate them.

Classification is deliberately blunt: 5xx, 408 and 403 are transient,
everything else- success and failure alike- is returned to the caller as-is.
Inspect the status code; a non-retryable error response is not an error from
this package's point of view.
*/
package restretry

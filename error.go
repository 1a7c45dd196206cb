package restretry

import (
	"errors"
	"fmt"
)

// ErrTransportClosed is returned by a Transport whose underlying client has
// been shut down. The executor treats it as fatal and never retries.
var ErrTransportClosed = errors.New("transport is closed")

// InvalidStateError indicates the transport was in no state to send the
// request at all (typically: already closed). It is surfaced immediately,
// without any retry.
type InvalidStateError struct {
	Err error
}

// Error implements the `Error` interface
func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid transport state: %v", e.Err)
}

// Unwrap exposes the underlying fault for errors.Is/errors.As.
func (e *InvalidStateError) Unwrap() error {
	return e.Err
}

// NetworkTimeoutError is returned when the retry budget is spent on
// transient faults without a single response ever being obtained. The last
// transport fault is carried as the cause.
type NetworkTimeoutError struct {
	Cause error
}

// Error implements the `Error` interface
func (e *NetworkTimeoutError) Error() string {
	return fmt.Sprintf("retry budget exhausted for HTTP request: %v", e.Cause)
}

// Unwrap exposes the last transport fault for errors.Is/errors.As.
func (e *NetworkTimeoutError) Unwrap() error {
	return e.Cause
}

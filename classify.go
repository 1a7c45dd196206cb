package restretry

import (
	"errors"
	"net/http"
)

// Policy decides which outcomes are worth another attempt.
//
// The whole 5xx band is always considered transient; RetryableStatuses adds
// individual codes on top of it. The default set carries 408 (request
// timeout) and, more unusually, 403: the upstream service this library was
// written against sits behind an access layer that intermittently answers
// 403 during failover. Deployments without that quirk can build a Policy
// that drops it.
type Policy struct {
	// RetryableStatuses are retried in addition to the [500, 599] band.
	RetryableStatuses map[int]bool

	// SuccessStatus is the canonical success code. It never changes what
	// Execute returns; it only gates the terminal diagnostics and the
	// network-error event.
	SuccessStatus int
}

// DefaultPolicy returns the classification the upstream service expects:
// 5xx, 408 and 403 are transient, everything else is terminal.
func DefaultPolicy() *Policy {
	return &Policy{
		RetryableStatuses: map[int]bool{
			http.StatusRequestTimeout: true,
			http.StatusForbidden:      true,
		},
		SuccessStatus: http.StatusOK,
	}
}

// ShouldRetryStatus reports whether a response with the given status code
// counts as a transient failure.
func (p *Policy) ShouldRetryStatus(code int) bool {
	if code >= 500 && code < 600 {
		return true
	}

	return p.RetryableStatuses[code]
}

// IsFatal reports whether a transport fault indicates invalid local state,
// such as sending through an already-closed client. Fatal faults are never
// retried.
func (p *Policy) IsFatal(err error) bool {
	var ise *InvalidStateError

	return errors.Is(err, ErrTransportClosed) || errors.As(err, &ise)
}

package restretry

import (
	"context"
	"time"
)

// attemptMetadata is stored as a pointer inside our contexts to allow us to
// report per-call bookkeeping back to the caller
type attemptMetadata struct {
	attempts           int
	successfulDuration time.Duration
}

// attemptMetadataContextKey is used to key metadata within request contexts
type attemptMetadataContextKey struct{}

// NewContext returns a context.Context preseeded for Execute use. Pass it
// through Options.Ctx to receive attempt counts and timings after the call.
func NewContext() context.Context {
	return context.WithValue(context.Background(), attemptMetadataContextKey{}, new(attemptMetadata))
}

func getAttemptMetadata(ctx context.Context) (*attemptMetadata, bool) {
	if ctx == nil {
		return nil, false
	}

	ptr, ok := ctx.Value(attemptMetadataContextKey{}).(*attemptMetadata)

	return ptr, ok
}

// NumberOfAttemptsFromContext may be used to return the number of attempts
// the executor made, successful or not
func NumberOfAttemptsFromContext(ctx context.Context) (int, bool) {
	md, ok := getAttemptMetadata(ctx)
	if !ok {
		return 0, false
	}

	return md.attempts, true
}

// SuccessfulRequestDurationFromContext may be used to return the duration of
// the attempt that finally came back with the canonical success status,
// should there have been one
func SuccessfulRequestDurationFromContext(ctx context.Context) (time.Duration, bool) {
	md, ok := getAttemptMetadata(ctx)
	if !ok {
		return 0, false
	}

	return md.successfulDuration, true
}

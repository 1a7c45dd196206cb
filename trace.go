package restretry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Query parameter names stamped onto outgoing requests. The receiving
// service keys on these to route retried calls through its cheaper
// already-seen-this-query path and to correlate attempts in its logs.
const (
	// ParamRetryCount carries the current retry count on every attempt
	// after the first.
	ParamRetryCount = "retryCount"

	// ParamClientStartTime carries the wall-clock start of the logical
	// call, identical across all of its attempts.
	ParamClientStartTime = "clientStartTime"

	// ParamRequestGUID carries a fresh random identifier per attempt.
	ParamRequestGUID = "request_guid"
)

// stampRequest rewrites the request's query parameters for the upcoming
// attempt. The request is mutated in place; nothing else on it is touched.
func stampRequest(req *http.Request, retryCount int, startTime time.Time, opts Options) {
	if retryCount == 0 && !opts.IncludeRequestGUID {
		return
	}

	q := req.URL.Query()

	if retryCount > 0 {
		q.Set(ParamRetryCount, strconv.Itoa(retryCount))

		if opts.IncludeRetryParameters {
			q.Set(ParamClientStartTime, strconv.FormatInt(startTime.UnixMilli(), 10))
		}
	}

	if opts.IncludeRequestGUID {
		q.Set(ParamRequestGUID, uuid.NewString())
	}

	req.URL.RawQuery = q.Encode()
}

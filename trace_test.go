package restretry

import (
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustRequest(t *testing.T, rawURL string) *http.Request {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, rawURL, nil)
	require.NoError(t, err)

	return req
}

func TestStampRequest_FirstAttemptWithoutGUIDIsUntouched(t *testing.T) {
	req := mustRequest(t, "http://svc.internal/query?warehouse=wh1")

	stampRequest(req, 0, time.Now(), Options{IncludeRetryParameters: true})

	assert.Equal(t, "warehouse=wh1", req.URL.RawQuery)
}

func TestStampRequest_RetryParameters(t *testing.T) {
	req := mustRequest(t, "http://svc.internal/query?warehouse=wh1")
	start := time.Now()

	stampRequest(req, 2, start, Options{IncludeRetryParameters: true})

	q := req.URL.Query()
	assert.Equal(t, "wh1", q.Get("warehouse"), "existing parameters survive the rewrite")
	assert.Equal(t, "2", q.Get(ParamRetryCount))
	assert.Equal(t, strconv.FormatInt(start.UnixMilli(), 10), q.Get(ParamClientStartTime))
}

func TestStampRequest_RetryCountWithoutTracingParams(t *testing.T) {
	req := mustRequest(t, "http://svc.internal/query")

	stampRequest(req, 1, time.Now(), Options{})

	q := req.URL.Query()
	assert.Equal(t, "1", q.Get(ParamRetryCount))
	assert.Empty(t, q.Get(ParamClientStartTime))
}

func TestStampRequest_GUIDOnEveryAttempt(t *testing.T) {
	req := mustRequest(t, "http://svc.internal/query")

	stampRequest(req, 0, time.Now(), Options{IncludeRequestGUID: true})
	first := req.URL.Query().Get(ParamRequestGUID)
	require.NotEmpty(t, first)

	stampRequest(req, 1, time.Now(), Options{IncludeRequestGUID: true})
	second := req.URL.Query().Get(ParamRequestGUID)
	require.NotEmpty(t, second)

	assert.NotEqual(t, first, second)
}

func TestStampRequest_RestampingDoesNotDuplicate(t *testing.T) {
	req := mustRequest(t, "http://svc.internal/query")

	stampRequest(req, 1, time.Now(), Options{})
	stampRequest(req, 2, time.Now(), Options{})

	q := req.URL.Query()
	require.Len(t, q[ParamRetryCount], 1)
	assert.Equal(t, "2", q.Get(ParamRetryCount))
}

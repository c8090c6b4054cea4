package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	return NewWithRegistry(reg, reg)
}

func TestRecordWindow(t *testing.T) {
	r := newTestRecorder()

	r.RecordWindow("daily", true, 200*time.Millisecond)
	r.RecordWindow("daily", true, 100*time.Millisecond)
	r.RecordWindow("hourly", false, time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.windowsFetched.WithLabelValues("daily", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.windowsFetched.WithLabelValues("hourly", "error")))
}

func TestRecordRunAndErrors(t *testing.T) {
	r := newTestRecorder()

	r.RecordRun("overlapped", "success", 3*time.Second)
	r.RecordRun("overlapped", "failed", time.Second)
	r.RecordError("empty_overlap")
	r.RecordCoefficient(0.5)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.runsTotal.WithLabelValues("overlapped", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errorsTotal.WithLabelValues("empty_overlap")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.coefficients))
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := newTestRecorder()
	r.RecordHTTP("/api/runs", "GET", 200, 10*time.Millisecond)

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `http_requests_total{method="GET",route="/api/runs",status="200"} 1`))
}

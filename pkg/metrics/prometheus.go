package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder exposes stitching and fetch metrics through Prometheus.
type Recorder struct {
	gatherer prometheus.Gatherer

	windowsFetched *prometheus.CounterVec
	runsTotal      *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	coefficients   prometheus.Histogram
	fetchLatency   *prometheus.HistogramVec
	runLatency     prometheus.Histogram
	httpRequests   *prometheus.CounterVec
	httpLatency    *prometheus.HistogramVec
}

// New creates a recorder registered on the default Prometheus registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
}

// NewWithRegistry creates a recorder registered on reg. Tests pass a fresh
// prometheus.NewRegistry() so repeated construction does not panic.
func NewWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		gatherer: gatherer,
		windowsFetched: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trends_windows_fetched_total",
				Help: "Total number of windows requested from the trends source",
			},
			[]string{"granularity", "outcome"},
		),
		runsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trends_stitch_runs_total",
				Help: "Total number of stitch runs by mode and status",
			},
			[]string{"mode", "status"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trends_errors_total",
				Help: "Total number of stitch failures by kind",
			},
			[]string{"kind"},
		),
		coefficients: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "trends_scaling_coefficient",
				Help:    "Distribution of window scaling coefficients",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 4, 10, 20, 100},
			},
		),
		fetchLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "trends_fetch_duration_seconds",
				Help:    "Duration of a single window fetch in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"granularity"},
		),
		runLatency: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "trends_stitch_duration_seconds",
				Help:    "Duration of a full stitch run in seconds",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
			},
		),
		httpRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		httpLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"route", "method"},
		),
	}
}

// RecordWindow records the outcome of one window request.
func (r *Recorder) RecordWindow(granularity string, ok bool, elapsed time.Duration) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	r.windowsFetched.WithLabelValues(granularity, outcome).Inc()
	r.fetchLatency.WithLabelValues(granularity).Observe(elapsed.Seconds())
}

// RecordCoefficient records a scaling coefficient.
func (r *Recorder) RecordCoefficient(c float64) {
	r.coefficients.Observe(c)
}

// RecordRun records a finished stitch run.
func (r *Recorder) RecordRun(mode, status string, elapsed time.Duration) {
	r.runsTotal.WithLabelValues(mode, status).Inc()
	r.runLatency.Observe(elapsed.Seconds())
}

// RecordError records a failure of the given kind.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordHTTP records one served HTTP request.
func (r *Recorder) RecordHTTP(route, method string, status int, elapsed time.Duration) {
	r.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	r.httpLatency.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}

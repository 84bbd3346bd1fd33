package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	attemptsStartedTotal  prometheus.Counter
	submissionsTotal      *prometheus.CounterVec
	autoSubmitFailures    prometheus.Counter
	enterLatencySeconds   prometheus.Histogram
	countdownSessionsLive prometheus.Gauge
	gradesPublishedTotal  prometheus.Counter
	resultCacheHitsTotal  *prometheus.CounterVec
	httpRequestsTotal     *prometheus.CounterVec
	httpLatencySeconds    *prometheus.HistogramVec
	httpErrorsTotal       *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors for the exam
// subsystem.
func RegisterMetrics() {
	registerOnce.Do(func() {
		attemptsStartedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "exam_attempts_started_total",
			Help: "Total number of attempt starts recorded.",
		})

		submissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exam_submissions_total",
			Help: "Total number of recorded submissions.",
		}, []string{"trigger", "grading"})

		autoSubmitFailures = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "exam_auto_submit_failures_total",
			Help: "Auto-submissions that failed to persist a result.",
		})

		enterLatencySeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "exam_enter_latency_seconds",
			Help:    "Latency distribution for entry evaluations.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		})

		countdownSessionsLive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "exam_countdown_sessions",
			Help: "Number of live attempt sessions with a running countdown.",
		})

		gradesPublishedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "exam_grades_published_total",
			Help: "Total number of manually graded attempts published.",
		})

		resultCacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exam_result_cache_requests_total",
			Help: "Result lookups served from or past the Redis cache.",
		}, []string{"outcome"})

		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exam_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "exam_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exam_http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		prometheus.MustRegister(
			attemptsStartedTotal,
			submissionsTotal,
			autoSubmitFailures,
			enterLatencySeconds,
			countdownSessionsLive,
			gradesPublishedTotal,
			resultCacheHitsTotal,
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
		)
	})
}

// AttemptsStarted exposes the attempt start counter.
func AttemptsStarted() prometheus.Counter {
	RegisterMetrics()
	return attemptsStartedTotal
}

// Submissions exposes the submission counter, labelled by trigger
// (manual|auto) and grading branch (auto|pending).
func Submissions() *prometheus.CounterVec {
	RegisterMetrics()
	return submissionsTotal
}

// AutoSubmitFailures exposes the failed auto-submission counter.
func AutoSubmitFailures() prometheus.Counter {
	RegisterMetrics()
	return autoSubmitFailures
}

// EnterLatency exposes the entry evaluation latency histogram.
func EnterLatency() prometheus.Histogram {
	RegisterMetrics()
	return enterLatencySeconds
}

// CountdownSessions exposes the live session gauge.
func CountdownSessions() prometheus.Gauge {
	RegisterMetrics()
	return countdownSessionsLive
}

// GradesPublished exposes the manual grading counter.
func GradesPublished() prometheus.Counter {
	RegisterMetrics()
	return gradesPublishedTotal
}

// ResultCacheRequests exposes the result cache counter, labelled hit|miss.
func ResultCacheRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return resultCacheHitsTotal
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for API error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

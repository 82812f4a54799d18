package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// Clinical metrics
	evaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evaluations_total",
			Help: "Total number of patient evaluations",
		},
		[]string{"classification", "disposition"},
	)

	evaluationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "evaluation_duration_seconds",
			Help:    "Patient evaluation duration in seconds",
			Buckets: []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025},
		},
	)

	zscoresComputed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zscores_computed_total",
			Help: "Total number of z-scores computed",
		},
		[]string{"indicator"},
	)

	zscoresFlagged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zscores_flagged_total",
			Help: "Total number of z-scores outside plausibility bounds",
		},
		[]string{"indicator", "flag"},
	)

	dehydrationAssessments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dehydration_assessments_total",
			Help: "Total number of dehydration assessments",
		},
		[]string{"band"},
	)

	followUpPlansTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "followup_plans_total",
			Help: "Total number of inpatient follow-up plans generated",
		},
	)

	dischargePlansTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "discharge_plans_total",
			Help: "Total number of discharge plans generated",
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware creates HTTP metrics middleware
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		// Wrap response writer to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()
		path := normalizePath(r.URL.Path)

		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// normalizePath normalizes URL paths for metrics to avoid cardinality explosion
func normalizePath(path string) string {
	if len(path) > 100 {
		return "/api/..."
	}
	return path
}

// --- Clinical metric helpers ---

// RecordEvaluation records one completed patient evaluation. disposition
// is empty when no management plan applied.
func RecordEvaluation(classification, disposition string, duration time.Duration) {
	if disposition == "" {
		disposition = "none"
	}
	evaluationsTotal.WithLabelValues(classification, disposition).Inc()
	evaluationDuration.Observe(duration.Seconds())
}

// RecordZScore records a computed z-score and its plausibility flag
func RecordZScore(indicator, flag string) {
	zscoresComputed.WithLabelValues(indicator).Inc()
	if flag != "" {
		zscoresFlagged.WithLabelValues(indicator, flag).Inc()
	}
}

// RecordDehydrationAssessment records a dehydration scoring
func RecordDehydrationAssessment(band string) {
	dehydrationAssessments.WithLabelValues(band).Inc()
}

// RecordFollowUpPlan records a follow-up plan generation
func RecordFollowUpPlan() {
	followUpPlansTotal.Inc()
}

// RecordDischargePlan records a discharge plan generation
func RecordDischargePlan() {
	dischargePlansTotal.Inc()
}

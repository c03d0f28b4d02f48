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
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fooddiary_http_requests_total",
			Help: "Total HTTP requests by method, path, and status",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fooddiary_http_request_duration_seconds",
			Help:    "HTTP request latency distribution",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	notificationsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fooddiary_notifications_generated_total",
			Help: "Notifications persisted, by type",
		},
		[]string{"type"},
	)

	notificationsSuppressed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fooddiary_notifications_suppressed_total",
			Help: "Notifications not generated because user preferences disallowed them, by type",
		},
		[]string{"type"},
	)

	notificationsRead = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fooddiary_notifications_read_total",
			Help: "Notifications moved from unread to read",
		},
	)

	cleanupDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fooddiary_notifications_cleaned_up_total",
			Help: "Read notifications removed by retention cleanup",
		},
	)

	publishFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fooddiary_notification_publish_failures_total",
			Help: "Notification events that could not be published",
		},
	)

	schedulerRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fooddiary_scheduler_jobs_total",
			Help: "Scheduled jobs executed by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	schedulerTickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fooddiary_scheduler_tick_duration_seconds",
			Help:    "Time spent evaluating one scheduler tick",
			Buckets: []float64{.05, .1, .5, 1, 5, 15, 30, 60},
		},
	)

	circuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fooddiary_circuit_breaker_state",
			Help: "Circuit breaker state by name (0 closed, 1 open, 2 half-open)",
		},
		[]string{"name"},
	)

	rateLimitRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fooddiary_rate_limit_rejections_total",
			Help: "Requests rejected by rate limiter",
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordRequest records HTTP request metrics
func RecordRequest(method, path string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func RecordNotificationGenerated(notificationType string) {
	notificationsGenerated.WithLabelValues(notificationType).Inc()
}

func RecordNotificationSuppressed(notificationType string) {
	notificationsSuppressed.WithLabelValues(notificationType).Inc()
}

func RecordNotificationsRead(count int) {
	if count > 0 {
		notificationsRead.Add(float64(count))
	}
}

func RecordCleanupDeleted(count int) {
	if count > 0 {
		cleanupDeleted.Add(float64(count))
	}
}

func RecordPublishFailure() {
	publishFailures.Inc()
}

// RecordSchedulerJob counts one scheduled job by its outcome label, e.g.
// "created" or "suppressed".
func RecordSchedulerJob(kind, outcome string) {
	schedulerRuns.WithLabelValues(kind, outcome).Inc()
}

func RecordSchedulerTick(duration time.Duration) {
	schedulerTickDuration.Observe(duration.Seconds())
}

func SetCircuitBreakerState(name string, state int) {
	circuitBreakerState.WithLabelValues(name).Set(float64(state))
}

func RecordRateLimitRejection() {
	rateLimitRejections.Inc()
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware returns HTTP middleware that records request metrics. The
// route pattern resolver keeps label cardinality bounded for paths with ids.
func Middleware(pattern func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			path := r.URL.Path
			if pattern != nil {
				if p := pattern(r); p != "" {
					path = p
				}
			}
			RecordRequest(r.Method, path, wrapped.status, time.Since(start))
		})
	}
}

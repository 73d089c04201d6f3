// Package metrics holds the Prometheus collectors for the FIRE backend.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors. They are usable before Register.
var Metrics = struct {
	SubmissionsTotal  *prometheus.CounterVec
	ScoringRequests   *prometheus.CounterVec
	ScoringDuration   prometheus.Histogram
	ReportsTotal      prometheus.Counter
	OverridesTotal    *prometheus.CounterVec
	QueueSize         prometheus.Gauge
	RequestDuration   *prometheus.HistogramVec
	RequestsInFlight  prometheus.Gauge
	StreamSubscribers prometheus.Gauge
}{
	SubmissionsTotal: prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "firenews_submissions_total",
			Help: "Article submissions, by outcome (scored, unscored, rejected, failed).",
		},
		[]string{"outcome"},
	),
	ScoringRequests: prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "firenews_scoring_requests_total",
			Help: "Classifier calls, by result (ok, error, invalid).",
		},
		[]string{"result"},
	),
	ScoringDuration: prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "firenews_scoring_duration_seconds",
			Help:    "Duration of classifier calls.",
			Buckets: prometheus.DefBuckets,
		},
	),
	ReportsTotal: prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "firenews_reports_total",
			Help: "Reader reports filed.",
		},
	),
	OverridesTotal: prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "firenews_overrides_total",
			Help: "Moderator overrides applied, by label.",
		},
		[]string{"label"},
	),
	QueueSize: prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "firenews_moderation_queue_size",
			Help: "Size of the moderation queue at the last build.",
		},
	),
	RequestDuration: prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "firenews_api_request_duration_seconds",
			Help:    "HTTP request duration in seconds, by route and method.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method", "status"},
	),
	RequestsInFlight: prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "firenews_requests_in_flight",
			Help: "Number of HTTP requests currently being served.",
		},
	),
	StreamSubscribers: prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "firenews_queue_stream_subscribers",
			Help: "Open moderator queue streams.",
		},
	),
}

var registerOnce sync.Once

// Register adds every collector to reg. Only the first call registers.
func Register(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		reg.MustRegister(
			Metrics.SubmissionsTotal,
			Metrics.ScoringRequests,
			Metrics.ScoringDuration,
			Metrics.ReportsTotal,
			Metrics.OverridesTotal,
			Metrics.QueueSize,
			Metrics.RequestDuration,
			Metrics.RequestsInFlight,
			Metrics.StreamSubscribers,
		)
	})
}

// Middleware records request duration and in-flight count.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Don't instrument the /metrics endpoint itself
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		Metrics.RequestsInFlight.Inc()
		start := time.Now()

		c.Next()

		// the route template keeps article ids out of the label set
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		Metrics.RequestDuration.WithLabelValues(route, c.Request.Method, status).Observe(time.Since(start).Seconds())
		Metrics.RequestsInFlight.Dec()
	}
}

// Handler serves /metrics from the default gatherer.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

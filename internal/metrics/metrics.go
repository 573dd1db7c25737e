// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bmi",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bmi",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	recordsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bmi",
			Name:      "records_submitted_total",
			Help:      "Total number of stored BMI records by category",
		},
		[]string{"category"},
	)

	dietPlansCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bmi",
			Name:      "diet_plans_created_total",
			Help:      "Total number of diet plans created",
		},
	)

	dietPlansDeactivated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bmi",
			Name:      "diet_plans_deactivated_total",
			Help:      "Total number of explicit diet plan deactivations",
		},
	)
)

// Middleware records request counts and latency. The route template is used
// as path label so IDs do not explode cardinality.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordBMISubmission counts a stored record.
func RecordBMISubmission(category string) {
	recordsSubmitted.WithLabelValues(category).Inc()
}

func RecordDietPlanCreated() {
	dietPlansCreated.Inc()
}

func RecordDietPlanDeactivated() {
	dietPlansDeactivated.Inc()
}

package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	Evaluations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signage_day_evaluations_total",
			Help: "Day play-state evaluations by resulting state",
		},
		[]string{"state"},
	)
	requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signage_http_requests_total",
			Help: "API requests by route and status",
		},
		[]string{"method", "route", "status"},
	)
	latency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "signage_http_request_duration_seconds",
			Help:    "API request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

var once sync.Once

// Register adds the API collectors to the default registry. Safe to call
// more than once.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(Evaluations, requests, latency)
	})
}

// ObserveState counts one evaluation outcome.
func ObserveState(state string) {
	Evaluations.WithLabelValues(state).Inc()
}

// Middleware records count and latency per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		latency.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Dispatch outcomes partitioned by channel, outcome and reason
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autoreply_events_total",
			Help: "Inbound events processed by the dispatcher",
		},
		[]string{"channel", "outcome", "reason"},
	)

	// Delivered replies; fallback marks apology replies sent instead of a generated answer
	RepliesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autoreply_replies_total",
			Help: "Replies delivered to the platform",
		},
		[]string{"channel", "strategy", "fallback"},
	)

	GenerationFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autoreply_generation_failures_total",
			Help: "Generative backend failures by kind",
		},
		[]string{"kind"},
	)

	DeliveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "autoreply_delivery_duration_seconds",
			Help:    "Latency of platform send calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"channel", "result"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	httpInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Number of HTTP requests currently being served",
		},
	)
)

// ObserveDelivery records the latency of one send call.
func ObserveDelivery(channel string, started time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	DeliveryDuration.WithLabelValues(channel, result).Observe(time.Since(started).Seconds())
}

// Middleware records request counts and latencies. The route label uses the
// matched mux pattern to keep cardinality low.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}

		labels := prometheus.Labels{
			"method": r.Method,
			"route":  route,
			"status": strconv.Itoa(rec.status),
		}
		httpRequestsTotal.With(labels).Inc()
		httpRequestDuration.With(labels).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

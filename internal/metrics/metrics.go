package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "boa_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "route", "status"},
	)

	SweepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boa_sweeps_total",
			Help: "Delay alert sweeps by result",
		},
		[]string{"result"}, // ok, error, locked
	)

	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "boa_sweep_duration_seconds",
			Help:    "Duration of one delay alert sweep",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)

	AlertsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boa_alerts_created_total",
			Help: "Alerts opened by the delay sweep",
		},
		[]string{"severity"},
	)

	EventsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boa_events_consumed_total",
			Help: "Domain events handled by the notifier",
		},
		[]string{"type", "status"},
	)
)

func RecordSweep(result string, d time.Duration) {
	SweepsTotal.WithLabelValues(result).Inc()
	if result != "locked" {
		SweepDuration.Observe(d.Seconds())
	}
}

func IncAlertCreated(severity string) {
	AlertsCreated.WithLabelValues(severity).Inc()
}

func IncEventConsumed(eventType, status string) {
	EventsConsumed.WithLabelValues(eventType, status).Inc()
}

// Middleware records request durations labelled by the matched chi route.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		HTTPRequestDuration.WithLabelValues(r.Method, route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
	})
}

// Package metrics exposes Prometheus instrumentation for the skill-swap server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "skillswap"

// Metrics holds all Prometheus metrics for the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	UsersCreated         prometheus.Counter
	SwapRequestsCreated  prometheus.Counter
	SwapTransitions      *prometheus.CounterVec
	FeedbackSubmitted    prometheus.Counter
	UsersBanned          *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	PlatformMessageReads *prometheus.CounterVec
}

// New creates and registers all metrics on a private registry, along with
// the Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		UsersCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "users_created_total",
			Help:      "Total number of users created",
		}),
		SwapRequestsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "swap_requests_created_total",
			Help:      "Total number of swap requests created",
		}),
		SwapTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "swap_transitions_total",
			Help:      "Total number of swap request status changes by target status",
		}, []string{"status"}),
		FeedbackSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feedback_submitted_total",
			Help:      "Total number of feedback entries submitted",
		}),
		UsersBanned: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "users_banned_total",
			Help:      "Total number of ban flag changes by resulting value",
		}, []string{"banned"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"method", "route", "status"}),
		PlatformMessageReads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "platform_message_reads_total",
			Help:      "Total number of broadcast message reads by cache result",
		}, []string{"result"}),
	}
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the HTTP handler that serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// IncrementUsersCreated records a successful signup.
func (m *Metrics) IncrementUsersCreated() {
	if m == nil {
		return
	}
	m.UsersCreated.Inc()
}

// IncrementSwapRequestsCreated records a new swap request.
func (m *Metrics) IncrementSwapRequestsCreated() {
	if m == nil {
		return
	}
	m.SwapRequestsCreated.Inc()
}

// IncrementSwapTransition records a status change to status.
func (m *Metrics) IncrementSwapTransition(status string) {
	if m == nil {
		return
	}
	m.SwapTransitions.WithLabelValues(status).Inc()
}

// IncrementFeedbackSubmitted records a feedback entry.
func (m *Metrics) IncrementFeedbackSubmitted() {
	if m == nil {
		return
	}
	m.FeedbackSubmitted.Inc()
}

// IncrementUsersBanned records a ban flag change.
func (m *Metrics) IncrementUsersBanned(banned bool) {
	if m == nil {
		return
	}
	m.UsersBanned.WithLabelValues(strconv.FormatBool(banned)).Inc()
}

// IncrementPlatformMessageRead records a broadcast read served from cache
// ("hit") or the database ("miss").
func (m *Metrics) IncrementPlatformMessageRead(result string) {
	if m == nil {
		return
	}
	m.PlatformMessageReads.WithLabelValues(result).Inc()
}

// Middleware records request durations labelled by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.HTTPRequestDuration.
			WithLabelValues(r.Method, route, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}

package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by method, route, and status code",
		},
		[]string{"method", "route", "status_code"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	httpRequestsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "http_requests_active",
			Help: "Number of active HTTP requests",
		},
		[]string{"method", "route"},
	)

	pendingNotificationsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pending_notifications_total",
			Help: "Number of unsent customer notifications observed on the last dispatcher tick",
		},
	)

	activeFlowSessionsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_flow_sessions_total",
			Help: "Number of in-memory conversation sessions",
		},
	)

	infraHealthStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "infrastructure_health_status",
			Help: "Health status of infrastructure components (1=healthy, 0=unhealthy)",
		},
		[]string{"service", "component"},
	)

	promRegistry *prometheus.Registry
)

// InitPrometheusMetrics registers all metrics on a fresh registry.
func InitPrometheusMetrics(logger zerolog.Logger) error {
	promRegistry = prometheus.NewRegistry()

	if err := promRegistry.Register(httpRequestsTotal); err != nil {
		return fmt.Errorf("failed to register http_requests_total: %w", err)
	}

	if err := promRegistry.Register(httpRequestDurationSeconds); err != nil {
		return fmt.Errorf("failed to register http_request_duration_seconds: %w", err)
	}

	if err := promRegistry.Register(httpRequestsActive); err != nil {
		return fmt.Errorf("failed to register http_requests_active: %w", err)
	}

	if err := promRegistry.Register(pendingNotificationsTotal); err != nil {
		return fmt.Errorf("failed to register pending_notifications_total: %w", err)
	}

	if err := promRegistry.Register(activeFlowSessionsTotal); err != nil {
		return fmt.Errorf("failed to register active_flow_sessions_total: %w", err)
	}

	if err := promRegistry.Register(infraHealthStatus); err != nil {
		return fmt.Errorf("failed to register infrastructure_health_status: %w", err)
	}

	promRegistry.MustRegister(prometheus.NewGoCollector())
	promRegistry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	logger.Info().Msg("Prometheus metrics initialized")
	return nil
}

// GetStandardPrometheusHandler returns the /metrics handler.
func GetStandardPrometheusHandler() http.Handler {
	if promRegistry == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("Prometheus registry not initialized"))
		})
	}

	return promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{})
}

// GetPrometheusRegistry exposes the registry for other packages.
func GetPrometheusRegistry() *prometheus.Registry {
	return promRegistry
}

// PrometheusMiddleware records HTTP metrics per request.
func PrometheusMiddleware(logger zerolog.Logger) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if promRegistry == nil {
			next(ctx)
			return
		}

		startTime := time.Now()
		method := ctx.Method()
		route := ctx.URL().Path

		httpRequestsActive.WithLabelValues(method, route).Inc()

		next(ctx)

		duration := time.Since(startTime)
		statusCode := ctx.Status()
		statusCodeStr := strconv.Itoa(statusCode)

		httpRequestsTotal.WithLabelValues(method, route, statusCodeStr).Inc()
		httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
		httpRequestsActive.WithLabelValues(method, route).Dec()

		logger.Debug().
			Str("method", method).
			Str("route", route).
			Int("status_code", statusCode).
			Float64("duration_seconds", duration.Seconds()).
			Msg("HTTP metrics recorded")
	}
}

// UpdatePendingNotifications is called by the dispatcher each tick.
func UpdatePendingNotifications(count int) {
	if promRegistry != nil {
		pendingNotificationsTotal.Set(float64(count))
	}
}

// UpdateActiveFlowSessions reports the size of the session table.
func UpdateActiveFlowSessions(count int) {
	if promRegistry != nil {
		activeFlowSessionsTotal.Set(float64(count))
	}
}

// UpdateInfrastructureHealth reports component health for the /health endpoint.
func UpdateInfrastructureHealth(service, component string, isHealthy bool) {
	if promRegistry == nil || infraHealthStatus == nil {
		return
	}

	healthValue := 0.0
	if isHealthy {
		healthValue = 1.0
	}

	infraHealthStatus.WithLabelValues(service, component).Set(healthValue)
}

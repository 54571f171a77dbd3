package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

// Metrics stores Prometheus collectors for the admission pipeline and the
// delivery path.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal       *prometheus.CounterVec
	httpRequestDuration     *prometheus.HistogramVec
	authFailuresTotal       prometheus.Counter
	rateLimitRejectedTotal  prometheus.Counter
	deliveriesSentTotal     prometheus.Counter
	deliveriesFailedTotal   *prometheus.CounterVec
	deliveryRetriesTotal    prometheus.Counter
	deliveryAttemptDuration prometheus.Histogram
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "hookrelay",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "hookrelay",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		authFailuresTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "hookrelay",
				Name:      "auth_failures_total",
				Help:      "Total number of requests rejected for a missing or incorrect API key.",
			},
		),
		rateLimitRejectedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "hookrelay",
				Name:      "rate_limit_rejected_total",
				Help:      "Total number of requests rejected by the admission window.",
			},
		),
		deliveriesSentTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "hookrelay",
				Name:      "deliveries_sent_total",
				Help:      "Total number of notifications relayed to Telegram successfully.",
			},
		),
		deliveriesFailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "hookrelay",
				Name:      "deliveries_failed_total",
				Help:      "Total number of notifications whose delivery ended in failure.",
			},
			[]string{"reason"},
		),
		deliveryRetriesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "hookrelay",
				Name:      "delivery_retries_total",
				Help:      "Total number of delivery retries scheduled after transient failures.",
			},
		),
		deliveryAttemptDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "hookrelay",
				Name:      "delivery_attempt_duration_seconds",
				Help:      "Telegram send attempt duration in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.authFailuresTotal,
		m.rateLimitRejectedTotal,
		m.deliveriesSentTotal,
		m.deliveriesFailedTotal,
		m.deliveryRetriesTotal,
		m.deliveryAttemptDuration,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Route adapts the Prometheus handler for a fiber route.
func (m *Metrics) Route() fiber.Handler {
	handler := fasthttpadaptor.NewFastHTTPHandler(m.Handler())
	return func(c *fiber.Ctx) error {
		handler(c.Context())
		return nil
	}
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

func (m *Metrics) IncAuthFailure() {
	if m == nil {
		return
	}
	m.authFailuresTotal.Inc()
}

func (m *Metrics) IncRateLimitRejected() {
	if m == nil {
		return
	}
	m.rateLimitRejectedTotal.Inc()
}

func (m *Metrics) IncDeliverySent() {
	if m == nil {
		return
	}
	m.deliveriesSentTotal.Inc()
}

func (m *Metrics) IncDeliveryFailed(reason string) {
	if m == nil {
		return
	}
	reasonLabel := strings.TrimSpace(strings.ToLower(reason))
	if reasonLabel == "" {
		reasonLabel = "unknown"
	}
	m.deliveriesFailedTotal.WithLabelValues(reasonLabel).Inc()
}

func (m *Metrics) IncDeliveryRetry() {
	if m == nil {
		return
	}
	m.deliveryRetriesTotal.Inc()
}

func (m *Metrics) ObserveDeliveryAttemptDuration(duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.deliveryAttemptDuration.Observe(seconds)
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, pathLabel).Observe(duration.Seconds())
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return "unmatched"
	}

	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" {
			return path
		}
	}
	return "unmatched"
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}

	if c == nil {
		return fiber.StatusOK
	}

	status := c.Response().StatusCode()
	if status == 0 {
		return fiber.StatusOK
	}
	return status
}

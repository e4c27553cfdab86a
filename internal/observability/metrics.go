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
)

// Metrics stores Prometheus collectors used by the matching and donation flows.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal       *prometheus.CounterVec
	httpRequestDuration     *prometheus.HistogramVec
	matchesFoundTotal       prometheus.Counter
	volunteersTotal         prometheus.Counter
	donationsScheduledTotal prometheus.Counter
	donationsCompletedTotal prometheus.Counter
	requestsExpiredTotal    prometheus.Counter
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "hemolink",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "hemolink",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		matchesFoundTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "hemolink",
				Name:      "matches_found_total",
				Help:      "Total number of donor matches returned by candidate searches.",
			},
		),
		volunteersTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "hemolink",
				Name:      "volunteers_total",
				Help:      "Total number of accepted donor volunteer offers.",
			},
		),
		donationsScheduledTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "hemolink",
				Name:      "donations_scheduled_total",
				Help:      "Total number of donations scheduled through confirmation.",
			},
		),
		donationsCompletedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "hemolink",
				Name:      "donations_completed_total",
				Help:      "Total number of donations marked completed.",
			},
		),
		requestsExpiredTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "hemolink",
				Name:      "requests_expired_total",
				Help:      "Total number of blood requests expired by the sweeper.",
			},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.matchesFoundTotal,
		m.volunteersTotal,
		m.donationsScheduledTotal,
		m.donationsCompletedTotal,
		m.requestsExpiredTotal,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
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

func (m *Metrics) AddMatchesFound(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.matchesFoundTotal.Add(float64(count))
}

func (m *Metrics) IncVolunteers() {
	if m == nil {
		return
	}
	m.volunteersTotal.Inc()
}

func (m *Metrics) IncDonationsScheduled() {
	if m == nil {
		return
	}
	m.donationsScheduledTotal.Inc()
}

func (m *Metrics) IncDonationsCompleted() {
	if m == nil {
		return
	}
	m.donationsCompletedTotal.Inc()
}

func (m *Metrics) AddRequestsExpired(count int64) {
	if m == nil || count <= 0 {
		return
	}
	m.requestsExpiredTotal.Add(float64(count))
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

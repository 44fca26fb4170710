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

// Metrics stores Prometheus collectors for the scheduler, dispatcher, and
// status API.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	jobRunsTotal     *prometheus.CounterVec
	jobFailuresTotal *prometheus.CounterVec
	jobDuration      *prometheus.HistogramVec

	notificationsSentTotal       *prometheus.CounterVec
	notificationsFailedTotal     *prometheus.CounterVec
	notificationsSuppressedTotal *prometheus.CounterVec
	ledgerConflictsTotal         *prometheus.CounterVec
	sendDuration                 *prometheus.HistogramVec
	changeEventsTotal            *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bandsync_notifier",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "bandsync_notifier",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		jobRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bandsync_notifier",
				Name:      "job_runs_total",
				Help:      "Total number of scheduler job runs by job name.",
			},
			[]string{"job"},
		),
		jobFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bandsync_notifier",
				Name:      "job_failures_total",
				Help:      "Total number of scheduler job runs that returned an error or panicked.",
			},
			[]string{"job"},
		),
		jobDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "bandsync_notifier",
				Name:      "job_duration_seconds",
				Help:      "Job body duration in seconds by job name.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"job"},
		),
		notificationsSentTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bandsync_notifier",
				Name:      "notifications_sent_total",
				Help:      "Total number of notifications sent successfully by kind.",
			},
			[]string{"kind"},
		),
		notificationsFailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bandsync_notifier",
				Name:      "notifications_failed_total",
				Help:      "Total number of per-recipient sends that failed, by kind and failure class.",
			},
			[]string{"kind", "class"},
		),
		notificationsSuppressedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bandsync_notifier",
				Name:      "notifications_suppressed_total",
				Help:      "Total number of due notifications suppressed by policy, by kind and reason.",
			},
			[]string{"kind", "reason"},
		),
		ledgerConflictsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bandsync_notifier",
				Name:      "ledger_conflicts_total",
				Help:      "Total number of ledger writes that lost to an existing row.",
			},
			[]string{"kind"},
		),
		sendDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "bandsync_notifier",
				Name:      "send_duration_seconds",
				Help:      "Transport send duration in seconds by kind.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"kind"},
		),
		changeEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bandsync_notifier",
				Name:      "change_events_total",
				Help:      "Total number of RSVP change events consumed, by handling result.",
			},
			[]string{"result"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.jobRunsTotal,
		m.jobFailuresTotal,
		m.jobDuration,
		m.notificationsSentTotal,
		m.notificationsFailedTotal,
		m.notificationsSuppressedTotal,
		m.ledgerConflictsTotal,
		m.sendDuration,
		m.changeEventsTotal,
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

func (m *Metrics) IncJobRun(job string) {
	if m == nil {
		return
	}
	m.jobRunsTotal.WithLabelValues(normalizeLabel(job)).Inc()
}

func (m *Metrics) IncJobFailure(job string) {
	if m == nil {
		return
	}
	m.jobFailuresTotal.WithLabelValues(normalizeLabel(job)).Inc()
}

func (m *Metrics) ObserveJobDuration(job string, duration time.Duration) {
	if m == nil {
		return
	}
	m.jobDuration.WithLabelValues(normalizeLabel(job)).Observe(nonNegativeSeconds(duration))
}

func (m *Metrics) IncNotificationSent(kind string) {
	if m == nil {
		return
	}
	m.notificationsSentTotal.WithLabelValues(normalizeLabel(kind)).Inc()
}

func (m *Metrics) IncNotificationFailed(kind string, class string) {
	if m == nil {
		return
	}
	m.notificationsFailedTotal.WithLabelValues(normalizeLabel(kind), normalizeLabel(class)).Inc()
}

func (m *Metrics) IncNotificationSuppressed(kind string, reason string) {
	if m == nil {
		return
	}
	m.notificationsSuppressedTotal.WithLabelValues(normalizeLabel(kind), normalizeLabel(reason)).Inc()
}

func (m *Metrics) IncLedgerConflict(kind string) {
	if m == nil {
		return
	}
	m.ledgerConflictsTotal.WithLabelValues(normalizeLabel(kind)).Inc()
}

func (m *Metrics) ObserveSendDuration(kind string, duration time.Duration) {
	if m == nil {
		return
	}
	m.sendDuration.WithLabelValues(normalizeLabel(kind)).Observe(nonNegativeSeconds(duration))
}

func (m *Metrics) IncChangeEvent(result string) {
	if m == nil {
		return
	}
	m.changeEventsTotal.WithLabelValues(normalizeLabel(result)).Inc()
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

func nonNegativeSeconds(d time.Duration) float64 {
	seconds := d.Seconds()
	if seconds < 0 {
		return 0
	}
	return seconds
}

func normalizeLabel(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}

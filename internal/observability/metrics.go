package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "resonator"

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"app", "method", "route", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"app", "method", "route", "status"},
	)
	daemonDirectives = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "daemon",
			Name:      "directives_total",
			Help:      "Directives sent by the daemon, by message type.",
		},
		[]string{"type", "regime"},
	)
	daemonSuppressed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "daemon",
			Name:      "suppressed_total",
			Help:      "Weak measurements dropped by the action rate limit.",
		},
	)
	daemonHeartbeats = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "daemon",
			Name:      "heartbeats_total",
			Help:      "Heartbeats sent after a receive timeout.",
		},
	)
	daemonReconnects = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "daemon",
			Name:      "reconnects_total",
			Help:      "Sessions that ended in an error and were retried.",
		},
	)
	daemonOrderParam = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "daemon",
			Name:      "order_parameter",
			Help:      "Last order parameter observed by the daemon.",
		},
	)
	hostSteps = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "host",
			Name:      "steps_total",
			Help:      "Integration steps taken by the host.",
		},
	)
	hostOrderParam = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "host",
			Name:      "order_parameter",
			Help:      "Global order parameter of the hosted grid.",
		},
	)
	hostMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "host",
			Name:      "messages_total",
			Help:      "Messages received from controllers, by type.",
		},
		[]string{"type"},
	)
	hostClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "host",
			Name:      "clients",
			Help:      "Connected websocket clients.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests, httpDuration,
			daemonDirectives, daemonSuppressed, daemonHeartbeats, daemonReconnects, daemonOrderParam,
			hostSteps, hostOrderParam, hostMessages, hostClients,
		)
	})
}

func RecordHTTPRequest(app, method, route string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(app, method, route, statusLabel).Inc()
	httpDuration.WithLabelValues(app, method, route, statusLabel).Observe(duration.Seconds())
}

func RecordDirective(msgType, regime string) {
	RegisterMetrics()
	daemonDirectives.WithLabelValues(msgType, regime).Inc()
}

func RecordSuppressed() {
	RegisterMetrics()
	daemonSuppressed.Inc()
}

func RecordHeartbeat() {
	RegisterMetrics()
	daemonHeartbeats.Inc()
}

func RecordReconnect() {
	RegisterMetrics()
	daemonReconnects.Inc()
}

func SetDaemonOrderParam(r float64) {
	RegisterMetrics()
	daemonOrderParam.Set(r)
}

func RecordHostStep(r float64) {
	RegisterMetrics()
	hostSteps.Inc()
	hostOrderParam.Set(r)
}

func RecordHostMessage(msgType string) {
	RegisterMetrics()
	hostMessages.WithLabelValues(msgType).Inc()
}

func AddHostClients(delta int) {
	RegisterMetrics()
	hostClients.Add(float64(delta))
}

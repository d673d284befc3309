// monitor/monitor.go
package monitor

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	OnlineSessions   prometheus.Gauge
	ActiveRooms      prometheus.Gauge
	MessagesReceived prometheus.Counter
	RateLimited      prometheus.Counter
	Commands         *prometheus.CounterVec
	CommandLatency   *prometheus.HistogramVec
	CommitFailures   *prometheus.CounterVec
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		OnlineSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_sessions",
			Help:      "Number of open websocket sessions",
		}),
		ActiveRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_rooms",
			Help:      "Number of running room actors",
		}),
		MessagesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Total number of messages received",
		}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_rate_limited_total",
			Help:      "Requests dropped by the per-connection limiter",
		}),
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Room commands and queries by outcome",
		}, []string{"command", "outcome"}),
		CommandLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Time a room spends on one command, commit included",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}, []string{"command"}),
		CommitFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commit_failures_total",
			Help:      "Commands whose store transaction failed",
		}, []string{"command"}),
	}
}

// Monitor owns a registry so several instances can coexist in one process.
type Monitor struct {
	metrics   *Metrics
	registry  *prometheus.Registry
	startTime time.Time
}

func NewMonitor(namespace string) *Monitor {
	m := &Monitor{
		metrics:   NewMetrics(namespace),
		registry:  prometheus.NewRegistry(),
		startTime: time.Now(),
	}
	uptime := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "uptime_seconds",
		Help:      "Seconds since the process started serving",
	}, func() float64 {
		return time.Since(m.startTime).Seconds()
	})
	m.registry.MustRegister(
		m.metrics.OnlineSessions,
		m.metrics.ActiveRooms,
		m.metrics.MessagesReceived,
		m.metrics.RateLimited,
		m.metrics.Commands,
		m.metrics.CommandLatency,
		m.metrics.CommitFailures,
		uptime,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Monitor) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Monitor) SetOnlineSessions(count int) {
	m.metrics.OnlineSessions.Set(float64(count))
}

func (m *Monitor) SetActiveRooms(count int) {
	m.metrics.ActiveRooms.Set(float64(count))
}

func (m *Monitor) IncMessagesReceived() {
	m.metrics.MessagesReceived.Inc()
}

func (m *Monitor) IncRateLimited() {
	m.metrics.RateLimited.Inc()
}

// CommandHandled records one room command or query.
func (m *Monitor) CommandHandled(command, outcome string, took time.Duration) {
	m.metrics.Commands.WithLabelValues(command, outcome).Inc()
	m.metrics.CommandLatency.WithLabelValues(command).Observe(took.Seconds())
}

func (m *Monitor) CommitFailed(command string) {
	m.metrics.CommitFailures.WithLabelValues(command).Inc()
}

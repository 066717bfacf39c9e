package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every collector name.
const Namespace = "slotcore"

// ServerMetrics holds the collectors exported by the game server.
type ServerMetrics struct {
	registry *prometheus.Registry

	OnlinePlayers  prometheus.Gauge
	OpenContainers prometheus.Gauge

	ActionTotal    *prometheus.CounterVec   // by action and result
	ActionDuration *prometheus.HistogramVec // by action
	SlotUpdates    prometheus.Counter       // slot entries sent to clients
	Resyncs        prometheus.Counter       // full resends after a client mismatch

	StoreTotal    *prometheus.CounterVec // by operation and result
	StoreDuration *prometheus.HistogramVec

	ProductionEvents *prometheus.CounterVec // by event type
}

// New creates the server collectors and registers them on a private registry.
func New() *ServerMetrics {
	m := &ServerMetrics{
		registry: prometheus.NewRegistry(),

		OnlinePlayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "online_players",
			Help:      "Players currently connected",
		}),
		OpenContainers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "open_containers",
			Help:      "Containers currently open",
		}),
		ActionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "container_actions_total",
			Help:      "Container actions handled",
		}, []string{"action", "result"}),
		ActionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "container_action_duration_seconds",
			Help:      "Time spent applying a container action",
			Buckets:   []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		}, []string{"action"}),
		SlotUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "slot_updates_total",
			Help:      "Slot updates sent to clients",
		}),
		Resyncs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "container_resyncs_total",
			Help:      "Full container resends",
		}),
		StoreTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "store_operations_total",
			Help:      "Inventory store operations",
		}, []string{"operation", "result"}),
		StoreDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "store_operation_duration_seconds",
			Help:      "Inventory store latency",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"operation"}),
		ProductionEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "production_events_total",
			Help:      "Production job events",
		}, []string{"event"}),
	}

	m.registry.MustRegister(
		m.OnlinePlayers,
		m.OpenContainers,
		m.ActionTotal,
		m.ActionDuration,
		m.SlotUpdates,
		m.Resyncs,
		m.StoreTotal,
		m.StoreDuration,
		m.ProductionEvents,
	)
	return m
}

// Registry returns the registry the collectors live on.
func (m *ServerMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the collectors in the Prometheus text format.
func (m *ServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordAction records one handled container action.
func (m *ServerMetrics) RecordAction(action string, success bool, d time.Duration) {
	m.ActionTotal.WithLabelValues(action, result(success)).Inc()
	m.ActionDuration.WithLabelValues(action).Observe(d.Seconds())
}

// RecordStore records one inventory store operation.
func (m *ServerMetrics) RecordStore(operation string, err error, d time.Duration) {
	m.StoreTotal.WithLabelValues(operation, result(err == nil)).Inc()
	m.StoreDuration.WithLabelValues(operation).Observe(d.Seconds())
}

func result(success bool) string {
	if success {
		return "success"
	}
	return "failed"
}

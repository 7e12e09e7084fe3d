package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the notification distribution
// layer. A nil *Metrics is valid and records nothing, so handlers can be
// constructed without a registry in tests.
type Metrics struct {
	LiveStreams          prometheus.Gauge
	EventsDelivered      prometheus.Counter
	ConnectionsEvicted   prometheus.Counter
	BroadcastsSkipped    prometheus.Counter
	NotificationsCreated prometheus.Counter
}

// New creates and registers all metrics on the default registerer.
func New() *Metrics {
	return &Metrics{
		LiveStreams: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "gatehouse_live_streams",
			Help: "Number of currently open streaming connections",
		}),
		EventsDelivered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gatehouse_events_delivered_total",
			Help: "Total attendance-updated events written to connections",
		}),
		ConnectionsEvicted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gatehouse_connections_evicted_total",
			Help: "Total connections evicted after a failed write",
		}),
		BroadcastsSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gatehouse_broadcasts_skipped_total",
			Help: "Total broadcasts that were no-ops because no connection was open",
		}),
		NotificationsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gatehouse_notifications_created_total",
			Help: "Total notifications appended to the persisted log",
		}),
	}
}

func (m *Metrics) SetLiveStreams(n int) {
	if m == nil {
		return
	}
	m.LiveStreams.Set(float64(n))
}

func (m *Metrics) ObserveBroadcast(delivered, evicted int, skipped bool) {
	if m == nil {
		return
	}
	m.EventsDelivered.Add(float64(delivered))
	m.ConnectionsEvicted.Add(float64(evicted))
	if skipped {
		m.BroadcastsSkipped.Inc()
	}
}

func (m *Metrics) IncNotificationsCreated() {
	if m == nil {
		return
	}
	m.NotificationsCreated.Inc()
}

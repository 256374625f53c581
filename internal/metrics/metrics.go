package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	Admissions        *prometheus.CounterVec
	ActiveConnections prometheus.Gauge
	ForwardedMessages prometheus.Counter
	HandlerFailures   prometheus.Counter
}

var (
	once   sync.Once
	global *Metrics
)

// New builds an unregistered set, for tests and for callers with their own registry.
func New() *Metrics {
	return &Metrics{
		Admissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "askgate",
			Name:      "ws_admissions_total",
			Help:      "WebSocket upgrade attempts by result",
		}, []string{"result"}),
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "askgate",
			Name:      "ws_active_connections",
			Help:      "Open WebSocket connections",
		}),
		ForwardedMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "askgate",
			Name:      "ws_forwarded_messages_total",
			Help:      "Inbound messages handed to the message handler",
		}),
		HandlerFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "askgate",
			Name:      "ws_handler_failures_total",
			Help:      "Message handler calls that returned an error or panicked",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{m.Admissions, m.ActiveConnections, m.ForwardedMessages, m.HandlerFailures}
}

func Global() *Metrics {
	once.Do(func() {
		global = New()
		prometheus.MustRegister(global.collectors()...)
	})
	return global
}

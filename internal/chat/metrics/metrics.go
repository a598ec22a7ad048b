package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "chat"

// Metrics realtime gateway and messaging counters; a nil *Metrics records nothing
type Metrics struct {
	ActiveConnections prometheus.Gauge
	OnlineUsers       prometheus.Gauge
	InboundEvents     *prometheus.CounterVec
	OutboundDropped   *prometheus.CounterVec
	MessagesSent      prometheus.Counter
	HandlerErrors     *prometheus.CounterVec
	RateLimited       prometheus.Counter
}

// New register the chat collectors on reg
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ActiveConnections: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_connections",
			Help:      "Open websocket connections.",
		}),
		OnlineUsers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_users",
			Help:      "Users holding at least one connection.",
		}),
		InboundEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inbound_events_total",
			Help:      "Inbound websocket events by action.",
		}, []string{"action"}),
		OutboundDropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbound_dropped_total",
			Help:      "Outbound events dropped on a full send queue.",
		}, []string{"action"}),
		MessagesSent: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Messages persisted through any transport.",
		}),
		HandlerErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handler_errors_total",
			Help:      "Failed operations by error code.",
		}, []string{"code"}),
		RateLimited: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Inbound events rejected by the per-connection limiter.",
		}),
	}
}

// SetPresence publish registry sizes
func (m *Metrics) SetPresence(users, conns int) {
	if m == nil {
		return
	}
	m.OnlineUsers.Set(float64(users))
	m.ActiveConnections.Set(float64(conns))
}

// Inbound count an inbound event
func (m *Metrics) Inbound(action string) {
	if m == nil {
		return
	}
	m.InboundEvents.WithLabelValues(action).Inc()
}

// Dropped count an event lost on a full queue
func (m *Metrics) Dropped(action string) {
	if m == nil {
		return
	}
	m.OutboundDropped.WithLabelValues(action).Inc()
}

// MessageSent count a persisted message
func (m *Metrics) MessageSent() {
	if m == nil {
		return
	}
	m.MessagesSent.Inc()
}

// Failure count a failed operation
func (m *Metrics) Failure(code string) {
	if m == nil {
		return
	}
	m.HandlerErrors.WithLabelValues(code).Inc()
}

// Limited count a rate limited event
func (m *Metrics) Limited() {
	if m == nil {
		return
	}
	m.RateLimited.Inc()
}

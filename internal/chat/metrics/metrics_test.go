package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Record(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.SetPresence(2, 3)
	m.Inbound("send_message")
	m.Inbound("send_message")
	m.Dropped("new_message")
	m.MessageSent()
	m.Failure("FORBIDDEN")
	m.Limited()

	assert.Equal(t, 3.0, testutil.ToFloat64(m.ActiveConnections))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.OnlineUsers))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.InboundEvents.WithLabelValues("send_message")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OutboundDropped.WithLabelValues("new_message")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MessagesSent))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HandlerErrors.WithLabelValues("FORBIDDEN")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimited))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.SetPresence(1, 1)
		m.Inbound("x")
		m.Dropped("x")
		m.MessageSent()
		m.Failure("x")
		m.Limited()
	})
}

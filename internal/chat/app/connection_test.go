package app

import (
	"testing"
	"time"

	"recruit_chat_service/internal/chat/domain"
	"recruit_chat_service/internal/chat/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestConnection_StateOnlyMovesForward(t *testing.T) {
	c := NewConnection("c1", "alice", 4, nil, nil)
	assert.Equal(t, StateConnecting, c.State())

	assert.True(t, c.Advance(StateAuthenticated))
	assert.True(t, c.Advance(StateActive))
	assert.False(t, c.Advance(StateAuthenticated))
	assert.Equal(t, StateActive, c.State())

	c.Close()
	assert.Equal(t, StateDisconnected, c.State())
	assert.False(t, c.Advance(StateActive))
	c.Close()
}

func TestConnection_PushDropsWhenFull(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	c := NewConnection("c1", "alice", 2, nil, m)

	assert.True(t, c.Push(domain.Push(domain.PeerOnline, nil)))
	assert.True(t, c.Push(domain.Push(domain.PeerOnline, nil)))
	assert.False(t, c.Push(domain.Push(domain.NewMessage, nil)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OutboundDropped.WithLabelValues(string(domain.NewMessage))))

	<-c.Outbound()
	assert.True(t, c.Push(domain.Push(domain.NewMessage, nil)))

	c.Close()
	assert.False(t, c.Push(domain.Push(domain.NewMessage, nil)))
}

func TestRateLimiter_SlidingWindow(t *testing.T) {
	rl := NewRateLimiter(3, time.Second)
	base := time.Unix(1_700_000_000, 0)

	assert.True(t, rl.Allow(base))
	assert.True(t, rl.Allow(base.Add(100*time.Millisecond)))
	assert.True(t, rl.Allow(base.Add(200*time.Millisecond)))
	assert.False(t, rl.Allow(base.Add(300*time.Millisecond)))

	// 第一筆滑出視窗後可再放行一筆
	assert.True(t, rl.Allow(base.Add(1001*time.Millisecond)))
	assert.False(t, rl.Allow(base.Add(1050*time.Millisecond)))
}

func TestRateLimiter_Defaults(t *testing.T) {
	rl := NewRateLimiter(0, 0)
	assert.Equal(t, defaultRateEvents, rl.limit)
	assert.Equal(t, defaultRateWindow, rl.window)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", preview("short"))
	long := preview(string(make([]rune, 100)))
	assert.Equal(t, previewRunes+1, len([]rune(long)))
}

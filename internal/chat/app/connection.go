package app

import (
	"sync"
	"sync/atomic"

	"recruit_chat_service/internal/chat/domain"
	"recruit_chat_service/internal/chat/metrics"
)

// ConnState lifecycle of one websocket connection
type ConnState int32

const (
	// StateConnecting handshake in progress
	StateConnecting ConnState = iota
	// StateAuthenticated credential accepted, not yet registered
	StateAuthenticated
	// StateActive registered in presence, events accepted
	StateActive
	// StateDisconnected terminal
	StateDisconnected
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateActive:
		return "active"
	case StateDisconnected:
		return "disconnected"
	}
	return "unknown"
}

// Connection server side of one socket, the writer goroutine drains send
type Connection struct {
	ID     string
	UserID string

	send      chan domain.WSResponse
	done      chan struct{}
	closeOnce sync.Once
	state     atomic.Int32
	limiter   *RateLimiter
	metrics   *metrics.Metrics
}

// NewConnection create a connection in the Connecting state
func NewConnection(id, userID string, queueSize int, limiter *RateLimiter, m *metrics.Metrics) *Connection {
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Connection{
		ID:      id,
		UserID:  userID,
		send:    make(chan domain.WSResponse, queueSize),
		done:    make(chan struct{}),
		limiter: limiter,
		metrics: m,
	}
}

// State current lifecycle state
func (c *Connection) State() ConnState {
	return ConnState(c.state.Load())
}

// Advance move forward only, Disconnected is terminal
func (c *Connection) Advance(next ConnState) bool {
	for {
		cur := c.state.Load()
		if ConnState(cur) >= next {
			return false
		}
		if c.state.CompareAndSwap(cur, int32(next)) {
			return true
		}
	}
}

// Push non-blocking enqueue, a full queue drops the event
func (c *Connection) Push(resp domain.WSResponse) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- resp:
		return true
	default:
		c.metrics.Dropped(string(resp.Action))
		return false
	}
}

// Allow rate limit check for one inbound event
func (c *Connection) Allow() bool {
	if c.limiter == nil {
		return true
	}
	return c.limiter.Allow(nowFunc())
}

// Close mark the connection disconnected and stop the writer
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		c.state.Store(int32(StateDisconnected))
		close(c.done)
	})
}

// Done closed once the connection is disconnected
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// Outbound queued events for the writer
func (c *Connection) Outbound() <-chan domain.WSResponse {
	return c.send
}

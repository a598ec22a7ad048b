package presence

import (
	"sort"
	"sync"

	"recruit_chat_service/internal/chat/domain"
)

// Endpoint outbound side of one connection
type Endpoint interface {
	// Push non-blocking enqueue, false when the event was dropped
	Push(resp domain.WSResponse) bool
}

type entry struct {
	userID   string
	endpoint Endpoint
}

// Registry process-wide connection to user index and its reverse lookup
type Registry struct {
	mu    sync.RWMutex
	conns map[string]entry
	users map[string]map[string]Endpoint
}

// NewRegistry create an empty Registry
func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]entry),
		users: make(map[string]map[string]Endpoint),
	}
}

// Register add a connection, first reports the user had no other connection
func (r *Registry) Register(connID, userID string, ep Endpoint) (first bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.conns[connID]; ok {
		r.removeLocked(connID, old.userID)
	}

	r.conns[connID] = entry{userID: userID, endpoint: ep}
	set, ok := r.users[userID]
	if !ok {
		set = make(map[string]Endpoint)
		r.users[userID] = set
	}
	set[connID] = ep
	return len(set) == 1
}

// Unregister remove a connection, last reports the user has no connection left
func (r *Registry) Unregister(connID string) (userID string, last bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.conns[connID]
	if !ok {
		return "", false
	}
	return e.userID, r.removeLocked(connID, e.userID)
}

func (r *Registry) removeLocked(connID, userID string) bool {
	delete(r.conns, connID)
	set := r.users[userID]
	delete(set, connID)
	if len(set) == 0 {
		delete(r.users, userID)
		return true
	}
	return false
}

// IsOnline user holds at least one connection
func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users[userID]) > 0
}

// ConnectionsFor connection ids of a user, sorted
func (r *Registry) ConnectionsFor(userID string) []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.users[userID]))
	for id := range r.users[userID] {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

// UserOf user behind a connection
func (r *Registry) UserOf(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[connID]
	return e.userID, ok
}

// Count online users and open connections
func (r *Registry) Count() (users, conns int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users), len(r.conns)
}

// endpointsOf snapshot of a user's endpoints minus exceptConnID
func (r *Registry) endpointsOf(userID, exceptConnID string) []Endpoint {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Endpoint, 0, len(r.users[userID]))
	for id, ep := range r.users[userID] {
		if id != exceptConnID {
			out = append(out, ep)
		}
	}
	return out
}

// SendToUser push to every connection of userID except exceptConnID; returns
// how many connections accepted the event. Pushes run outside the lock.
func (r *Registry) SendToUser(userID string, resp domain.WSResponse, exceptConnID string) int {
	delivered := 0
	for _, ep := range r.endpointsOf(userID, exceptConnID) {
		if ep.Push(resp) {
			delivered++
		}
	}
	return delivered
}

// Broadcast push to every connection except exceptConnID
func (r *Registry) Broadcast(resp domain.WSResponse, exceptConnID string) int {
	r.mu.RLock()
	targets := make([]Endpoint, 0, len(r.conns))
	for id, e := range r.conns {
		if id != exceptConnID {
			targets = append(targets, e.endpoint)
		}
	}
	r.mu.RUnlock()

	delivered := 0
	for _, ep := range targets {
		if ep.Push(resp) {
			delivered++
		}
	}
	return delivered
}

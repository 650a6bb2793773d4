package ws

import (
	"errors"
	"sync"
	"time"
)

var ErrDuplicateConn = errors.New("connection already registered")

// statusFunc is invoked outside the registry lock on presence
// transitions: first connection for a user, or last connection gone
// after the grace delay.
type statusFunc func(userID string, online bool)

// registry is the single source of presence truth: a bidirectional
// index between connections and users, guarded by one coarse lock.
// Nothing in here performs I/O; callers copy snapshots out before
// touching the network or the store.
type registry struct {
	mu       sync.Mutex
	conns    map[string]*Client            // connID -> client
	users    map[string]map[string]*Client // userID -> connID -> client
	offline  map[string]*time.Timer        // pending offline announcements
	grace    time.Duration
	onStatus statusFunc
}

func newRegistry(grace time.Duration, onStatus statusFunc) *registry {
	return &registry{
		conns:    make(map[string]*Client),
		users:    make(map[string]map[string]*Client),
		offline:  make(map[string]*time.Timer),
		grace:    grace,
		onStatus: onStatus,
	}
}

// register adds a connection. Registering the same connID twice is a
// programming error and fails loudly.
func (r *registry) register(c *Client) error {
	userID := c.UserID()

	r.mu.Lock()
	if _, exists := r.conns[c.connID]; exists {
		r.mu.Unlock()
		return ErrDuplicateConn
	}

	r.conns[c.connID] = c
	set := r.users[userID]
	if set == nil {
		set = make(map[string]*Client)
		r.users[userID] = set
	}
	set[c.connID] = c

	announce := false
	if t, pending := r.offline[userID]; pending {
		// Reconnect within the grace window: swallow the transition.
		t.Stop()
		delete(r.offline, userID)
	} else if len(set) == 1 {
		announce = true
	}
	r.mu.Unlock()

	if announce && r.onStatus != nil {
		r.onStatus(userID, true)
	}
	return nil
}

// deregister removes a connection. When the user's last connection goes
// away, the offline announcement is deferred by the grace delay so a
// quick reconnect is not observable externally.
func (r *registry) deregister(connID string) {
	r.mu.Lock()
	c, ok := r.conns[connID]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.conns, connID)

	userID := c.UserID()
	set := r.users[userID]
	delete(set, connID)
	if len(set) > 0 {
		r.mu.Unlock()
		return
	}
	delete(r.users, userID)

	var t *time.Timer
	t = time.AfterFunc(r.grace, func() {
		r.mu.Lock()
		if r.offline[userID] != t || len(r.users[userID]) > 0 {
			r.mu.Unlock()
			return
		}
		delete(r.offline, userID)
		r.mu.Unlock()

		if r.onStatus != nil {
			r.onStatus(userID, false)
		}
	})
	if prev, pending := r.offline[userID]; pending {
		prev.Stop()
	}
	r.offline[userID] = t
	r.mu.Unlock()
}

// connectionsFor returns a snapshot of the user's live connections.
func (r *registry) connectionsFor(userID string) []*Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	set := r.users[userID]
	if len(set) == 0 {
		return nil
	}
	out := make([]*Client, 0, len(set))
	for _, c := range set {
		out = append(out, c)
	}
	return out
}

// allClients returns a snapshot of every live connection.
func (r *registry) allClients() []*Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Client, 0, len(r.conns))
	for _, c := range r.conns {
		out = append(out, c)
	}
	return out
}

func (r *registry) isOnline(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users[userID]) > 0
}

func (r *registry) onlineUsers() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.users))
	for userID := range r.users {
		out = append(out, userID)
	}
	return out
}

func (r *registry) connCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

package ws

import (
	"sync"
	"testing"
	"time"

	"worklink/internal/auth"
)

type statusRecorder struct {
	mu     sync.Mutex
	events []string // "userID:online" / "userID:offline"
}

func (s *statusRecorder) record(userID string, online bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	status := ":offline"
	if online {
		status = ":online"
	}
	s.events = append(s.events, userID+status)
}

func (s *statusRecorder) snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	copy(out, s.events)
	return out
}

func regClient(userID string) *Client {
	return newClient(nil, nil, auth.Identity{UserID: userID})
}

func TestRegistry_ConnectionsForTracksExactSet(t *testing.T) {
	r := newRegistry(time.Hour, nil)

	a1 := regClient("alice")
	a2 := regClient("alice")
	b1 := regClient("bob")

	for _, c := range []*Client{a1, a2, b1} {
		if err := r.register(c); err != nil {
			t.Fatalf("register failed: %v", err)
		}
	}

	if got := len(r.connectionsFor("alice")); got != 2 {
		t.Errorf("expected 2 connections for alice, got %d", got)
	}
	if got := len(r.connectionsFor("bob")); got != 1 {
		t.Errorf("expected 1 connection for bob, got %d", got)
	}

	r.deregister(a1.connID)
	conns := r.connectionsFor("alice")
	if len(conns) != 1 || conns[0].connID != a2.connID {
		t.Errorf("expected only a2 to remain, got %d connections", len(conns))
	}

	r.deregister(a2.connID)
	if conns := r.connectionsFor("alice"); conns != nil {
		t.Errorf("expected no connections for alice, got %d", len(conns))
	}
	if r.isOnline("alice") {
		t.Error("alice should be offline with zero connections")
	}
	if !r.isOnline("bob") {
		t.Error("bob should still be online")
	}

	// Deregistering an unknown connection must be a no-op.
	r.deregister("no-such-conn")
	if got := r.connCount(); got != 1 {
		t.Errorf("expected 1 remaining connection, got %d", got)
	}
}

func TestRegistry_DuplicateRegisterFailsLoudly(t *testing.T) {
	r := newRegistry(time.Hour, nil)

	c := regClient("alice")
	if err := r.register(c); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	if err := r.register(c); err != ErrDuplicateConn {
		t.Fatalf("expected ErrDuplicateConn, got %v", err)
	}
}

func TestRegistry_OnlineAnnouncedOnFirstConnectionOnly(t *testing.T) {
	rec := &statusRecorder{}
	r := newRegistry(time.Hour, rec.record)

	r.register(regClient("alice"))
	r.register(regClient("alice"))

	events := rec.snapshot()
	if len(events) != 1 || events[0] != "alice:online" {
		t.Errorf("expected single online event, got %v", events)
	}
}

func TestRegistry_ReconnectWithinGraceSuppressesOffline(t *testing.T) {
	rec := &statusRecorder{}
	r := newRegistry(50*time.Millisecond, rec.record)

	a1 := regClient("alice")
	r.register(a1)
	r.deregister(a1.connID)

	// Reconnect well inside the grace window.
	time.Sleep(10 * time.Millisecond)
	r.register(regClient("alice"))

	// Wait past the original deadline: the cancelled timer must not fire.
	time.Sleep(100 * time.Millisecond)

	for _, e := range rec.snapshot() {
		if e == "alice:offline" {
			t.Fatal("offline was announced despite reconnect within grace window")
		}
	}

	// The reconnect itself must not re-announce online either.
	events := rec.snapshot()
	if len(events) != 1 || events[0] != "alice:online" {
		t.Errorf("expected only the initial online event, got %v", events)
	}
}

func TestRegistry_OfflineFiresExactlyOnceAfterGrace(t *testing.T) {
	rec := &statusRecorder{}
	r := newRegistry(20*time.Millisecond, rec.record)

	a1 := regClient("alice")
	a2 := regClient("alice")
	r.register(a1)
	r.register(a2)

	r.deregister(a1.connID)
	time.Sleep(50 * time.Millisecond)

	// One connection remains: no offline yet.
	for _, e := range rec.snapshot() {
		if e == "alice:offline" {
			t.Fatal("offline announced while a connection remained")
		}
	}

	r.deregister(a2.connID)
	time.Sleep(60 * time.Millisecond)

	offline := 0
	for _, e := range rec.snapshot() {
		if e == "alice:offline" {
			offline++
		}
	}
	if offline != 1 {
		t.Errorf("expected exactly one offline event, got %d", offline)
	}
}

func TestRegistry_ConcurrentChurnLeavesNoGhosts(t *testing.T) {
	r := newRegistry(time.Millisecond, nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := regClient("alice")
			if err := r.register(c); err != nil {
				t.Errorf("register failed: %v", err)
				return
			}
			r.connectionsFor("alice")
			r.deregister(c.connID)
		}()
	}
	wg.Wait()

	if conns := r.connectionsFor("alice"); len(conns) != 0 {
		t.Errorf("expected no connections after churn, got %d", len(conns))
	}
	if r.connCount() != 0 {
		t.Errorf("expected empty registry, got %d", r.connCount())
	}
}

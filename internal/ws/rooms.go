package ws

import "sync"

// roomIndex caches which local connections joined which rooms, for
// delivery only. Forward and reverse maps stay in lockstep so a
// disconnect can drop a connection from all rooms without a scan.
// Authorization is the store's job, not this index's.
type roomIndex struct {
	mu    sync.RWMutex
	rooms map[string]map[string]*Client // roomID -> connID -> client
	conns map[string]map[string]bool    // connID -> roomID set
}

func newRoomIndex() *roomIndex {
	return &roomIndex{
		rooms: make(map[string]map[string]*Client),
		conns: make(map[string]map[string]bool),
	}
}

func (ri *roomIndex) join(c *Client, roomID string) {
	ri.mu.Lock()
	defer ri.mu.Unlock()

	if ri.rooms[roomID] == nil {
		ri.rooms[roomID] = make(map[string]*Client)
	}
	ri.rooms[roomID][c.connID] = c

	if ri.conns[c.connID] == nil {
		ri.conns[c.connID] = make(map[string]bool)
	}
	ri.conns[c.connID][roomID] = true
}

func (ri *roomIndex) leave(connID, roomID string) {
	ri.mu.Lock()
	defer ri.mu.Unlock()

	if members, ok := ri.rooms[roomID]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(ri.rooms, roomID)
		}
	}
	if rooms, ok := ri.conns[connID]; ok {
		delete(rooms, roomID)
		if len(rooms) == 0 {
			delete(ri.conns, connID)
		}
	}
}

// drop removes a connection from every room it joined.
func (ri *roomIndex) drop(connID string) {
	ri.mu.Lock()
	defer ri.mu.Unlock()

	for roomID := range ri.conns[connID] {
		if members, ok := ri.rooms[roomID]; ok {
			delete(members, connID)
			if len(members) == 0 {
				delete(ri.rooms, roomID)
			}
		}
	}
	delete(ri.conns, connID)
}

// members returns a snapshot of the connections joined to a room.
func (ri *roomIndex) members(roomID string) []*Client {
	ri.mu.RLock()
	defer ri.mu.RUnlock()

	set := ri.rooms[roomID]
	if len(set) == 0 {
		return nil
	}
	out := make([]*Client, 0, len(set))
	for _, c := range set {
		out = append(out, c)
	}
	return out
}

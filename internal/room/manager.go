package room

import (
	"log"
	"sync"
)

// Manager is the owned registry of live rooms. Rooms remove themselves when
// their last human leaves.
type Manager struct {
	mu    sync.Mutex
	rooms map[string]*Room
	deps  Deps
}

func NewManager(deps Deps) *Manager {
	return &Manager{
		rooms: make(map[string]*Room),
		deps:  deps,
	}
}

// GetOrCreate returns the room with the given id, creating it if needed.
// The second result reports whether the room already existed.
func (m *Manager) GetOrCreate(id string) (*Room, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r, ok := m.rooms[id]; ok {
		return r, true
	}
	r := New(id, m.deps, func() { m.remove(id) })
	m.rooms[id] = r
	log.Printf("room %s created", id)
	return r, false
}

// Get returns an existing room.
func (m *Manager) Get(id string) (*Room, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[id]
	return r, ok
}

// List snapshots every live room for the HTTP listing endpoint.
func (m *Manager) List() []Info {
	m.mu.Lock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mu.Unlock()

	infos := make([]Info, 0, len(rooms))
	for _, r := range rooms {
		infos = append(infos, r.Info())
	}
	return infos
}

// remove is invoked by a room's onEmpty callback, with that room's mutex
// held; the manager mutex is always taken second, never the other way.
func (m *Manager) remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, id)
	log.Printf("room %s removed", id)
}

package store

import (
	"encoding/json"
	"sync"
)

// MemoryStore keeps serialized games in memory, keyed by room id. It backs
// local/offline play and lets a room resume a match after the process that
// hosted it went away.
type MemoryStore struct {
	mu    sync.RWMutex
	games map[string]json.RawMessage
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		games: map[string]json.RawMessage{},
	}
}

func (m *MemoryStore) SaveGame(roomID string, data json.RawMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.games[roomID] = append(json.RawMessage(nil), data...)
}

func (m *MemoryStore) LoadGame(roomID string) (json.RawMessage, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.games[roomID]
	return data, ok
}

func (m *MemoryStore) DeleteGame(roomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.games, roomID)
}

// Package presence tracks which users hold live connections and whether
// they chose to appear online.
package presence

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Registry is the presence view the hub and delivery tracker depend on.
type Registry interface {
	// Connect records a live connection and reports whether it is the
	// user's first one.
	Connect(userID uuid.UUID, connID string) bool
	// Disconnect drops a connection and reports whether it was the last one.
	Disconnect(userID uuid.UUID, connID string) bool
	SetVisibility(userID uuid.UUID, visible bool)
	// IsOnline is true only for users that are connected and visible.
	IsOnline(userID uuid.UUID) bool
	// OnlineUsers lists connected and visible users.
	OnlineUsers() []uuid.UUID
}

type entry struct {
	conns map[string]struct{}
}

// MemoryRegistry keeps presence in process memory. Visibility outlives
// connections so a toggle survives a reconnect.
type MemoryRegistry struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*entry
	hidden  map[uuid.UUID]bool
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		entries: make(map[uuid.UUID]*entry),
		hidden:  make(map[uuid.UUID]bool),
	}
}

func (r *MemoryRegistry) Connect(userID uuid.UUID, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[userID]
	if !ok {
		e = &entry{conns: make(map[string]struct{})}
		r.entries[userID] = e
	}
	e.conns[connID] = struct{}{}
	return !ok
}

func (r *MemoryRegistry) Disconnect(userID uuid.UUID, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[userID]
	if !ok {
		return false
	}
	delete(e.conns, connID)
	if len(e.conns) == 0 {
		delete(r.entries, userID)
		return true
	}
	return false
}

func (r *MemoryRegistry) SetVisibility(userID uuid.UUID, visible bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if visible {
		delete(r.hidden, userID)
	} else {
		r.hidden[userID] = true
	}
}

func (r *MemoryRegistry) IsOnline(userID uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.entries[userID]
	return ok && !r.hidden[userID]
}

func (r *MemoryRegistry) OnlineUsers() []uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]uuid.UUID, 0, len(r.entries))
	for id := range r.entries {
		if !r.hidden[id] {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// Package runtime owns the real-time state of the system: which users hold a
// live connection, and how freshly created messages and presence changes are
// propagated to them. It contains no storage or transport code.
package runtime

import (
	"sync"

	"quick-chat/contract"
	"quick-chat/domain/chat"
)

// Registry maps a user identity to its single active connection sink.
// It is the only shared mutable state of the real-time core and is guarded
// by an RWMutex so that concurrent register/deregister/lookup calls always
// observe a consistent mapping.
type Registry struct {
	mu       sync.RWMutex
	sessions map[chat.UserID]contract.EventSink
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[chat.UserID]contract.EventSink),
	}
}

// Register installs sink as the active connection for id. A previous sink
// for the same identity is discarded, not closed: at most one connection is
// active per identity and the newest one wins.
func (r *Registry) Register(id chat.UserID, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[id] = sink
}

// Deregister removes the mapping for id. Calling it for an identity that is
// not registered is a no-op, so duplicate or late close signals are safe.
func (r *Registry) Deregister(id chat.UserID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, id)
}

// Lookup returns the current sink for id. It never blocks on the sink itself;
// callers use the returned sink outside the registry lock.
func (r *Registry) Lookup(id chat.UserID) (contract.EventSink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sink, ok := r.sessions[id]
	return sink, ok
}

// Snapshot returns a point-in-time copy of the online identity set.
// The copy prevents iteration-during-mutation hazards in callers.
func (r *Registry) Snapshot() []chat.UserID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	online := make([]chat.UserID, 0, len(r.sessions))
	for id := range r.sessions {
		online = append(online, id)
	}
	return online
}

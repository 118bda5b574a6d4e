// Package presence tracks which users currently hold live connections.
package presence

import "sync"

// ConnID identifies one live transport session. It is allocated by the
// transport layer and treated as an opaque comparable key everywhere else.
type ConnID string

// Registry maps a user id to the set of connection ids currently open for
// that user. A user appears in the registry iff it has at least one live
// connection; an entry is removed the moment its set empties.
//
// Reads interleave with register/deregister from other goroutines, so all
// access goes through the lock and ConnectionsOf hands out a copy.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]map[ConnID]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]map[ConnID]struct{}),
	}
}

// Register adds conn to userId's connection set, creating the entry if
// absent. Registering the same connection twice is a no-op.
func (r *Registry) Register(userId string, conn ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.conns[userId]
	if !ok {
		set = make(map[ConnID]struct{})
		r.conns[userId] = set
	}
	set[conn] = struct{}{}
}

// Deregister removes conn from userId's connection set, dropping the entry
// entirely once the set is empty. Safe to call for users or connections
// that were never registered; teardown paths call it unconditionally.
func (r *Registry) Deregister(userId string, conn ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.conns[userId]
	if !ok {
		return
	}
	delete(set, conn)
	if len(set) == 0 {
		delete(r.conns, userId)
	}
}

// ConnectionsOf returns the current connection set for userId, possibly
// empty. The returned slice is a snapshot; mutations after the call are not
// reflected in it.
func (r *Registry) ConnectionsOf(userId string) []ConnID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.conns[userId]
	if len(set) == 0 {
		return nil
	}
	out := make([]ConnID, 0, len(set))
	for conn := range set {
		out = append(out, conn)
	}
	return out
}

// ConnectionCount returns the number of live connections userId holds.
func (r *Registry) ConnectionCount(userId string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns[userId])
}

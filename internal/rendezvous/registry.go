// Package rendezvous implements the central TCP service holding the channel
// registry and fanning out Start/Stop signals to every connected peer.
//
// The snapshot-then-subscribe broadcast pattern is grounded on
// internal/core/channel_state.go's ChannelState: one readers-writer lock
// guards the map, mutations compute a snapshot or changeset under the lock
// and release it before touching any socket.
package rendezvous

import (
	"sort"
	"sync"
)

// Entry is one registry row: the publisher's multicast port for a channel.
type Entry struct {
	ID   uint32
	Port uint16
}

// registration is one channel's live entry plus the generation token
// assigned when it was registered, so a stale owner's teardown can be told
// apart from the current one's.
type registration struct {
	port  uint16
	token uint64
}

// Registry is the authoritative id → port map. At most one publisher may
// hold an id at a time; a Start for an id already present replaces it.
type Registry struct {
	mu        sync.RWMutex
	channels  map[uint32]registration
	listeners map[int]chan Change
	nextLis   int
	nextToken uint64
}

// Change is one registry mutation, replayed to every subscribed connection
// worker in the order the registry observed it.
type Change struct {
	Start bool // true for Start{ID,Port}, false for Stop{ID}
	ID    uint32
	Port  uint16
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		channels:  make(map[uint32]registration),
		listeners: make(map[int]chan Change),
	}
}

// Start registers id as published at port, replacing any existing
// registration for id, and returns a generation token identifying this
// specific registration. Pass the token to StopIf so a publisher that was
// already replaced can't retract its successor's live registration.
func (r *Registry) Start(id uint32, port uint16) (token uint64, replaced bool) {
	r.mu.Lock()
	_, replaced = r.channels[id]
	r.nextToken++
	token = r.nextToken
	r.channels[id] = registration{port: port, token: token}
	subs := r.snapshotListenersLocked()
	r.mu.Unlock()

	publish(subs, Change{Start: true, ID: id, Port: port})
	return token, replaced
}

// StopIf retracts id's registration only if it is still held by the
// registration identified by token — i.e. no later Start has replaced it.
// A stale token is a no-op: the current owner's registration survives.
func (r *Registry) StopIf(id uint32, token uint64) (stopped bool) {
	r.mu.Lock()
	current, ok := r.channels[id]
	if !ok || current.token != token {
		r.mu.Unlock()
		return false
	}
	delete(r.channels, id)
	subs := r.snapshotListenersLocked()
	r.mu.Unlock()

	publish(subs, Change{Start: false, ID: id})
	return true
}

// Stop retracts id's registration unconditionally, regardless of which
// generation currently holds it. Reports whether id was registered.
func (r *Registry) Stop(id uint32) (existed bool) {
	r.mu.Lock()
	_, existed = r.channels[id]
	delete(r.channels, id)
	subs := r.snapshotListenersLocked()
	r.mu.Unlock()

	if existed {
		publish(subs, Change{Start: false, ID: id})
	}
	return existed
}

// Snapshot returns every current registration, ordered by id for
// determinism in tests and status output.
func (r *Registry) Snapshot() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

func (r *Registry) snapshotLocked() []Entry {
	out := make([]Entry, 0, len(r.channels))
	for id, reg := range r.channels {
		out = append(out, Entry{ID: id, Port: reg.port})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *Registry) snapshotListenersLocked() []chan Change {
	subs := make([]chan Change, 0, len(r.listeners))
	for _, ch := range r.listeners {
		subs = append(subs, ch)
	}
	return subs
}

// Subscribe opens a change feed. The caller must call the returned cancel
// func when done to release the channel. The buffer is sized generously
// because a slow or dead consumer must never block a registry mutation;
// Subscribe's caller is responsible for draining it promptly (the
// per-connection worker does, forwarding each change as it arrives).
func (r *Registry) Subscribe() (<-chan Change, func()) {
	ch := make(chan Change, 256)

	r.mu.Lock()
	id := r.nextLis
	r.nextLis++
	r.listeners[id] = ch
	r.mu.Unlock()

	cancel := func() {
		r.mu.Lock()
		delete(r.listeners, id)
		r.mu.Unlock()
	}
	return ch, cancel
}

// publish fans a change out to every subscriber without holding the
// registry lock. A full subscriber channel drops the change for that
// subscriber rather than blocking the mutation path; the dropped change is
// not redelivered, and the subscription stays open.
func publish(subs []chan Change, change Change) {
	for _, ch := range subs {
		select {
		case ch <- change:
		default:
		}
	}
}

// Package transport orchestrates the sender and receiver lifecycles (C5,
// C6) and owns the shared signal client (C7) that fans decoded registry
// changes out to every active receiver on this peer.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"mirrorcast/internal/adapter"
	"mirrorcast/internal/multicast"
	"mirrorcast/internal/reliable"
	"mirrorcast/internal/wire"
)

// ErrConnect is returned when a sender or receiver fails to establish its
// reliable-unicast session.
var ErrConnect = errors.New("transport: connect failed")

// Options configures a Transport: where the rendezvous lives, the
// multicast group peers fan out over, and the MTU/latency budget handed to
// the reliable-unicast layer.
type Options struct {
	Reliable     reliable.Options
	MulticastIP  net.IP
	MulticastTTL int
}

// inbox is one receiver's registered signal channel plus a way to tell a
// momentarily full channel apart from one whose owner is actually gone.
type inbox struct {
	ch    chan wire.Signal
	alive func() bool
}

// Transport is one peer's handle onto the mirroring network. It is safe
// for concurrent CreateSender/CreateReceiver calls.
type Transport struct {
	opts Options

	mu       sync.RWMutex
	channels map[uint32]inbox
	nextIdx  uint32

	signalOnce sync.Once
	signal     *signalClient
}

// New constructs a Transport. It does not connect anything until
// CreateSender/CreateReceiver is called.
func New(opts Options) *Transport {
	return &Transport{
		opts:     opts,
		channels: make(map[uint32]inbox),
	}
}

// ensureSignalClient starts the shared signal client exactly once, lazily,
// the first time any receiver needs it.
func (t *Transport) ensureSignalClient(signalAddr string) *signalClient {
	t.signalOnce.Do(func() {
		t.signal = newSignalClient(signalAddr, t)
		go t.signal.run()
	})
	return t.signal
}

// registerInbox allocates the next local_index (wrapping at u32::MAX per
// the data model) and installs ch as that index's signal inbox. alive
// reports whether the inbox's owning receiver is still around; it's
// consulted only when ch is found full, to tell "receiver gone" apart from
// "receiver momentarily behind."
func (t *Transport) registerInbox(ch chan wire.Signal, alive func() bool) uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := t.nextIdx
	if t.nextIdx == ^uint32(0) {
		t.nextIdx = 0
	} else {
		t.nextIdx++
	}
	t.channels[idx] = inbox{ch: ch, alive: alive}
	return idx
}

// unregisterInbox removes idx's inbox, if present.
func (t *Transport) unregisterInbox(idx uint32) {
	t.mu.Lock()
	delete(t.channels, idx)
	t.mu.Unlock()
}

// dispatch fans sig out to every registered inbox. A full inbox whose
// owner reports itself still alive is left registered and simply misses
// this signal — a receiver only gets evicted once it reports itself gone,
// never merely for falling behind a burst of registry churn. Eviction
// itself is collected and applied after the read lock is released, per
// the discipline of never promoting to a write lock mid-iteration.
func (t *Transport) dispatch(sig wire.Signal) {
	t.mu.RLock()
	dead := make([]uint32, 0)
	for idx, in := range t.channels {
		select {
		case in.ch <- sig:
		default:
			if !in.alive() {
				dead = append(dead, idx)
			}
		}
	}
	t.mu.RUnlock()

	if len(dead) == 0 {
		return
	}
	t.mu.Lock()
	for _, idx := range dead {
		delete(t.channels, idx)
	}
	t.mu.Unlock()
}

// CreateSender opens a reliable-unicast publisher session for id, allocates
// a multicast sender bound to the configured group, and spawns the worker
// that pumps adapter items to whichever path the adapter currently selects.
func (t *Transport) CreateSender(ctx context.Context, id uint32, a *adapter.Adapter) error {
	mcastSender, err := multicast.NewSender(t.opts.MulticastIP, t.opts.MulticastTTL)
	if err != nil {
		return fmt.Errorf("%w: multicast sender: %v", ErrConnect, err)
	}

	session, err := reliable.DialPublisher(ctx, t.opts.Reliable, id, mcastSender.Port())
	if err != nil {
		mcastSender.Close()
		return fmt.Errorf("%w: %v", ErrConnect, err)
	}

	go senderWorker(id, a, session, mcastSender, t.opts.Reliable.MTU)
	return nil
}

// CreateReceiver opens a reliable-unicast subscriber session for id,
// registers a signal inbox, and spawns the signal and unicast workers.
// signalAddr is the rendezvous's plain-TCP Signal Client listen address.
func (t *Transport) CreateReceiver(ctx context.Context, id uint32, a *adapter.Adapter, signalAddr string) error {
	session, err := reliable.DialSubscriber(ctx, t.opts.Reliable, id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnect, err)
	}

	t.ensureSignalClient(signalAddr)

	sigCh := make(chan wire.Signal, 16)
	idx := t.registerInbox(sigCh, a.Closed)

	go unicastWorker(id, a, session)
	go signalWorker(id, idx, sigCh, a, session, t, t.opts.MulticastIP)

	return nil
}

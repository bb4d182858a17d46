package transport

import (
	"log/slog"
	"net"

	"mirrorcast/internal/adapter"
	"mirrorcast/internal/multicast"
	"mirrorcast/internal/reliable"
	"mirrorcast/internal/wire"
)

// unicastWorker reads fragment chunks from the reliable session, reassembles
// them, and enforces sequence contiguity independently of the multicast
// path: each path owns its own expected-sequence counter, so a mode switch
// on one never corrupts the other's accounting (the split-counter
// resolution of the shared-counter hazard).
func unicastWorker(id uint32, a *adapter.Adapter, session *reliable.Session) {
	defer func() {
		a.Close()
		session.Close()
		slog.Debug("unicast worker exiting", "channel_id", id)
	}()

	reassembler := reliable.NewReassembler()
	var expected uint32
	haveExpected := false

	for {
		chunk, err := session.ReadChunk()
		if err != nil {
			slog.Debug("unicast read ended", "channel_id", id, "err", err)
			return
		}
		if a.Closed() {
			return
		}

		seq, payload, complete, err := reassembler.Feed(chunk)
		if err != nil {
			a.LossPkt()
			continue
		}
		if !complete {
			continue
		}

		deliverSequenced(a, &expected, &haveExpected, seq, payload)
	}
}

// multicastWorker mirrors unicastWorker's contiguity logic against the
// multicast datagram stream, with its own independent sequence counter.
func multicastWorker(id uint32, a *adapter.Adapter, receiver *multicast.Receiver) {
	defer func() {
		receiver.Close()
		slog.Debug("multicast worker exiting", "channel_id", id)
	}()

	var expected uint32
	haveExpected := false

	for {
		dgram, ok := receiver.Next()
		if !ok {
			return
		}
		if a.Closed() {
			return
		}
		deliverSequenced(a, &expected, &haveExpected, dgram.Sequence, dgram.Payload)
	}
}

// deliverSequenced implements the shared contiguity-then-decode rule
// (testable property 4): a payload is handed to the adapter only when its
// sequence matches what was expected; any gap is reported as loss without
// attempting to decode, and the expectation always advances to seq+1.
func deliverSequenced(a *adapter.Adapter, expected *uint32, haveExpected *bool, seq uint32, framed []byte) {
	defer func() {
		*expected = seq + 1
		*haveExpected = true
	}()

	if *haveExpected && seq != *expected {
		a.LossPkt()
		return
	}

	headerLen, info, ok := wire.Remux(framed)
	if !ok {
		a.LossPkt()
		return
	}
	a.Send(adapter.Item{
		Payload:   framed[headerLen:],
		Kind:      uint8(info.Kind),
		Flags:     info.Flags,
		Timestamp: info.Timestamp,
	})
}

// signalWorker drains this receiver's signal inbox (C7's per-receiver fan-
// out target), opening or replacing the multicast reader on Start{id} and
// tearing the receiver down on Stop{id}.
func signalWorker(id, inboxIdx uint32, inbox <-chan wire.Signal, a *adapter.Adapter, session *reliable.Session, t *Transport, group net.IP) {
	defer t.unregisterInbox(inboxIdx)

	var activeMcast *multicast.Receiver

	closeActive := func() {
		if activeMcast != nil {
			activeMcast.Close()
			activeMcast = nil
		}
	}
	defer closeActive()

	for sig := range inbox {
		if a.Closed() {
			return
		}
		switch sig.Kind {
		case wire.SignalStart:
			if sig.ID != id {
				continue
			}
			closeActive() // a new Start replaces any existing reader
			receiver, err := multicast.NewReceiver(group, sig.Port)
			if err != nil {
				slog.Warn("multicast join failed", "channel_id", id, "port", sig.Port, "err", err)
				continue
			}
			activeMcast = receiver
			go multicastWorker(id, a, receiver)
		case wire.SignalStop:
			if sig.ID != id {
				continue
			}
			closeActive()
			a.Close()
			session.Close()
			return
		}
	}
}

package transport

import (
	"log/slog"

	"mirrorcast/internal/adapter"
	"mirrorcast/internal/multicast"
	"mirrorcast/internal/reliable"
	"mirrorcast/internal/wire"
)

// senderWorker drains the adapter and pumps each framed payload down
// whichever path the adapter currently selects. There is exactly one
// worker per sender; the adapter serializes producer order, so no
// additional locking is needed here.
func senderWorker(id uint32, a *adapter.Adapter, session *reliable.Session, mcast *multicast.Sender, mtu int) {
	defer func() {
		a.Close()
		session.Close()
		mcast.Close()
		slog.Info("sender closed", "channel_id", id)
	}()

	var seq uint32
	for {
		item, ok := a.Next()
		if !ok {
			slog.Debug("sender adapter drained", "channel_id", id)
			return
		}

		framed := wire.Mux(wire.PacketInfo{
			Kind:      wire.StreamKind(item.Kind),
			Flags:     item.Flags,
			Timestamp: item.Timestamp,
		}, item.Payload)

		if a.GetMulticast() {
			if err := mcast.Send(framed); err != nil {
				slog.Warn("multicast send failed", "channel_id", id, "err", err)
				return
			}
			continue
		}

		chunks, err := reliable.Fragment(seq, framed, mtu)
		if err != nil {
			slog.Warn("fragment failed", "channel_id", id, "err", err)
			return
		}
		seq++

		for _, chunk := range chunks {
			if err := session.SendChunk(chunk); err != nil {
				slog.Warn("unicast send failed", "channel_id", id, "err", err)
				return
			}
		}
	}
}

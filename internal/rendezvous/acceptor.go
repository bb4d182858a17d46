package rendezvous

import (
	"context"
	"log/slog"

	"mirrorcast/internal/reliable"
	"mirrorcast/internal/wire"
)

// RunAcceptor hooks a reliable-unicast listener's accept loop to registry
// mutation: a Publisher connecting registers its channel, and the
// registration is retracted when that publisher's session ends. This
// resolves the registry-mutation lifecycle as a connection-observing loop
// rather than leaving it to a separate, easy-to-forget code path.
func RunAcceptor(ctx context.Context, ln *reliable.Listener, registry *Registry) error {
	for {
		peer, err := ln.Accept(ctx)
		if err != nil {
			return err
		}
		go handlePeer(peer, registry)
	}
}

func handlePeer(peer *reliable.Peer, registry *Registry) {
	if peer.Info.Kind != wire.Publisher {
		// Subscribers aren't registered; their identity only matters to
		// the reliable transport's own routing. Nothing to do here but
		// wait for the connection to close so the accept loop's resources
		// are released.
		<-peer.Done()
		peer.Close()
		return
	}

	port := uint16(0)
	if peer.Info.Port != nil {
		port = *peer.Info.Port
	}

	token, _ := registry.Start(peer.Info.ID, port)
	slog.Info("publisher registered", "channel_id", peer.Info.ID, "port", port)

	<-peer.Done()

	// StopIf only retracts this peer's own registration. If a replacement
	// publisher already took the id (registry.Start with a fresh token)
	// while this one was draining, that registration is left alone instead
	// of being torn down as a side effect of the stale peer disconnecting.
	if registry.StopIf(peer.Info.ID, token) {
		slog.Info("publisher deregistered", "channel_id", peer.Info.ID)
	}
	peer.Close()
}

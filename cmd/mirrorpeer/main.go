// Command mirrorpeer is a thin process entrypoint around internal/transport:
// it wires a sender or receiver adapter to the mirroring network and pumps
// framed payloads across stdio. Capture, encode, and decode are external
// collaborators; this binary only owns the transport boundary.
package main

import (
	"bufio"
	"context"
	"encoding/binary"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"mirrorcast/internal/adapter"
	"mirrorcast/internal/config"
	"mirrorcast/internal/reliable"
	"mirrorcast/internal/transport"
	"mirrorcast/internal/wire"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file (required)")
	id := flag.Uint("id", 0, "channel id")
	role := flag.String("role", "", "publisher or subscriber (required)")
	kind := flag.String("kind", "video", "stream kind for published frames: video or audio")
	flag.Parse()

	if *configPath == "" || *role == "" {
		slog.Error("mirrorpeer requires -config and -role")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	t := transport.New(transport.Options{
		Reliable: reliable.Options{
			ServerAddr: cfg.Transport.Server,
			MTU:        cfg.Transport.MTU,
			Latency:    cfg.Transport.Latency,
		},
		MulticastIP:  cfg.Transport.MulticastIP,
		MulticastTTL: cfg.Transport.TTL,
	})

	a := adapter.New(adapter.DefaultCapacity)
	channelID := uint32(*id)

	switch *role {
	case "publisher":
		if err := t.CreateSender(ctx, channelID, a); err != nil {
			slog.Error("create sender", "err", err)
			os.Exit(1)
		}
		streamKind := wire.Video
		if *kind == "audio" {
			streamKind = wire.Audio
		}
		pumpStdinToAdapter(ctx, a, streamKind)
	case "subscriber":
		if err := t.CreateReceiver(ctx, channelID, a, cfg.Signal.Addr); err != nil {
			slog.Error("create receiver", "err", err)
			os.Exit(1)
		}
		pumpAdapterToStdout(ctx, a)
	default:
		slog.Error("unknown -role", "role", *role)
		os.Exit(1)
	}
}

// pumpStdinToAdapter reads length-prefixed frames from stdin (a 4-byte
// big-endian length followed by that many payload bytes) and feeds each
// one into the sender adapter with a monotonically advancing timestamp.
func pumpStdinToAdapter(ctx context.Context, a *adapter.Adapter, kind wire.StreamKind) {
	r := bufio.NewReader(os.Stdin)
	var lenBuf [4]byte
	var ts uint64
	for {
		if ctx.Err() != nil {
			a.Close()
			return
		}
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			if err != io.EOF {
				slog.Warn("stdin read", "err", err)
			}
			a.Close()
			return
		}
		payload := make([]byte, binary.BigEndian.Uint32(lenBuf[:]))
		if _, err := io.ReadFull(r, payload); err != nil {
			slog.Warn("stdin read payload", "err", err)
			a.Close()
			return
		}
		a.Send(adapter.Item{Payload: payload, Kind: uint8(kind), Timestamp: ts})
		ts++
	}
}

// pumpAdapterToStdout drains decoded items from the receiver adapter and
// writes each payload to stdout, length-prefixed the same way
// pumpStdinToAdapter reads it, so the two sides of a pipe compose.
func pumpAdapterToStdout(ctx context.Context, a *adapter.Adapter) {
	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()

	go func() {
		<-ctx.Done()
		a.Close()
	}()

	var lenBuf [4]byte
	for {
		item, ok := a.Next()
		if !ok {
			return
		}
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(item.Payload)))
		if _, err := w.Write(lenBuf[:]); err != nil {
			slog.Warn("stdout write", "err", err)
			return
		}
		if _, err := w.Write(item.Payload); err != nil {
			slog.Warn("stdout write payload", "err", err)
			return
		}
		w.Flush()
	}
}

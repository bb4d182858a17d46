package reliable

import (
	"context"
	"fmt"
	"io"

	"github.com/quic-go/quic-go"

	"mirrorcast/internal/wire"
)

// Listener accepts reliable-unicast connections from publishers and
// subscribers. It is the rendezvous side of Session: every accepted peer
// hands back its StreamInfo preamble so the caller can hook registry
// mutation to connection lifecycle.
type Listener struct {
	ql *quic.Listener
}

// Listen binds addr and returns a Listener ready to Accept.
func Listen(addr string) (*Listener, error) {
	tlsConf, err := generateServerTLSConfig()
	if err != nil {
		return nil, fmt.Errorf("reliable: tls config: %w", err)
	}
	ql, err := quic.ListenAddr(addr, tlsConf, (Options{}).quicConfig())
	if err != nil {
		return nil, fmt.Errorf("reliable: listen %s: %w", addr, err)
	}
	return &Listener{ql: ql}, nil
}

// Addr returns the bound listen address.
func (l *Listener) Addr() string {
	return l.ql.Addr().String()
}

// Peer is one accepted reliable-unicast connection, identified by the
// StreamInfo it announced at connect time.
type Peer struct {
	Info    wire.StreamInfo
	session *Session
}

// ReadChunk and SendChunk expose the same framed chunk interface a client
// Session offers, so code shared between sender/receiver logic can treat a
// rendezvous-accepted peer and a dialed session uniformly.
func (p *Peer) ReadChunk() ([]byte, error)   { return p.session.ReadChunk() }
func (p *Peer) SendChunk(chunk []byte) error { return p.session.SendChunk(chunk) }
func (p *Peer) Done() <-chan struct{}        { return p.session.Done() }
func (p *Peer) Close() error                 { return p.session.Close() }

// Accept waits for the next connection, opens its first stream, and reads
// the StreamInfo preamble from it.
func (l *Listener) Accept(ctx context.Context) (*Peer, error) {
	conn, err := l.ql.Accept(ctx)
	if err != nil {
		return nil, err
	}
	stream, err := conn.AcceptStream(ctx)
	if err != nil {
		conn.CloseWithError(0, "accept stream failed")
		return nil, fmt.Errorf("reliable: accept stream: %w", err)
	}

	info, err := readStreamInfoPreamble(stream)
	if err != nil {
		conn.CloseWithError(0, "preamble read failed")
		return nil, fmt.Errorf("reliable: read stream-id preamble: %w", err)
	}

	return &Peer{Info: info, session: &Session{conn: conn, stream: stream}}, nil
}

// Close stops accepting new connections.
func (l *Listener) Close() error {
	return l.ql.Close()
}

// readStreamInfoPreamble reads the fixed-shape StreamInfo encoding: one
// kind byte determines how many more bytes to read (wire.StreamInfo has no
// separate length prefix, since both variants have a fixed size per kind).
func readStreamInfoPreamble(r io.Reader) (wire.StreamInfo, error) {
	kind := make([]byte, 1)
	if _, err := io.ReadFull(r, kind); err != nil {
		return wire.StreamInfo{}, err
	}

	switch wire.SocketKind(kind[0]) {
	case wire.Publisher:
		rest := make([]byte, 6)
		if _, err := io.ReadFull(r, rest); err != nil {
			return wire.StreamInfo{}, err
		}
		return wire.DecodeStreamInfo(append(kind, rest...))
	case wire.Subscriber:
		rest := make([]byte, 4)
		if _, err := io.ReadFull(r, rest); err != nil {
			return wire.StreamInfo{}, err
		}
		return wire.DecodeStreamInfo(append(kind, rest...))
	default:
		return wire.StreamInfo{}, fmt.Errorf("reliable: unknown stream-id annotation kind %d", kind[0])
	}
}

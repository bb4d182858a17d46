package reliable

import (
	"context"
	"fmt"
	"time"

	"github.com/quic-go/quic-go"

	"mirrorcast/internal/wire"
)

// Options configures a reliable-unicast endpoint: the rendezvous address
// peers dial, the MTU that bounds fragment size, and the retransmit
// latency budget handed to the QUIC session.
type Options struct {
	ServerAddr string
	MTU        int
	Latency    time.Duration
}

// quicConfig derives a quic.Config carrying the latency target as the
// keep-alive period, the closest QUIC analogue to the reliable-unicast
// library's own latency knob. The max idle timeout is fixed at 30s.
func (o Options) quicConfig() *quic.Config {
	latency := o.Latency
	if latency <= 0 {
		latency = 20 * time.Millisecond
	}
	return &quic.Config{
		MaxIdleTimeout:  30 * time.Second,
		KeepAlivePeriod: latency,
	}
}

// Session is one reliable-unicast endpoint: a QUIC connection plus the
// single bidirectional stream carrying the connect-time StreamInfo
// preamble and, after that, fragment chunks.
type Session struct {
	conn   *quic.Conn
	stream *quic.Stream
}

// DialPublisher opens a reliable-unicast session announcing id as a
// publisher on multicastPort.
func DialPublisher(ctx context.Context, opts Options, id uint32, multicastPort uint16) (*Session, error) {
	return dial(ctx, opts, wire.StreamInfo{ID: id, Kind: wire.Publisher, Port: &multicastPort})
}

// DialSubscriber opens a reliable-unicast session announcing id as a
// subscriber.
func DialSubscriber(ctx context.Context, opts Options, id uint32) (*Session, error) {
	return dial(ctx, opts, wire.StreamInfo{ID: id, Kind: wire.Subscriber})
}

func dial(ctx context.Context, opts Options, info wire.StreamInfo) (*Session, error) {
	conn, err := quic.DialAddr(ctx, opts.ServerAddr, clientTLSConfig(), opts.quicConfig())
	if err != nil {
		return nil, fmt.Errorf("reliable: dial %s: %w", opts.ServerAddr, err)
	}
	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		conn.CloseWithError(0, "open stream failed")
		return nil, fmt.Errorf("reliable: open stream: %w", err)
	}
	if _, err := stream.Write(info.Encode()); err != nil {
		conn.CloseWithError(0, "preamble write failed")
		return nil, fmt.Errorf("reliable: write stream-id preamble: %w", err)
	}
	return &Session{conn: conn, stream: stream}, nil
}

// SendChunk writes one fragment chunk. Each Write is one logical unit; the
// peer's Reassembler expects chunk boundaries to survive, which a QUIC
// stream alone does not guarantee, so SendChunk length-prefixes the chunk.
func (s *Session) SendChunk(chunk []byte) error {
	return writeFramed(s.stream, chunk)
}

// ReadChunk reads the next length-prefixed fragment chunk.
func (s *Session) ReadChunk() ([]byte, error) {
	return readFramed(s.stream)
}

// Done reports when the underlying connection has been closed, by the
// local side or the peer.
func (s *Session) Done() <-chan struct{} {
	return s.conn.Context().Done()
}

// Close tears down the stream and connection.
func (s *Session) Close() error {
	s.conn.CloseWithError(0, "session closed")
	return nil
}

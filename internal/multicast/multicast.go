// Package multicast implements the 1→N fan-out data path: one framed
// payload per UDP datagram, no fragmentation (oversize datagrams are
// dropped by the OS, which is the design's accepted tradeoff), prefixed
// with a monotonic sequence number so receivers can detect loss.
//
// Grounded on rcarmo-codebits-tv/internal/mcast/mcast.go's join/TTL/
// loopback setup via golang.org/x/net/ipv4, simplified from its
// fragment-and-reassemble scheme (this path never fragments) down to a
// bare sequence prefix.
package multicast

import (
	"encoding/binary"
	"fmt"
	"net"
	"sync/atomic"

	"golang.org/x/net/ipv4"
)

// seqHeaderSize is the length of the monotonic sequence number prefixed to
// every datagram, ahead of the framed payload.
const seqHeaderSize = 4

// MaxDatagram is a conservative ceiling under the common LAN MTU; payloads
// above this are the caller's responsibility to avoid, since this path
// never fragments.
const MaxDatagram = 1400

// Sender publishes framed payloads to one multicast group:port, which also
// doubles as the locally bound port reported to the rendezvous as the
// channel's Start{id,port}.
type Sender struct {
	conn *net.UDPConn
	pc   *ipv4.PacketConn
	dst  *net.UDPAddr
	seq  atomic.Uint32
}

// NewSender binds an ephemeral local UDP port, sets the multicast TTL and
// loopback behavior, and returns a Sender whose Port() is the value to
// announce to subscribers.
func NewSender(group net.IP, ttl int) (*Sender, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: 0})
	if err != nil {
		return nil, fmt.Errorf("multicast: listen: %w", err)
	}
	pc := ipv4.NewPacketConn(conn)
	if err := pc.SetMulticastTTL(ttl); err != nil {
		conn.Close()
		return nil, fmt.Errorf("multicast: set ttl: %w", err)
	}
	if err := pc.SetMulticastLoopback(true); err != nil {
		conn.Close()
		return nil, fmt.Errorf("multicast: set loopback: %w", err)
	}

	port := conn.LocalAddr().(*net.UDPAddr).Port
	return &Sender{
		conn: conn,
		pc:   pc,
		dst:  &net.UDPAddr{IP: group, Port: port},
	}, nil
}

// Port returns the local port this sender is bound to, i.e. the group port
// subscribers must join.
func (s *Sender) Port() uint16 {
	return uint16(s.conn.LocalAddr().(*net.UDPAddr).Port)
}

// Send writes one framed payload as a single datagram, prefixed with the
// next sequence number.
func (s *Sender) Send(framed []byte) error {
	seq := s.seq.Add(1) - 1
	out := make([]byte, seqHeaderSize+len(framed))
	binary.BigEndian.PutUint32(out, seq)
	copy(out[seqHeaderSize:], framed)

	_, err := s.conn.WriteToUDP(out, s.dst)
	return err
}

// Close releases the underlying socket.
func (s *Sender) Close() error {
	return s.conn.Close()
}

// Datagram is one received, sequence-tagged payload.
type Datagram struct {
	Sequence uint32
	Payload  []byte
}

// Receiver joins a multicast group on a configured port and yields
// sequence-tagged payloads via Next.
type Receiver struct {
	conn *net.UDPConn
	pc   *ipv4.PacketConn
	out  chan Datagram
}

// NewReceiver binds port on every address, joins group on every up,
// multicast-capable interface it can (loopback included), and starts
// reading.
func NewReceiver(group net.IP, port uint16) (*Receiver, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: int(port)})
	if err != nil {
		return nil, fmt.Errorf("multicast: listen: %w", err)
	}
	pc := ipv4.NewPacketConn(conn)
	_ = pc.SetMulticastLoopback(true)

	ifaces, _ := net.Interfaces()
	joined := false
	for _, ifi := range ifaces {
		if ifi.Flags&net.FlagUp == 0 || ifi.Flags&net.FlagMulticast == 0 {
			continue
		}
		if err := pc.JoinGroup(&ifi, &net.UDPAddr{IP: group}); err == nil {
			joined = true
		}
	}
	if !joined {
		conn.Close()
		return nil, fmt.Errorf("multicast: failed to join group %s on any interface", group)
	}

	r := &Receiver{
		conn: conn,
		pc:   pc,
		out:  make(chan Datagram, 64),
	}
	go r.readLoop()
	return r, nil
}

// readLoop exits, closing out, only when the socket itself errors (notably
// on Close). There is exactly one writer to out and one closer.
func (r *Receiver) readLoop() {
	buf := make([]byte, 65536)
	for {
		n, _, err := r.conn.ReadFromUDP(buf)
		if err != nil {
			close(r.out)
			return
		}
		if n < seqHeaderSize {
			continue
		}
		seq := binary.BigEndian.Uint32(buf[:seqHeaderSize])
		payload := make([]byte, n-seqHeaderSize)
		copy(payload, buf[seqHeaderSize:n])

		r.out <- Datagram{Sequence: seq, Payload: payload}
	}
}

// Next blocks until a datagram arrives or the receiver is closed, in which
// case ok is false.
func (r *Receiver) Next() (Datagram, bool) {
	d, ok := <-r.out
	return d, ok
}

// Close releases the socket, which unblocks the read loop with an error
// and closes the channel Next reads from.
func (r *Receiver) Close() error {
	return r.conn.Close()
}

// Package wire implements the on-the-wire framing shared by every transport
// path: the per-payload Muxer header and the length-prefixed Signal codec.
package wire

import "encoding/binary"

// StreamKind identifies the kind of media carried by a framed payload.
type StreamKind uint8

const (
	// Video marks a video packet.
	Video StreamKind = 0
	// Audio marks an audio packet.
	Audio StreamKind = 1
)

func (k StreamKind) String() string {
	switch k {
	case Video:
		return "video"
	case Audio:
		return "audio"
	default:
		return "unknown"
	}
}

// HeaderSize is the fixed size, in bytes, of the Muxer header.
const HeaderSize = 13

// PacketInfo carries the per-payload metadata the transport tags but never
// interprets. Flags are an opaque producer hint (e.g. a keyframe marker);
// Timestamp is the producer's own monotonic clock and is not compared
// against wall time by any component in this module.
type PacketInfo struct {
	Kind      StreamKind
	Flags     uint32
	Timestamp uint64
}

// Mux prepends the fixed per-payload header to payload and returns the
// framed bytes. It never fails: there is no invalid PacketInfo.
func Mux(info PacketInfo, payload []byte) []byte {
	out := make([]byte, HeaderSize+len(payload))
	out[0] = byte(info.Kind)
	binary.BigEndian.PutUint32(out[1:5], info.Flags)
	binary.BigEndian.PutUint64(out[5:13], info.Timestamp)
	copy(out[HeaderSize:], payload)
	return out
}

// Remux parses the fixed header from the front of buf. It returns the header
// length, the decoded PacketInfo, and true on success. It returns false if
// buf is shorter than HeaderSize or the kind octet is not a known
// StreamKind — callers treat both as packet loss.
func Remux(buf []byte) (headerLen int, info PacketInfo, ok bool) {
	if len(buf) < HeaderSize {
		return 0, PacketInfo{}, false
	}
	kind := StreamKind(buf[0])
	if kind != Video && kind != Audio {
		return 0, PacketInfo{}, false
	}
	return HeaderSize, PacketInfo{
		Kind:      kind,
		Flags:     binary.BigEndian.Uint32(buf[1:5]),
		Timestamp: binary.BigEndian.Uint64(buf[5:13]),
	}, true
}

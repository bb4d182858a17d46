package wire

import "encoding/binary"

// Signal is the tagged union exchanged between the rendezvous service and
// peers: Start announces a publisher's multicast port for a channel id,
// Stop retracts it.
type Signal struct {
	Kind SignalKind
	ID   uint32
	Port uint16 // only meaningful when Kind == SignalStart
}

// SignalKind discriminates the Signal variants on the wire.
type SignalKind uint8

const (
	// SignalStart tags a Signal carrying {id, port}.
	SignalStart SignalKind = 1
	// SignalStop tags a Signal carrying {id}.
	SignalStop SignalKind = 2
)

// StartSignal builds a Start{id, port} signal.
func StartSignal(id uint32, port uint16) Signal {
	return Signal{Kind: SignalStart, ID: id, Port: port}
}

// StopSignal builds a Stop{id} signal.
func StopSignal(id uint32) Signal {
	return Signal{Kind: SignalStop, ID: id}
}

// signalLengthPrefixSize is the size of the big-endian length prefix that
// opens every Signal frame. The prefix value includes itself.
const signalLengthPrefixSize = 2

// maxSignalFrameLen is the largest frame length representable by the u16
// length prefix.
const maxSignalFrameLen = 0xFFFF

// EncodeSignal serializes sig to its wire form: a 2-byte big-endian total
// length (prefix inclusive) followed by a 1-byte kind tag and the variant's
// fields.
func EncodeSignal(sig Signal) []byte {
	var body []byte
	switch sig.Kind {
	case SignalStart:
		body = make([]byte, 1+4+2)
		body[0] = byte(SignalStart)
		binary.BigEndian.PutUint32(body[1:5], sig.ID)
		binary.BigEndian.PutUint16(body[5:7], sig.Port)
	case SignalStop:
		body = make([]byte, 1+4)
		body[0] = byte(SignalStop)
		binary.BigEndian.PutUint32(body[1:5], sig.ID)
	default:
		body = []byte{byte(sig.Kind)}
	}

	out := make([]byte, signalLengthPrefixSize+len(body))
	binary.BigEndian.PutUint16(out, uint16(len(out)))
	copy(out[signalLengthPrefixSize:], body)
	return out
}

// DecodeSignal extracts one Signal frame from the front of buf.
//
// It returns (0, Signal{}, false) when buf does not yet hold a complete
// length prefix or a complete frame — the caller must accumulate more bytes
// and retry; it has not consumed anything.
//
// Once a complete frame is present, DecodeSignal always returns the
// declared frame length as consumed, even when the tagged payload itself is
// malformed (unknown kind tag, truncated fields). A malformed frame is still
// fully consumed so the caller advances past it on the next call instead of
// retrying the same bytes forever.
func DecodeSignal(buf []byte) (consumed int, sig Signal, ok bool) {
	if len(buf) < signalLengthPrefixSize {
		return 0, Signal{}, false
	}
	length := int(binary.BigEndian.Uint16(buf[:signalLengthPrefixSize]))
	if length < signalLengthPrefixSize || length > maxSignalFrameLen {
		// A length prefix that can never be satisfied (too small to even
		// contain itself). Treat the prefix itself as the malformed unit so
		// the caller still advances.
		return signalLengthPrefixSize, Signal{}, false
	}
	if len(buf) < length {
		return 0, Signal{}, false
	}

	body := buf[signalLengthPrefixSize:length]
	sig, parsed := decodeBody(body)
	return length, sig, parsed
}

func decodeBody(body []byte) (Signal, bool) {
	if len(body) < 1 {
		return Signal{}, false
	}
	switch SignalKind(body[0]) {
	case SignalStart:
		if len(body) != 1+4+2 {
			return Signal{}, false
		}
		return Signal{
			Kind: SignalStart,
			ID:   binary.BigEndian.Uint32(body[1:5]),
			Port: binary.BigEndian.Uint16(body[5:7]),
		}, true
	case SignalStop:
		if len(body) != 1+4 {
			return Signal{}, false
		}
		return Signal{Kind: SignalStop, ID: binary.BigEndian.Uint32(body[1:5])}, true
	default:
		return Signal{}, false
	}
}

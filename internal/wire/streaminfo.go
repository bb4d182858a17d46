package wire

import (
	"encoding/binary"
	"fmt"
)

// SocketKind distinguishes the two roles a reliable-unicast connection can
// announce itself as when it connects to the rendezvous.
type SocketKind uint8

const (
	// Publisher announces a sender registering channel Port as its
	// multicast port.
	Publisher SocketKind = 1
	// Subscriber announces a receiver; its Port is never set.
	Subscriber SocketKind = 2
)

// StreamInfo is the short, self-contained identifier a reliable-unicast
// connection carries at connect time so the rendezvous can tell publishers
// from subscribers without a separate handshake round-trip.
type StreamInfo struct {
	ID   uint32
	Kind SocketKind
	Port *uint16 // set only for Kind == Publisher
}

// Encode renders info as the compact byte string carried in the reliable
// transport's connect-time stream-identifier field.
func (info StreamInfo) Encode() []byte {
	if info.Kind == Publisher {
		port := uint16(0)
		if info.Port != nil {
			port = *info.Port
		}
		out := make([]byte, 1+4+2)
		out[0] = byte(Publisher)
		binary.BigEndian.PutUint32(out[1:5], info.ID)
		binary.BigEndian.PutUint16(out[5:7], port)
		return out
	}
	out := make([]byte, 1+4)
	out[0] = byte(Subscriber)
	binary.BigEndian.PutUint32(out[1:5], info.ID)
	return out
}

// DecodeStreamInfo parses the bytes produced by StreamInfo.Encode.
func DecodeStreamInfo(buf []byte) (StreamInfo, error) {
	if len(buf) < 1 {
		return StreamInfo{}, fmt.Errorf("wire: empty stream-id annotation")
	}
	switch SocketKind(buf[0]) {
	case Publisher:
		if len(buf) != 1+4+2 {
			return StreamInfo{}, fmt.Errorf("wire: publisher stream-id annotation has wrong length %d", len(buf))
		}
		port := binary.BigEndian.Uint16(buf[5:7])
		return StreamInfo{ID: binary.BigEndian.Uint32(buf[1:5]), Kind: Publisher, Port: &port}, nil
	case Subscriber:
		if len(buf) != 1+4 {
			return StreamInfo{}, fmt.Errorf("wire: subscriber stream-id annotation has wrong length %d", len(buf))
		}
		return StreamInfo{ID: binary.BigEndian.Uint32(buf[1:5]), Kind: Subscriber}, nil
	default:
		return StreamInfo{}, fmt.Errorf("wire: unknown stream-id annotation kind %d", buf[0])
	}
}

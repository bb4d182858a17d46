package reliable

import (
	"encoding/binary"
	"fmt"
	"io"
)

// chunkLengthPrefixSize is the length prefix wrapping every chunk written
// to a reliable stream, needed because a byte stream alone doesn't
// preserve write boundaries the way a QUIC datagram or UDP packet would.
const chunkLengthPrefixSize = 4

// maxChunkSize guards against a corrupt or hostile length prefix causing an
// unbounded allocation.
const maxChunkSize = 1 << 20

func writeFramed(w io.Writer, payload []byte) error {
	prefix := make([]byte, chunkLengthPrefixSize)
	binary.BigEndian.PutUint32(prefix, uint32(len(payload)))
	if _, err := w.Write(prefix); err != nil {
		return fmt.Errorf("reliable: write length prefix: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("reliable: write chunk: %w", err)
	}
	return nil
}

func readFramed(r io.Reader) ([]byte, error) {
	prefix := make([]byte, chunkLengthPrefixSize)
	if _, err := io.ReadFull(r, prefix); err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint32(prefix)
	if length > maxChunkSize {
		return nil, fmt.Errorf("reliable: chunk length %d exceeds maximum %d", length, maxChunkSize)
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("reliable: read chunk body: %w", err)
	}
	return buf, nil
}

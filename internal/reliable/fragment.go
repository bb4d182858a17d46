// Package reliable wraps a QUIC session as the reliable-unicast transport:
// latency-bounded, retransmitting, MTU-aware point-to-point delivery,
// carrying a short connect-time identifier string. QUIC's ordered,
// retransmitting stream is the idiomatic Go stand-in for the protocol the
// distilled design leaves as an external collaborator.
package reliable

import (
	"encoding/binary"
	"fmt"
)

// fragmentHeaderSize is the per-chunk header: sequence (u32 BE), total
// chunk count (u16 BE), chunk index (u16 BE).
const fragmentHeaderSize = 4 + 2 + 2

// Fragment splits one framed payload into mtu-sized chunks tagged with a
// caller-supplied monotonic sequence number, one chunk per physical send on
// the reliable socket. mtu must exceed fragmentHeaderSize.
func Fragment(seq uint32, payload []byte, mtu int) ([][]byte, error) {
	payloadPer := mtu - fragmentHeaderSize
	if payloadPer <= 0 {
		return nil, fmt.Errorf("reliable: mtu %d too small for fragment header", mtu)
	}

	total := (len(payload) + payloadPer - 1) / payloadPer
	if total == 0 {
		total = 1 // always emit at least one chunk, even for an empty payload
	}
	if total > 0xFFFF {
		return nil, fmt.Errorf("reliable: payload of %d bytes needs %d chunks, exceeds u16 index space", len(payload), total)
	}

	chunks := make([][]byte, 0, total)
	for i := 0; i < total; i++ {
		start := i * payloadPer
		end := start + payloadPer
		if end > len(payload) {
			end = len(payload)
		}
		chunk := make([]byte, fragmentHeaderSize+(end-start))
		binary.BigEndian.PutUint32(chunk[0:4], seq)
		binary.BigEndian.PutUint16(chunk[4:6], uint16(total))
		binary.BigEndian.PutUint16(chunk[6:8], uint16(i))
		copy(chunk[fragmentHeaderSize:], payload[start:end])
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

// Reassembler accumulates chunks belonging to one sequence group at a time.
// It assumes the underlying transport delivers bytes in order within a
// stream (true for a QUIC stream), so chunks for a given sequence always
// arrive contiguously and in index order; it does not reorder.
type Reassembler struct {
	seq     uint32
	total   int
	have    int
	buf     []byte
	started bool
}

// NewReassembler returns an empty reassembler.
func NewReassembler() *Reassembler {
	return &Reassembler{}
}

// Feed consumes one chunk. It returns (sequence, payload, true) once every
// chunk of that sequence's group has arrived, and (0, nil, false)
// otherwise. An error indicates a chunk shorter than the header or a chunk
// whose index is not the next one expected for its sequence. A chunk whose
// sequence differs from the group in progress abandons that group and
// starts a new one.
func (r *Reassembler) Feed(chunk []byte) (uint32, []byte, bool, error) {
	if len(chunk) < fragmentHeaderSize {
		return 0, nil, false, fmt.Errorf("reliable: chunk shorter than header (%d bytes)", len(chunk))
	}
	seq := binary.BigEndian.Uint32(chunk[0:4])
	total := int(binary.BigEndian.Uint16(chunk[4:6]))
	index := int(binary.BigEndian.Uint16(chunk[6:8]))
	body := chunk[fragmentHeaderSize:]

	if !r.started {
		r.started = true
		r.seq = seq
		r.total = total
		r.buf = nil
	} else if seq != r.seq {
		// A new sequence arriving mid-group means the previous group was
		// abandoned (e.g. the sender's side skipped ahead); start fresh
		// rather than mixing bytes from two frames.
		r.seq = seq
		r.total = total
		r.buf = nil
		r.have = 0
	}
	if index != r.have {
		return 0, nil, false, fmt.Errorf("reliable: chunk index %d out of order for sequence %d (expected %d)", index, seq, r.have)
	}

	r.buf = append(r.buf, body...)
	r.have++

	if r.have < r.total {
		return 0, nil, false, nil
	}

	out := r.buf
	outSeq := r.seq
	r.buf = nil
	r.have = 0
	r.started = false
	return outSeq, out, true, nil
}

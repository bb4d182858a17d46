package reliable

import "testing"

func TestFragmentReassembleRoundTrip(t *testing.T) {
	payload := make([]byte, 1000)
	for i := range payload {
		payload[i] = byte(i)
	}

	chunks, err := Fragment(5, payload, 64)
	if err != nil {
		t.Fatalf("Fragment: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks for a 1000-byte payload at mtu 64, got %d", len(chunks))
	}

	r := NewReassembler()
	var seq uint32
	var out []byte
	var done bool
	for i, chunk := range chunks {
		seq, out, done, err = r.Feed(chunk)
		if err != nil {
			t.Fatalf("Feed(chunk %d): %v", i, err)
		}
		if i < len(chunks)-1 && done {
			t.Fatalf("Feed(chunk %d) reported done before the last chunk", i)
		}
	}
	if !done {
		t.Fatal("Feed() on final chunk did not report done")
	}
	if seq != 5 {
		t.Fatalf("seq = %d, want 5", seq)
	}
	if string(out) != string(payload) {
		t.Fatalf("reassembled payload does not match original")
	}
}

func TestFragmentSingleChunk(t *testing.T) {
	payload := []byte("short")
	chunks, err := Fragment(1, payload, 512)
	if err != nil {
		t.Fatalf("Fragment: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("len(chunks) = %d, want 1", len(chunks))
	}

	r := NewReassembler()
	seq, out, done, err := r.Feed(chunks[0])
	if err != nil || !done {
		t.Fatalf("Feed() err=%v done=%v, want nil/true", err, done)
	}
	if seq != 1 || string(out) != string(payload) {
		t.Fatalf("seq=%d out=%q, want seq=1 out=%q", seq, out, payload)
	}
}

func TestFragmentEmptyPayloadStillEmitsOneChunk(t *testing.T) {
	chunks, err := Fragment(0, nil, 512)
	if err != nil {
		t.Fatalf("Fragment: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("len(chunks) = %d, want 1", len(chunks))
	}

	r := NewReassembler()
	_, out, done, err := r.Feed(chunks[0])
	if err != nil || !done {
		t.Fatalf("Feed() err=%v done=%v, want nil/true", err, done)
	}
	if len(out) != 0 {
		t.Fatalf("out = %v, want empty", out)
	}
}

func TestReassemblerRejectsOutOfOrderIndex(t *testing.T) {
	chunks, err := Fragment(2, make([]byte, 200), 64)
	if err != nil {
		t.Fatalf("Fragment: %v", err)
	}
	if len(chunks) < 3 {
		t.Fatalf("need at least 3 chunks for this test, got %d", len(chunks))
	}

	r := NewReassembler()
	if _, _, _, err := r.Feed(chunks[0]); err != nil {
		t.Fatalf("first Feed should not error, got %v", err)
	}
	// chunks[0] put the group at index 1 next; skipping straight to the
	// last chunk's index is out of order.
	if _, _, _, err := r.Feed(chunks[len(chunks)-1]); err == nil {
		t.Fatal("expected an error feeding an out-of-order chunk index")
	}
}

func TestFragmentRejectsTooSmallMTU(t *testing.T) {
	if _, err := Fragment(0, []byte("x"), fragmentHeaderSize); err == nil {
		t.Fatal("expected an error when mtu leaves no room for payload")
	}
}

package multicast

import (
	"net"
	"testing"
	"time"
)

func TestSenderReceiverRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("binds real multicast sockets")
	}

	group := net.ParseIP("239.10.10.10")

	sender, err := NewSender(group, 1)
	if err != nil {
		t.Fatalf("NewSender: %v", err)
	}
	defer sender.Close()

	receiver, err := NewReceiver(group, sender.Port())
	if err != nil {
		t.Fatalf("NewReceiver: %v", err)
	}
	defer receiver.Close()

	time.Sleep(50 * time.Millisecond) // allow group membership to settle

	payload := []byte("framed-payload")
	if err := sender.Send(payload); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case d, ok := <-receiveOne(receiver):
		if !ok {
			t.Fatal("receiver closed before delivering a datagram")
		}
		if d.Sequence != 0 {
			t.Fatalf("Sequence = %d, want 0", d.Sequence)
		}
		if string(d.Payload) != string(payload) {
			t.Fatalf("Payload = %q, want %q", d.Payload, payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for multicast datagram")
	}
}

func receiveOne(r *Receiver) <-chan Datagram {
	ch := make(chan Datagram, 1)
	go func() {
		d, ok := r.Next()
		if ok {
			ch <- d
		}
		close(ch)
	}()
	return ch
}

func TestSequenceIncrementsPerSend(t *testing.T) {
	if testing.Short() {
		t.Skip("binds real multicast sockets")
	}

	group := net.ParseIP("239.10.10.11")
	sender, err := NewSender(group, 1)
	if err != nil {
		t.Fatalf("NewSender: %v", err)
	}
	defer sender.Close()

	receiver, err := NewReceiver(group, sender.Port())
	if err != nil {
		t.Fatalf("NewReceiver: %v", err)
	}
	defer receiver.Close()

	time.Sleep(50 * time.Millisecond)

	for i := 0; i < 3; i++ {
		if err := sender.Send([]byte{byte(i)}); err != nil {
			t.Fatalf("Send(%d): %v", i, err)
		}
	}

	for i := uint32(0); i < 3; i++ {
		d, ok := receiver.Next()
		if !ok {
			t.Fatalf("Next() closed early at i=%d", i)
		}
		if d.Sequence != i {
			t.Fatalf("Sequence = %d, want %d", d.Sequence, i)
		}
	}
}

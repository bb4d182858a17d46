package adapter

import (
	"testing"
	"time"
)

func TestFIFOOrdering(t *testing.T) {
	a := New(4)
	for i := 0; i < 4; i++ {
		if !a.Send(Item{Timestamp: uint64(i)}) {
			t.Fatalf("Send(%d) = false", i)
		}
	}
	for i := 0; i < 4; i++ {
		item, ok := a.Next()
		if !ok {
			t.Fatalf("Next() ok = false at i=%d", i)
		}
		if item.Timestamp != uint64(i) {
			t.Fatalf("Next() = %d, want %d", item.Timestamp, i)
		}
	}
}

func TestOverflowDropsOldest(t *testing.T) {
	a := New(2)
	a.Send(Item{Timestamp: 1})
	a.Send(Item{Timestamp: 2})
	a.Send(Item{Timestamp: 3}) // should drop Timestamp=1

	if got := a.Lost(); got != 1 {
		t.Fatalf("Lost() = %d, want 1", got)
	}
	item, ok := a.Next()
	if !ok || item.Timestamp != 2 {
		t.Fatalf("Next() = %+v, ok=%v, want Timestamp=2", item, ok)
	}
	item, ok = a.Next()
	if !ok || item.Timestamp != 3 {
		t.Fatalf("Next() = %+v, ok=%v, want Timestamp=3", item, ok)
	}
}

func TestLossPktIncrementsExplicitly(t *testing.T) {
	a := New(4)
	a.LossPkt()
	a.LossPkt()
	if got := a.Lost(); got != 2 {
		t.Fatalf("Lost() = %d, want 2", got)
	}
}

func TestCloseWakesBlockedNext(t *testing.T) {
	a := New(4)
	done := make(chan bool, 1)
	go func() {
		_, ok := a.Next()
		done <- ok
	}()

	time.Sleep(20 * time.Millisecond) // let the goroutine block in Next
	a.Close()

	select {
	case ok := <-done:
		if ok {
			t.Fatalf("Next() ok = true after Close on empty queue, want false")
		}
	case <-time.After(time.Second):
		t.Fatal("Next() did not wake up after Close")
	}
}

func TestCloseDrainsBeforeSignalingDone(t *testing.T) {
	a := New(4)
	a.Send(Item{Timestamp: 1})
	a.Close()

	item, ok := a.Next()
	if !ok || item.Timestamp != 1 {
		t.Fatalf("Next() = %+v, ok=%v, want the queued item first", item, ok)
	}
	if _, ok := a.Next(); ok {
		t.Fatal("Next() ok = true after drain on a closed adapter, want false")
	}
}

func TestSendAfterCloseIsRejected(t *testing.T) {
	a := New(4)
	a.Close()
	if a.Send(Item{Timestamp: 1}) {
		t.Fatal("Send() = true after Close, want false")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	a := New(4)
	a.Close()
	a.Close() // must not panic or double-close a channel/cond
	if !a.Closed() {
		t.Fatal("Closed() = false after Close")
	}
}

func TestMulticastToggle(t *testing.T) {
	a := New(4)
	if a.GetMulticast() {
		t.Fatal("GetMulticast() = true initially, want false")
	}
	a.SetMulticast(true)
	if !a.GetMulticast() {
		t.Fatal("GetMulticast() = false after SetMulticast(true)")
	}
	a.SetMulticast(false)
	if a.GetMulticast() {
		t.Fatal("GetMulticast() = true after SetMulticast(false)")
	}
}

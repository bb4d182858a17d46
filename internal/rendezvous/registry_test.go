package rendezvous

import "testing"

func TestStartThenSnapshot(t *testing.T) {
	r := NewRegistry()
	r.Start(7, 51000)
	r.Start(9, 51010)

	got := r.Snapshot()
	want := []Entry{{ID: 7, Port: 51000}, {ID: 9, Port: 51010}}
	if len(got) != len(want) {
		t.Fatalf("Snapshot() = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Snapshot()[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestStartReplacesExisting(t *testing.T) {
	r := NewRegistry()
	if _, replaced := r.Start(7, 51000); replaced {
		t.Fatal("first Start() replaced = true, want false")
	}
	if _, replaced := r.Start(7, 51001); !replaced {
		t.Fatal("second Start() replaced = false, want true")
	}
	got := r.Snapshot()
	if len(got) != 1 || got[0].Port != 51001 {
		t.Fatalf("Snapshot() = %+v, want single entry with port 51001", got)
	}
}

func TestStartReturnsDistinctTokensPerGeneration(t *testing.T) {
	r := NewRegistry()
	tokenA, _ := r.Start(7, 51000)
	tokenB, _ := r.Start(7, 51001)
	if tokenA == tokenB {
		t.Fatal("successive Start() calls for the same id returned the same token")
	}
}

func TestStopIfIgnoresStaleToken(t *testing.T) {
	r := NewRegistry()
	tokenA, _ := r.Start(7, 51000)
	tokenB, _ := r.Start(7, 51001) // replaces A while A's session is still draining

	if stopped := r.StopIf(7, tokenA); stopped {
		t.Fatal("StopIf() with a stale token stopped = true, want false")
	}
	got := r.Snapshot()
	if len(got) != 1 || got[0].Port != 51001 {
		t.Fatalf("Snapshot() = %+v, want B's registration (port 51001) untouched", got)
	}

	if stopped := r.StopIf(7, tokenB); !stopped {
		t.Fatal("StopIf() with the current token stopped = false, want true")
	}
	if got := r.Snapshot(); len(got) != 0 {
		t.Fatalf("Snapshot() = %+v, want empty after StopIf() with the current token", got)
	}
}

func TestStopRemovesEntry(t *testing.T) {
	r := NewRegistry()
	r.Start(7, 51000)
	if existed := r.Stop(7); !existed {
		t.Fatal("Stop() existed = false, want true")
	}
	if existed := r.Stop(7); existed {
		t.Fatal("second Stop() existed = true, want false")
	}
	if got := r.Snapshot(); len(got) != 0 {
		t.Fatalf("Snapshot() = %+v, want empty", got)
	}
}

func TestSubscribeReceivesChangesAfterSnapshot(t *testing.T) {
	r := NewRegistry()
	r.Start(1, 100)

	changes, cancel := r.Subscribe()
	defer cancel()

	snapshot := r.Snapshot()
	if len(snapshot) != 1 || snapshot[0].ID != 1 {
		t.Fatalf("Snapshot() = %+v, want [{1 100}]", snapshot)
	}

	r.Start(2, 200)
	change := <-changes
	if !change.Start || change.ID != 2 || change.Port != 200 {
		t.Fatalf("change = %+v, want Start{2,200}", change)
	}

	r.Stop(1)
	change = <-changes
	if change.Start || change.ID != 1 {
		t.Fatalf("change = %+v, want Stop{1}", change)
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	r := NewRegistry()
	changes, cancel := r.Subscribe()
	cancel()

	r.Start(1, 100) // must not block or panic once the subscriber is gone

	select {
	case _, ok := <-changes:
		if ok {
			t.Fatal("received a change on a cancelled subscription")
		}
	default:
	}
}

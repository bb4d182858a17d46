package status

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"mirrorcast/internal/rendezvous"
)

func TestHandleChannelsReturnsSnapshot(t *testing.T) {
	registry := rendezvous.NewRegistry()
	registry.Start(7, 51000)
	registry.Start(9, 51010)

	s := New(registry)

	req := httptest.NewRequest(http.MethodGet, "/channels", nil)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var got []channelView
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	want := []channelView{{ID: 7, Port: 51000}, {ID: 9, Port: 51010}}
	if len(got) != len(want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestHandleChannelsEmptyRegistry(t *testing.T) {
	s := New(rendezvous.NewRegistry())

	req := httptest.NewRequest(http.MethodGet, "/channels", nil)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "[]\n" && rec.Body.String() != "[]" {
		t.Fatalf("body = %q, want empty array", rec.Body.String())
	}
}

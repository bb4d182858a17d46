package wire

import "testing"

func TestStreamInfoRoundTripPublisher(t *testing.T) {
	port := uint16(51000)
	info := StreamInfo{ID: 7, Kind: Publisher, Port: &port}

	decoded, err := DecodeStreamInfo(info.Encode())
	if err != nil {
		t.Fatalf("DecodeStreamInfo: %v", err)
	}
	if decoded.ID != info.ID || decoded.Kind != info.Kind || decoded.Port == nil || *decoded.Port != port {
		t.Fatalf("decoded = %+v, want %+v", decoded, info)
	}
}

func TestStreamInfoRoundTripSubscriber(t *testing.T) {
	info := StreamInfo{ID: 9, Kind: Subscriber}

	decoded, err := DecodeStreamInfo(info.Encode())
	if err != nil {
		t.Fatalf("DecodeStreamInfo: %v", err)
	}
	if decoded.ID != info.ID || decoded.Kind != info.Kind || decoded.Port != nil {
		t.Fatalf("decoded = %+v, want %+v", decoded, info)
	}
}

func TestDecodeStreamInfoRejectsGarbage(t *testing.T) {
	if _, err := DecodeStreamInfo(nil); err == nil {
		t.Fatalf("DecodeStreamInfo(nil) err = nil, want error")
	}
	if _, err := DecodeStreamInfo([]byte{0xFF, 1, 2, 3, 4}); err == nil {
		t.Fatalf("DecodeStreamInfo(unknown kind) err = nil, want error")
	}
}

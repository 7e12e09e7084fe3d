package sse

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestEncodeFrameLayout(t *testing.T) {
	frame := string(encodeFrame("connected", []byte(`{"ok":true}`)))

	if frame != "event: connected\ndata: {\"ok\":true}\n\n" {
		t.Errorf("unexpected frame layout: %q", frame)
	}
	if !strings.HasSuffix(frame, "\n\n") {
		t.Error("frame must terminate with a blank line")
	}
}

func TestConnectedFrameCarriesEpochMillis(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	frame := string(connectedFrame(at))

	payload := strings.TrimSuffix(strings.SplitN(frame, "data: ", 2)[1], "\n\n")
	var p connectedPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if !p.OK {
		t.Error("expected ok:true")
	}
	if p.TS != at.UnixMilli() {
		t.Errorf("expected ts %d, got %d", at.UnixMilli(), p.TS)
	}
}

func TestUpdateFrameCarriesReason(t *testing.T) {
	at := time.Now()
	frame := string(updateFrame("visitor-checked-in", at))

	if !strings.HasPrefix(frame, "event: attendance-updated\n") {
		t.Errorf("expected attendance-updated event, got %q", frame)
	}

	payload := strings.TrimSuffix(strings.SplitN(frame, "data: ", 2)[1], "\n\n")
	var p updatePayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if p.Reason != "visitor-checked-in" {
		t.Errorf("expected reason to round-trip, got %q", p.Reason)
	}
}

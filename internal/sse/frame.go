package sse

import (
	"bytes"
	"encoding/json"
	"time"
)

// Event names pushed over the stream.
const (
	EventConnected         = "connected"
	EventAttendanceUpdated = "attendance-updated"
)

// keepAliveFrame is a comment-only frame. It carries no event or data fields,
// so parsers distinguish it from real events; its only purpose is defeating
// idle-timeout termination by intermediaries.
var keepAliveFrame = []byte(":keep-alive\n\n")

type connectedPayload struct {
	OK bool  `json:"ok"`
	TS int64 `json:"ts"`
}

type updatePayload struct {
	Reason string `json:"reason"`
	TS     int64  `json:"ts"`
}

// encodeFrame renders one event-stream frame:
//
//	event: <name>\n
//	data: <json>\n
//	\n
func encodeFrame(event string, data []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(len(event) + len(data) + 16)
	buf.WriteString("event: ")
	buf.WriteString(event)
	buf.WriteString("\ndata: ")
	buf.Write(data)
	buf.WriteString("\n\n")
	return buf.Bytes()
}

func connectedFrame(now time.Time) []byte {
	data, _ := json.Marshal(connectedPayload{OK: true, TS: now.UnixMilli()})
	return encodeFrame(EventConnected, data)
}

func updateFrame(reason string, now time.Time) []byte {
	data, _ := json.Marshal(updatePayload{Reason: reason, TS: now.UnixMilli()})
	return encodeFrame(EventAttendanceUpdated, data)
}

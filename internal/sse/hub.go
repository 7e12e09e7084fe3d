package sse

import (
	"sync"
	"time"
)

// Conn is a write-capable handle for one open streaming session. The hub
// tracks connections by slot id, never closes them, and forgets a connection
// the moment a write through it errors; closing the underlying transport is
// the caller's responsibility.
type Conn interface {
	Write(p []byte) error
}

// Result reports the outcome of one fan-out so callers and tests can assert
// on it without relying on the absence of errors.
type Result struct {
	// Delivered counts connections the event was written to successfully.
	Delivered int
	// Evicted counts connections removed because their write failed.
	Evicted int
	// Skipped is true when the fan-out was a no-op because the live set was
	// empty. Nothing is queued for connections that were not open.
	Skipped bool
}

// Hub fans attendance change events out to every open streaming connection.
// It is a change-signal bus, not a message store: events are ephemeral and a
// connection that was not open at emission time never receives them.
//
// Connections live in an arena of monotonically increasing slot ids, which
// keeps eviction auditable. All methods are safe for concurrent use.
type Hub struct {
	mu       sync.Mutex
	conns    map[uint64]Conn
	nextSlot uint64

	// now is a clock hook for tests.
	now func() time.Time
}

// NewHub allocates an empty hub.
func NewHub() *Hub {
	return &Hub{
		conns: make(map[uint64]Conn),
		now:   time.Now,
	}
}

// Register adds conn to the live set and immediately pushes a `connected`
// event to it. Registration itself never fails; if the initial push errors
// the connection is evicted on the spot, same as any other failed write.
// The returned function removes the connection from the set when invoked and
// is safe to call more than once.
func (h *Hub) Register(conn Conn) (uint64, func()) {
	h.mu.Lock()
	h.nextSlot++
	slot := h.nextSlot
	h.conns[slot] = conn
	now := h.now()
	h.mu.Unlock()

	if err := conn.Write(connectedFrame(now)); err != nil {
		h.evict(slot)
	}

	return slot, func() { h.evict(slot) }
}

// Broadcast serializes one attendance-updated event and writes it to every
// currently registered connection. An empty reason defaults to "updated".
// Connections whose write fails are evicted as part of this same call; the
// failure is the detection mechanism and never surfaces as an error here.
func (h *Hub) Broadcast(reason string) Result {
	if reason == "" {
		reason = "updated"
	}

	h.mu.Lock()
	if len(h.conns) == 0 {
		h.mu.Unlock()
		return Result{Skipped: true}
	}
	type slotConn struct {
		slot uint64
		conn Conn
	}
	targets := make([]slotConn, 0, len(h.conns))
	for slot, conn := range h.conns {
		targets = append(targets, slotConn{slot, conn})
	}
	frame := updateFrame(reason, h.now())
	h.mu.Unlock()

	// Writes happen outside the lock so a stalled connection never blocks
	// registration or unregistration.
	var res Result
	var dead []uint64
	for _, t := range targets {
		if err := t.conn.Write(frame); err != nil {
			dead = append(dead, t.slot)
			continue
		}
		res.Delivered++
	}

	for _, slot := range dead {
		if h.evict(slot) {
			res.Evicted++
		}
	}
	return res
}

// KeepAlive writes a comment-only frame to exactly one connection. It reports
// whether the connection is still registered afterwards; on write failure the
// connection is evicted, same as in Broadcast.
func (h *Hub) KeepAlive(slot uint64) bool {
	h.mu.Lock()
	conn, ok := h.conns[slot]
	h.mu.Unlock()
	if !ok {
		return false
	}

	if err := conn.Write(keepAliveFrame); err != nil {
		h.evict(slot)
		return false
	}
	return true
}

// Len reports the number of live connections.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// evict forgets a slot. Reports whether the slot was still registered.
func (h *Hub) evict(slot uint64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[slot]; !ok {
		return false
	}
	delete(h.conns, slot)
	return true
}

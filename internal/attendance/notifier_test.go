package attendance

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gatehouse-app/backend/internal/events"
	"github.com/gatehouse-app/backend/internal/notifications"
	"github.com/gatehouse-app/backend/internal/sse"
)

type recordingConn struct {
	mu     sync.Mutex
	frames []string
}

func (c *recordingConn) Write(p []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, string(p))
	return nil
}

func (c *recordingConn) all() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strings.Join(c.frames, "")
}

func newTestNotifier(t *testing.T) (*Notifier, *notifications.Store, *recordingConn) {
	t.Helper()

	broker := events.NewInMemoryBroker()
	t.Cleanup(func() { broker.Close() })

	store := notifications.NewStore(notifications.NewMemoryBlobStore(), broker)
	hub := sse.NewHub()

	conn := &recordingConn{}
	_, unregister := hub.Register(conn)
	t.Cleanup(unregister)

	return NewNotifier(hub, store, nil, broker), store, conn
}

func TestCheckedInBroadcastsAndNotifiesHost(t *testing.T) {
	notifier, store, conn := newTestNotifier(t)

	rec := &Record{
		ID:          "att-1",
		VisitorID:   "vis-1",
		VisitorName: "Ada Lovelace",
		HostUserID:  "host-1",
		CheckInAt:   time.Now(),
	}
	if err := notifier.CheckedIn(context.Background(), rec); err != nil {
		t.Fatalf("CheckedIn: %v", err)
	}

	if got := conn.all(); !strings.Contains(got, "event: attendance-updated") ||
		!strings.Contains(got, "visitor-checked-in") {
		t.Fatalf("stream missed the broadcast, got %q", got)
	}

	list, err := store.ListFor(context.Background(), "host-1")
	if err != nil {
		t.Fatalf("ListFor: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 notification for the host, got %d", len(list))
	}
	n := list[0]
	if n.Type != notifications.TypeStatusUpdate {
		t.Errorf("type = %q, want %q", n.Type, notifications.TypeStatusUpdate)
	}
	if !strings.Contains(n.Body, "Ada Lovelace") {
		t.Errorf("body %q does not name the visitor", n.Body)
	}
	if !n.Unread() {
		t.Error("fresh notification should be unread")
	}
}

func TestCheckedOutUsesNoteType(t *testing.T) {
	notifier, store, conn := newTestNotifier(t)

	out := time.Now()
	rec := &Record{
		ID:          "att-2",
		VisitorID:   "vis-2",
		VisitorName: "Grace Hopper",
		HostUserID:  "host-2",
		CheckInAt:   out.Add(-time.Hour),
		CheckOutAt:  &out,
	}
	if err := notifier.CheckedOut(context.Background(), rec); err != nil {
		t.Fatalf("CheckedOut: %v", err)
	}

	if got := conn.all(); !strings.Contains(got, "visitor-checked-out") {
		t.Fatalf("stream missed the check-out broadcast, got %q", got)
	}

	list, err := store.ListFor(context.Background(), "host-2")
	if err != nil {
		t.Fatalf("ListFor: %v", err)
	}
	if len(list) != 1 || list[0].Type != notifications.TypeNote {
		t.Fatalf("expected one note-type notification, got %+v", list)
	}
}

func TestNotifierSurvivesEmptyHub(t *testing.T) {
	broker := events.NewInMemoryBroker()
	defer broker.Close()

	store := notifications.NewStore(notifications.NewMemoryBlobStore(), broker)
	notifier := NewNotifier(sse.NewHub(), store, nil, broker)

	rec := &Record{ID: "att-3", VisitorID: "vis-3", VisitorName: "Alan", HostUserID: "host-3", CheckInAt: time.Now()}
	if err := notifier.CheckedIn(context.Background(), rec); err != nil {
		t.Fatalf("CheckedIn with no listeners: %v", err)
	}
}

func TestAttendanceSignalReachesRemoteHub(t *testing.T) {
	broker := events.NewInMemoryBroker()
	t.Cleanup(func() { broker.Close() })

	originStore := notifications.NewStore(notifications.NewMemoryBlobStore(), nil)
	remoteStore := notifications.NewStore(notifications.NewMemoryBlobStore(), nil)

	originHub := sse.NewHub()
	remoteHub := sse.NewHub()

	originConn := &recordingConn{}
	_, unregOrigin := originHub.Register(originConn)
	t.Cleanup(unregOrigin)

	remoteConn := &recordingConn{}
	_, unregRemote := remoteHub.Register(remoteConn)
	t.Cleanup(unregRemote)

	origin := NewNotifier(originHub, originStore, nil, broker)
	remote := NewNotifier(remoteHub, remoteStore, nil, broker)

	detachOrigin, err := origin.Listen()
	if err != nil {
		t.Fatalf("origin Listen: %v", err)
	}
	t.Cleanup(detachOrigin)

	detachRemote, err := remote.Listen()
	if err != nil {
		t.Fatalf("remote Listen: %v", err)
	}
	t.Cleanup(detachRemote)

	rec := &Record{ID: "att-4", VisitorID: "vis-4", VisitorName: "Ada", HostUserID: "host-4", CheckInAt: time.Now()}
	if err := origin.CheckedIn(context.Background(), rec); err != nil {
		t.Fatalf("CheckedIn: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(remoteConn.all(), "visitor-checked-in") {
		if time.Now().After(deadline) {
			t.Fatalf("remote hub never heard the check-in, got %q", remoteConn.all())
		}
		time.Sleep(5 * time.Millisecond)
	}

	// The publishing node already broadcast directly; its own signal coming
	// back around must not produce a second frame.
	time.Sleep(50 * time.Millisecond)
	if got := strings.Count(originConn.all(), "visitor-checked-in"); got != 1 {
		t.Fatalf("origin hub saw %d check-in frames, want 1", got)
	}
}

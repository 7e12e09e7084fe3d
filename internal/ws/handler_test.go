package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/gatehouse-app/backend/internal/auth"
	"github.com/gatehouse-app/backend/internal/sse"
)

func TestOriginChecker(t *testing.T) {
	check := OriginChecker([]string{"http://localhost:3000", " https://gatehouse.example "})

	cases := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"http://localhost:3000", true},
		{"HTTP://LOCALHOST:3000", true},
		{"https://gatehouse.example", true},
		{"https://evil.example", false},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, "/ws/events", nil)
		if tc.origin != "" {
			r.Header.Set("Origin", tc.origin)
		}
		if got := check(r); got != tc.want {
			t.Errorf("origin %q: got %v, want %v", tc.origin, got, tc.want)
		}
	}
}

func TestServeWSRequiresToken(t *testing.T) {
	hub := sse.NewHub()
	h := NewHandler(hub, auth.NewJWTService("test-secret", 0, 0), time.Minute, nil)

	r := mux.NewRouter()
	h.RegisterRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws/events", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestServeWSDeliversBroadcasts(t *testing.T) {
	hub := sse.NewHub()
	jwtService := auth.NewJWTService("test-secret", 0, 0)
	h := NewHandler(hub, jwtService, time.Minute, nil)

	r := mux.NewRouter()
	h.RegisterRoutes(r)
	srv := httptest.NewServer(r)
	defer srv.Close()

	token, err := jwtService.GenerateToken("user-1", "staff@example.com")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/events?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, first, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read connected frame: %v", err)
	}
	if !strings.Contains(string(first), "event: connected") {
		t.Fatalf("first frame = %q, want connected event", first)
	}

	// The dial above registered asynchronously from this goroutine's view;
	// having read the connected frame we know the slot is live.
	if res := hub.Broadcast("visitor-checked-in"); res.Delivered != 1 {
		t.Fatalf("broadcast delivered %d, want 1", res.Delivered)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, frame, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read broadcast frame: %v", err)
	}
	if !strings.Contains(string(frame), "event: attendance-updated") ||
		!strings.Contains(string(frame), "visitor-checked-in") {
		t.Fatalf("broadcast frame = %q", frame)
	}
}

func TestServeWSUnregistersOnClose(t *testing.T) {
	hub := sse.NewHub()
	jwtService := auth.NewJWTService("test-secret", 0, 0)
	h := NewHandler(hub, jwtService, time.Minute, nil)

	r := mux.NewRouter()
	h.RegisterRoutes(r)
	srv := httptest.NewServer(r)
	defer srv.Close()

	token, _ := jwtService.GenerateToken("user-1", "staff@example.com")
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/events?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err != nil {
		t.Fatalf("read connected frame: %v", err)
	}
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("hub still holds %d connections after client close", hub.Len())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

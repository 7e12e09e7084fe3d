package notifications

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"github.com/gatehouse-app/backend/internal/auth"
)

func newTestRouter(s *Store) *mux.Router {
	r := mux.NewRouter()
	NewHandlers(s, nil).RegisterRoutes(r)
	return r
}

func authedRequest(method, target, body, userID string) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if userID != "" {
		claims := &auth.Claims{UserID: userID}
		req = req.WithContext(auth.ContextWithClaims(context.Background(), claims))
	}
	return req
}

func TestListRequiresAuth(t *testing.T) {
	router := newTestRouter(newTestStore())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest("GET", "/api/notifications", "", ""))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestCreateAndListRoundTrip(t *testing.T) {
	router := newTestRouter(newTestStore())

	body := `{"to_user_id":"u1","type":"task-assigned","title":"Escort visitor","body":"Meeting room 2"}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest("POST", "/api/notifications", body, "reception"))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var created struct {
		Notification Notification    `json:"notification"`
		Announce     AnnounceOutcome `json:"announce"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if created.Notification.ReadAt != nil {
		t.Error("expected new notification unread")
	}
	if created.Announce != AnnounceSkipped {
		t.Errorf("expected announce skipped in broker-less store, got %s", created.Announce)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest("GET", "/api/notifications", "", "u1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var listed struct {
		Notifications []Notification `json:"notifications"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if len(listed.Notifications) != 1 || listed.Notifications[0].ID != created.Notification.ID {
		t.Errorf("expected the created notification, got %+v", listed.Notifications)
	}
}

func TestCreateRejectsUnknownType(t *testing.T) {
	router := newTestRouter(newTestStore())

	body := `{"to_user_id":"u1","type":"carrier-pigeon","title":"x"}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest("POST", "/api/notifications", body, "reception"))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestCreateRejectsMissingRecipient(t *testing.T) {
	router := newTestRouter(newTestStore())

	body := `{"type":"note","title":"x"}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest("POST", "/api/notifications", body, "reception"))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestMarkReadEndpoint(t *testing.T) {
	s := newTestStore()
	router := newTestRouter(s)
	ctx := context.Background()

	n, _, _ := s.Create(ctx, CreateInput{ToUserID: "u1", Type: TypeNote, Title: "x"})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest("PUT", "/api/notifications/"+n.ID+"/read", "", "u1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	list, _ := s.ListFor(ctx, "u1")
	if list[0].ReadAt == nil {
		t.Error("expected notification to be marked read")
	}
}

func TestUnreadCountEndpoint(t *testing.T) {
	s := newTestStore()
	router := newTestRouter(s)
	ctx := context.Background()

	s.Create(ctx, CreateInput{ToUserID: "u1", Type: TypeNote, Title: "a"})
	s.Create(ctx, CreateInput{ToUserID: "u1", Type: TypeNote, Title: "b"})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest("GET", "/api/notifications/unread-count", "", "u1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		UnreadCount int `json:"unread_count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if resp.UnreadCount != 2 {
		t.Errorf("expected 2 unread, got %d", resp.UnreadCount)
	}
}

func TestClearAllEndpoint(t *testing.T) {
	s := newTestStore()
	router := newTestRouter(s)
	ctx := context.Background()

	s.Create(ctx, CreateInput{ToUserID: "u1", Type: TypeNote, Title: "a"})
	s.Create(ctx, CreateInput{ToUserID: "u2", Type: TypeNote, Title: "b"})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest("DELETE", "/api/notifications", "", "u1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	u1, _ := s.ListFor(ctx, "u1")
	u2, _ := s.ListFor(ctx, "u2")
	if len(u1) != 0 {
		t.Errorf("expected u1 cleared, got %d", len(u1))
	}
	if len(u2) != 1 {
		t.Errorf("expected u2 untouched, got %d", len(u2))
	}
}

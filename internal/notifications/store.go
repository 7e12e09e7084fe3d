package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gatehouse-app/backend/internal/events"
)

// AnnounceOutcome reports what happened to the best-effort announcement of a
// newly created notification. The durable write has already succeeded by the
// time any of these is returned; a failed announcement costs latency for
// other consumers, never data.
type AnnounceOutcome string

const (
	// AnnounceDelivered means the announcement was handed to the broker.
	AnnounceDelivered AnnounceOutcome = "delivered"
	// AnnounceSkipped means no broker is configured.
	AnnounceSkipped AnnounceOutcome = "skipped"
	// AnnounceFailed means the broker rejected the publish; the failure is
	// swallowed here.
	AnnounceFailed AnnounceOutcome = "failed"
)

// maxSaveAttempts bounds the re-read/re-apply loop when concurrent writers
// collide on the log's version stamp.
const maxSaveAttempts = 5

// Store is the durable, per-recipient notification log. The persisted blob
// is always the source of truth; broker announcements and the version
// watcher only exist so other processes learn of new records sooner than
// their next read.
type Store struct {
	blobs  BlobStore
	broker events.Broker

	// clock and id hooks for tests
	now   func() time.Time
	newID func() string

	// pollInterval drives the fallback watcher that detects log changes when
	// broker announcements are unavailable or lost.
	pollInterval time.Duration

	subsMu sync.Mutex
	subs   map[*subscriptionState]struct{}
}

// NewStore creates a Store over the given blob persistence. broker may be
// nil, in which case announcements are skipped and subscribers rely entirely
// on the fallback watcher.
func NewStore(blobs BlobStore, broker events.Broker) *Store {
	return &Store{
		blobs:        blobs,
		broker:       broker,
		now:          time.Now,
		newID:        func() string { return uuid.New().String() },
		pollInterval: 2 * time.Second,
		subs:         make(map[*subscriptionState]struct{}),
	}
}

// load reads and decodes the whole log. A missing key or a blob that does
// not decode is an empty log, not an error; the loaded version is kept so a
// later save replaces the garbage.
func (s *Store) load(ctx context.Context) ([]Notification, int64, error) {
	data, version, err := s.blobs.Load(ctx)
	if errors.Is(err, ErrNotFound) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}

	var list []Notification
	if err := json.Unmarshal(data, &list); err != nil {
		log.Printf("notifications: malformed log at version %d, treating as empty", version)
		return nil, version, nil
	}
	return list, version, nil
}

// update applies mutate to a freshly loaded log and saves the result,
// re-reading and re-applying on version conflicts. mutate reports whether it
// changed anything; unchanged logs are not written back.
func (s *Store) update(ctx context.Context, mutate func([]Notification) ([]Notification, bool)) error {
	for attempt := 0; attempt < maxSaveAttempts; attempt++ {
		list, version, err := s.load(ctx)
		if err != nil {
			return err
		}

		next, changed := mutate(list)
		if !changed {
			return nil
		}

		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("encode notification log: %w", err)
		}

		if _, err := s.blobs.Save(ctx, data, version); err != nil {
			if errors.Is(err, ErrVersionConflict) {
				continue
			}
			return err
		}
		return nil
	}
	return fmt.Errorf("notification log contended: gave up after %d attempts", maxSaveAttempts)
}

// ListFor returns every notification addressed to userID, newest first.
// A user with none, or a store without persisted state, yields an empty
// slice rather than an error.
func (s *Store) ListFor(ctx context.Context, userID string) ([]Notification, error) {
	list, _, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Notification, 0)
	for _, n := range list {
		if n.ToUserID == userID {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// UnreadCountFor returns the number of unread notifications for userID.
func (s *Store) UnreadCountFor(ctx context.Context, userID string) (int, error) {
	list, _, err := s.load(ctx)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, n := range list {
		if n.ToUserID == userID && n.Unread() {
			count++
		}
	}
	return count, nil
}

// Create appends a new notification to the log and announces it to sibling
// processes. The record is durable once Create returns without error; the
// announce outcome is informational only.
func (s *Store) Create(ctx context.Context, input CreateInput) (Notification, AnnounceOutcome, error) {
	n := Notification{
		ID:        s.newID(),
		ToUserID:  input.ToUserID,
		Type:      input.Type,
		Title:     input.Title,
		Body:      input.Body,
		Link:      input.Link,
		CreatedAt: s.now().UTC(),
	}

	err := s.update(ctx, func(list []Notification) ([]Notification, bool) {
		return append([]Notification{n}, list...), true
	})
	if err != nil {
		return Notification{}, AnnounceSkipped, err
	}

	// Local subscribers must not hear our own announcement echoed back, the
	// same way a tab does not receive its own broadcast message.
	s.subsMu.Lock()
	for st := range s.subs {
		st.markSeen(n.ID)
	}
	s.subsMu.Unlock()

	return n, s.announce(n), nil
}

func (s *Store) announce(n Notification) AnnounceOutcome {
	if s.broker == nil {
		return AnnounceSkipped
	}

	payload, err := json.Marshal(announcement{Type: "created", Notification: n})
	if err != nil {
		return AnnounceFailed
	}
	if err := s.broker.Publish(events.TopicNotificationCreated, payload); err != nil {
		log.Printf("notifications: announce failed (durable write already succeeded): %v", err)
		return AnnounceFailed
	}
	return AnnounceDelivered
}

// MarkRead stamps the notification with the current instant. An unknown id
// or an already-read record is a no-op; read state never transitions back.
func (s *Store) MarkRead(ctx context.Context, id string) error {
	readAt := s.now().UTC()
	return s.update(ctx, func(list []Notification) ([]Notification, bool) {
		for i := range list {
			if list[i].ID != id {
				continue
			}
			if list[i].ReadAt != nil {
				return list, false
			}
			list[i].ReadAt = &readAt
			return list, true
		}
		return list, false
	})
}

// MarkAllReadFor stamps every unread notification of userID. Already-read
// records keep their original ReadAt; nothing is written when no record
// changed.
func (s *Store) MarkAllReadFor(ctx context.Context, userID string) error {
	readAt := s.now().UTC()
	return s.update(ctx, func(list []Notification) ([]Notification, bool) {
		changed := false
		for i := range list {
			if list[i].ToUserID == userID && list[i].ReadAt == nil {
				list[i].ReadAt = &readAt
				changed = true
			}
		}
		return list, changed
	})
}

// ClearAllFor removes all and only the records addressed to userID.
func (s *Store) ClearAllFor(ctx context.Context, userID string) error {
	return s.update(ctx, func(list []Notification) ([]Notification, bool) {
		kept := list[:0]
		removed := false
		for _, n := range list {
			if n.ToUserID == userID {
				removed = true
				continue
			}
			kept = append(kept, n)
		}
		return kept, removed
	})
}

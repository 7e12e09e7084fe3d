package notifications

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gatehouse-app/backend/internal/events"
)

// subscriptionState tracks one subscriber. The seen set dedupes between the
// broker path and the fallback watcher, and suppresses echoes of records
// this process created itself.
type subscriptionState struct {
	mu        sync.Mutex
	seen      map[string]struct{}
	stopped   bool
	onMessage func(Notification)
}

func (st *subscriptionState) deliver(n Notification) {
	st.mu.Lock()
	if st.stopped {
		st.mu.Unlock()
		return
	}
	if _, ok := st.seen[n.ID]; ok {
		st.mu.Unlock()
		return
	}
	st.seen[n.ID] = struct{}{}
	st.mu.Unlock()

	st.onMessage(n)
}

func (st *subscriptionState) markSeen(id string) {
	st.mu.Lock()
	st.seen[id] = struct{}{}
	st.mu.Unlock()
}

func (st *subscriptionState) stop() {
	st.mu.Lock()
	st.stopped = true
	st.mu.Unlock()
}

// Subscribe invokes onMessage for every notification created by another
// process sharing this log. Two paths feed it: broker announcements (fast,
// best-effort) and a watcher that polls the log's version stamp, re-reads on
// change and diffs against the last-seen snapshot — so losing broker
// messages only costs latency, never a missed record. The returned function
// detaches both paths and is safe to call more than once.
func (s *Store) Subscribe(onMessage func(Notification)) func() {
	st := &subscriptionState{
		seen:      make(map[string]struct{}),
		onMessage: onMessage,
	}

	// Baseline: records already in the log are not "new" for this
	// subscriber. If the snapshot fails, the watcher takes it on its first
	// successful read instead of replaying history.
	ctx := context.Background()
	list, version, err := s.load(ctx)
	baselined := err == nil
	if baselined {
		for _, n := range list {
			st.seen[n.ID] = struct{}{}
		}
	}

	s.subsMu.Lock()
	s.subs[st] = struct{}{}
	s.subsMu.Unlock()

	var brokerSubID string
	if s.broker != nil {
		// Announcement failures and foreign shapes are both ignored; the
		// watcher below catches anything the broker path misses.
		brokerSubID, _ = s.broker.Subscribe(events.TopicNotificationCreated, func(topic string, payload []byte) {
			var a announcement
			if err := json.Unmarshal(payload, &a); err != nil {
				return
			}
			if a.Type != "created" || a.Notification.ID == "" {
				return
			}
			st.deliver(a.Notification)
		})
	}

	stopCh := make(chan struct{})
	go s.watch(st, version, baselined, stopCh)

	var once sync.Once
	return func() {
		once.Do(func() {
			st.stop()
			close(stopCh)
			if s.broker != nil && brokerSubID != "" {
				s.broker.Unsubscribe(brokerSubID) //nolint:errcheck
			}
			s.subsMu.Lock()
			delete(s.subs, st)
			s.subsMu.Unlock()
		})
	}
}

// watch polls the blob version and delivers records that appeared since the
// subscriber's snapshot. Until a snapshot exists nothing is delivered; the
// first successful read becomes the baseline.
func (s *Store) watch(st *subscriptionState, lastVersion int64, baselined bool, stopCh <-chan struct{}) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), s.pollInterval)
			list, version, err := s.load(ctx)
			cancel()
			if err != nil {
				continue
			}
			if !baselined {
				for _, n := range list {
					st.markSeen(n.ID)
				}
				lastVersion = version
				baselined = true
				continue
			}
			if version == lastVersion {
				continue
			}
			lastVersion = version
			for _, n := range list {
				st.deliver(n)
			}
		}
	}
}

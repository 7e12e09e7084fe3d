package attendance

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/gatehouse-app/backend/internal/events"
	"github.com/gatehouse-app/backend/internal/metrics"
	"github.com/gatehouse-app/backend/internal/notifications"
	"github.com/gatehouse-app/backend/internal/sse"
)

// changeSignal is published on the attendance topic so every node can nudge
// its streaming clients. Origin identifies the publishing node; a node
// ignores its own signals, having already broadcast locally.
type changeSignal struct {
	Reason string `json:"reason"`
	Origin string `json:"origin"`
}

// Notifier fans an attendance mutation out to the channels staff watch: the
// local event stream, sibling nodes via the broker, and the host's durable
// notification log.
type Notifier struct {
	hub      *sse.Hub
	notifs   *notifications.Store
	metrics  *metrics.Metrics
	broker   events.Broker
	originID string
}

func NewNotifier(hub *sse.Hub, notifs *notifications.Store, m *metrics.Metrics, broker events.Broker) *Notifier {
	return &Notifier{
		hub:      hub,
		notifs:   notifs,
		metrics:  m,
		broker:   broker,
		originID: uuid.New().String(),
	}
}

// Listen bridges attendance signals published by other nodes into the local
// hub. The returned function detaches the subscription.
func (n *Notifier) Listen() (func(), error) {
	if n.broker == nil {
		return func() {}, nil
	}
	id, err := n.broker.Subscribe(events.TopicAttendance, func(topic string, payload []byte) {
		var sig changeSignal
		if err := json.Unmarshal(payload, &sig); err != nil {
			return
		}
		if sig.Origin == n.originID || sig.Reason == "" {
			return
		}
		res := n.hub.Broadcast(sig.Reason)
		n.metrics.ObserveBroadcast(res.Delivered, res.Evicted, res.Skipped)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe attendance topic: %w", err)
	}
	return func() { _ = n.broker.Unsubscribe(id) }, nil
}

// CheckedIn announces an arrival. Broadcast and broker signal are best
// effort; the durable notification to the host is the part that must land,
// and its error is returned.
func (n *Notifier) CheckedIn(ctx context.Context, rec *Record) error {
	n.signal("visitor-checked-in")

	_, _, err := n.notifs.Create(ctx, notifications.CreateInput{
		ToUserID: rec.HostUserID,
		Type:     notifications.TypeStatusUpdate,
		Title:    "Visitor arrived",
		Body:     fmt.Sprintf("%s has checked in at the front desk", rec.VisitorName),
		Link:     "/attendance",
	})
	if err != nil {
		return fmt.Errorf("notify host of check-in: %w", err)
	}
	n.metrics.IncNotificationsCreated()
	return nil
}

// CheckedOut announces a departure.
func (n *Notifier) CheckedOut(ctx context.Context, rec *Record) error {
	n.signal("visitor-checked-out")

	_, _, err := n.notifs.Create(ctx, notifications.CreateInput{
		ToUserID: rec.HostUserID,
		Type:     notifications.TypeNote,
		Title:    "Visitor departed",
		Body:     fmt.Sprintf("%s has checked out", rec.VisitorName),
		Link:     "/attendance",
	})
	if err != nil {
		return fmt.Errorf("notify host of check-out: %w", err)
	}
	n.metrics.IncNotificationsCreated()
	return nil
}

// signal broadcasts to the local hub and publishes the reason for other
// nodes to do the same.
func (n *Notifier) signal(reason string) {
	res := n.hub.Broadcast(reason)
	n.metrics.ObserveBroadcast(res.Delivered, res.Evicted, res.Skipped)

	if n.broker == nil {
		return
	}
	payload, err := json.Marshal(changeSignal{Reason: reason, Origin: n.originID})
	if err != nil {
		return
	}
	if err := n.broker.Publish(events.TopicAttendance, payload); err != nil {
		log.Printf("attendance: publish %s signal: %v", reason, err)
	}
}

// report logs a notifier failure without failing the kiosk request; the
// attendance row is already committed by the time fan-out runs.
func report(op string, err error) {
	if err != nil {
		log.Printf("attendance: %s: %v", op, err)
	}
}

package notifications

import "time"

// Type classifies a notification. The set is fixed; producers pick the one
// matching the event they announce.
type Type string

const (
	TypeTaskAssigned Type = "task-assigned"
	TypeStatusUpdate Type = "status-update"
	TypeEscalation   Type = "escalation"
	TypeNote         Type = "note"
)

// Notification is one persisted record addressed to a staff user. Everything
// except ReadAt is immutable after creation; ReadAt transitions from nil to a
// concrete instant exactly once and never back.
type Notification struct {
	ID        string     `json:"id"`
	ToUserID  string     `json:"to_user_id"`
	Type      Type       `json:"type"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	Link      string     `json:"link,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
}

// Unread reports whether the notification has not been marked read yet.
func (n Notification) Unread() bool {
	return n.ReadAt == nil
}

// CreateInput is everything a producer supplies; id, creation instant and
// read state are stamped by the store.
type CreateInput struct {
	ToUserID string `json:"to_user_id"`
	Type     Type   `json:"type"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	Link     string `json:"link,omitempty"`
}

// announcement is the cross-process message published when a notification is
// created. Anything on the channel that is not a "created" announcement is
// ignored by this subsystem.
type announcement struct {
	Type         string       `json:"type"`
	Notification Notification `json:"notification"`
}

package events

// Well-known topics. Announcements on any topic are best-effort: losing one
// never loses data, consumers always re-read authoritative state.
const (
	// TopicNotificationCreated carries the cross-process announcement that a
	// notification was appended to the persisted log.
	TopicNotificationCreated = "gatehouse.notifications"
	// TopicAttendance carries attendance change signals (check-in/check-out).
	TopicAttendance = "gatehouse.attendance"
)

// Handler is a callback invoked for every payload received on a subscribed
// topic.
type Handler func(topic string, payload []byte)

// Broker is the publish/subscribe primitive used to announce changes between
// processes. Implementations include InMemoryBroker (single-node) and
// KafkaBroker (distributed setups). Payloads are opaque bytes; subscribers
// are responsible for ignoring shapes they do not recognise.
type Broker interface {
	// Publish sends a payload to the given topic. Subscribers registered for
	// that topic receive it asynchronously.
	Publish(topic string, payload []byte) error

	// Subscribe registers a handler called for every payload published to the
	// given topic. Returns a subscription ID usable with Unsubscribe.
	Subscribe(topic string, handler Handler) (string, error)

	// Unsubscribe detaches a previously registered handler. Unknown IDs are
	// a no-op.
	Unsubscribe(id string) error

	// Close shuts down the broker, releasing connections, goroutines and
	// channels. After Close returns, Publish and Subscribe must not be called.
	Close() error
}

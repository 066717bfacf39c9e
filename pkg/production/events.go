package production

import (
	"sync"
	"time"

	"github.com/gravitas-games/slotcore/pkg/inventory"
)

// EventType represents the type of production event.
type EventType int

const (
	// EventJobStarted is emitted when a cycle begins, including restarts.
	EventJobStarted EventType = iota
	// EventJobCompleted is emitted when a cycle's outputs were placed.
	EventJobCompleted
	// EventJobBlocked is emitted when outputs do not fit yet.
	EventJobBlocked
	// EventJobFailed is emitted when a job stops for good.
	EventJobFailed
	// EventJobCancelled is emitted when a job is cancelled.
	EventJobCancelled
)

// String returns a human-readable representation of the event type.
func (t EventType) String() string {
	switch t {
	case EventJobStarted:
		return "JobStarted"
	case EventJobCompleted:
		return "JobCompleted"
	case EventJobBlocked:
		return "JobBlocked"
	case EventJobFailed:
		return "JobFailed"
	case EventJobCancelled:
		return "JobCancelled"
	default:
		return "Unknown"
	}
}

// Event represents a production event.
type Event struct {
	Type      EventType `json:"type"`
	Job       Job       `json:"job"`
	Timestamp time.Time `json:"timestamp"`
	Err       string    `json:"error,omitempty"`
}

// EventBus delivers production events to the owner of the job.
type EventBus interface {
	Subscribe(owner inventory.OwnerID, handler func(Event))
	Unsubscribe(owner inventory.OwnerID)
	Publish(event Event)
}

// SimpleEventBus is an in-memory event bus with one handler per owner.
// Handlers run synchronously; the manager publishes while holding its lock,
// so handlers must not call back into the manager.
type SimpleEventBus struct {
	mu       sync.RWMutex
	handlers map[inventory.OwnerID]func(Event)
}

// NewSimpleEventBus creates an empty event bus.
func NewSimpleEventBus() *SimpleEventBus {
	return &SimpleEventBus{handlers: make(map[inventory.OwnerID]func(Event))}
}

// Subscribe registers the handler for owner, replacing any previous one.
func (bus *SimpleEventBus) Subscribe(owner inventory.OwnerID, handler func(Event)) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.handlers[owner] = handler
}

// Unsubscribe removes the handler for owner.
func (bus *SimpleEventBus) Unsubscribe(owner inventory.OwnerID) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	delete(bus.handlers, owner)
}

// Publish sends the event to the handler of the job owner.
func (bus *SimpleEventBus) Publish(event Event) {
	bus.mu.RLock()
	handler, ok := bus.handlers[event.Job.Owner]
	bus.mu.RUnlock()
	if ok {
		handler(event)
	}
}

// NullEventBus drops every event.
type NullEventBus struct{}

// Subscribe does nothing.
func (NullEventBus) Subscribe(inventory.OwnerID, func(Event)) {}

// Unsubscribe does nothing.
func (NullEventBus) Unsubscribe(inventory.OwnerID) {}

// Publish does nothing.
func (NullEventBus) Publish(Event) {}

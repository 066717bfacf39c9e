package inventory

import "sync"

// EventType represents the kind of inventory event.
type EventType int

const (
	// EventSlotChanged is emitted after a slot's contents change.
	EventSlotChanged EventType = iota
	// EventOpened is emitted when a viewer registers with the inventory.
	EventOpened
	// EventClosed is emitted when a viewer unregisters.
	EventClosed
	// EventBroken is emitted after Break has ejected every slot.
	EventBroken
)

// String returns a human-readable representation of the event type.
func (t EventType) String() string {
	switch t {
	case EventSlotChanged:
		return "SlotChanged"
	case EventOpened:
		return "Opened"
	case EventClosed:
		return "Closed"
	case EventBroken:
		return "Broken"
	default:
		return "Unknown"
	}
}

// Event describes something that happened to one inventory.
// Slot is only meaningful for EventSlotChanged, Viewer only for
// EventOpened and EventClosed.
type Event struct {
	Type      EventType
	Inventory *Inventory
	Slot      int
	Viewer    Viewer
}

// EventBus is a publish/subscribe channel scoped to a single inventory.
// Handlers run synchronously on the publishing goroutine, in subscription
// order.
type EventBus struct {
	mu       sync.RWMutex
	handlers []subscription
	nextID   int
}

type subscription struct {
	id      int
	handler func(Event)
}

// NewEventBus creates an empty event bus.
func NewEventBus() *EventBus {
	return &EventBus{}
}

// Subscribe registers a handler and returns a handle for Unsubscribe.
func (bus *EventBus) Subscribe(handler func(Event)) int {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.nextID++
	bus.handlers = append(bus.handlers, subscription{id: bus.nextID, handler: handler})
	return bus.nextID
}

// Unsubscribe removes the handler registered under id.
func (bus *EventBus) Unsubscribe(id int) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	for i, sub := range bus.handlers {
		if sub.id == id {
			bus.handlers = append(bus.handlers[:i], bus.handlers[i+1:]...)
			return
		}
	}
}

// Len returns the number of active subscriptions.
func (bus *EventBus) Len() int {
	bus.mu.RLock()
	defer bus.mu.RUnlock()
	return len(bus.handlers)
}

// Publish delivers the event to every subscribed handler.
func (bus *EventBus) Publish(event Event) {
	bus.mu.RLock()
	if len(bus.handlers) == 0 {
		bus.mu.RUnlock()
		return
	}
	handlers := make([]func(Event), len(bus.handlers))
	for i, sub := range bus.handlers {
		handlers[i] = sub.handler
	}
	bus.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
}

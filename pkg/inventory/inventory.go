package inventory

import (
	"sort"

	"go.uber.org/zap"
)

// Inventory is an ordered, fixed-size list of slots belonging to one owner.
// Slots may be replaced by index but the count never changes after New.
type Inventory struct {
	ID    string  `json:"id"`
	Name  string  `json:"name,omitempty"`
	Owner OwnerID `json:"owner,omitempty"`

	slots     []*Slot
	slotLimit int
	state     State

	registry  *Registry
	validator ItemValidator
	events    *EventBus
	viewers   map[Viewer]struct{}
	carrier   Carrier
	loading   bool

	hostLocked bool
	hostState  State
	logger    *zap.Logger
}

// Option configures inventory construction.
type Option func(*Inventory)

// WithRegistry attaches an item registry used to resolve max stack sizes.
func WithRegistry(reg *Registry) Option {
	return func(inv *Inventory) {
		inv.registry = reg
	}
}

// WithValidator restricts which items the inventory accepts.
func WithValidator(v ItemValidator) Option {
	return func(inv *Inventory) {
		inv.validator = v
	}
}

// WithState sets the inventory-wide permission bits.
func WithState(st State) Option {
	return func(inv *Inventory) {
		inv.state = st
	}
}

// WithSlotLimit sets the default per-slot capacity limit.
func WithSlotLimit(n int) Option {
	return func(inv *Inventory) {
		if n > 0 {
			inv.slotLimit = n
		}
	}
}

// WithName sets a display name.
func WithName(name string) Option {
	return func(inv *Inventory) {
		inv.Name = name
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(inv *Inventory) {
		if l != nil {
			inv.logger = l
		}
	}
}

// WithCarrier backs the inventory by a carrier item. Contents are loaded
// from the carrier on construction and written back after every change.
func WithCarrier(c Carrier) Option {
	return func(inv *Inventory) {
		inv.carrier = c
	}
}

// New creates an inventory with size empty slots. Sizes are clamped to
// [0, MaxSlots].
func New(id string, owner OwnerID, size int, opts ...Option) *Inventory {
	if size < 0 {
		size = 0
	}
	if size > MaxSlots {
		size = MaxSlots
	}
	inv := &Inventory{
		ID:        id,
		Owner:     owner,
		slotLimit: DefaultMaxStack,
		state:     DefaultState,
		events:    NewEventBus(),
		viewers:   make(map[Viewer]struct{}),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(inv)
		}
	}
	inv.slots = make([]*Slot, size)
	for i := range inv.slots {
		inv.slots[i] = &Slot{inv: inv, index: i, limit: inv.slotLimit, state: DefaultState}
	}
	if inv.carrier != nil {
		inv.loadCarrier()
	}
	return inv
}

// Size returns the number of slots.
func (inv *Inventory) Size() int { return len(inv.slots) }

// Slot returns the slot at index.
func (inv *Inventory) Slot(index int) (*Slot, bool) {
	if index < 0 || index >= len(inv.slots) {
		return nil, false
	}
	return inv.slots[index], true
}

// Slots returns the slots in index order. The slice is a copy; the slots are
// live.
func (inv *Inventory) Slots() []*Slot {
	out := make([]*Slot, len(inv.slots))
	copy(out, inv.slots)
	return out
}

// ReplaceSlot swaps in a freshly configured slot at index. The previous
// contents carry over; the part exceeding the new capacity is returned.
func (inv *Inventory) ReplaceSlot(index int, opts ...SlotOption) (Stack, bool) {
	prev, ok := inv.Slot(index)
	if !ok {
		return Stack{}, false
	}
	s := &Slot{inv: inv, index: index, limit: inv.slotLimit, state: DefaultState}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	inv.slots[index] = s
	return s.Set(prev.stack), true
}

// State returns the inventory-wide permission bits.
func (inv *Inventory) State() State { return inv.state }

// SetState replaces the inventory-wide permission bits.
func (inv *Inventory) SetState(st State) { inv.state = st }

// Registry returns the attached item registry, which may be nil.
func (inv *Inventory) Registry() *Registry { return inv.registry }

// Events returns the inventory's event bus.
func (inv *Inventory) Events() *EventBus { return inv.events }

// MaxStack returns the max stack size of item according to the registry.
func (inv *Inventory) MaxStack(item ItemID) int { return inv.registry.MaxStackFor(item) }

// Count returns the total units of item held across all slots.
func (inv *Inventory) Count(item ItemID) int {
	total := 0
	for _, s := range inv.slots {
		if s.stack.Item == item {
			total += s.stack.Count
		}
	}
	return total
}

// Snapshot returns a copy of every slot's contents in index order.
func (inv *Inventory) Snapshot() []Stack {
	out := make([]Stack, len(inv.slots))
	for i, s := range inv.slots {
		out[i] = s.stack.Clone()
	}
	return out
}

// Clear empties every slot.
func (inv *Inventory) Clear() {
	for _, s := range inv.slots {
		if !s.stack.IsEmpty() {
			s.Set(Stack{})
		}
	}
}

// Register records a viewer. Registration does not keep the viewer alive;
// viewers remove themselves with Unregister when they close.
func (inv *Inventory) Register(v Viewer) {
	if v == nil {
		return
	}
	if _, exists := inv.viewers[v]; exists {
		return
	}
	inv.viewers[v] = struct{}{}
	inv.events.Publish(Event{Type: EventOpened, Inventory: inv, Slot: -1, Viewer: v})
}

// Unregister removes a viewer.
func (inv *Inventory) Unregister(v Viewer) {
	if _, exists := inv.viewers[v]; !exists {
		return
	}
	delete(inv.viewers, v)
	inv.events.Publish(Event{Type: EventClosed, Inventory: inv, Slot: -1, Viewer: v})
}

// Viewers returns the registered viewers ordered by id.
func (inv *Inventory) Viewers() []Viewer {
	out := make([]Viewer, 0, len(inv.viewers))
	for v := range inv.viewers {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ViewerID() < out[j].ViewerID() })
	return out
}

func (inv *Inventory) slotChanged(s *Slot) {
	inv.events.Publish(Event{Type: EventSlotChanged, Inventory: inv, Slot: s.index})
	if inv.carrier != nil && !inv.loading {
		inv.storeCarrier()
	}
}

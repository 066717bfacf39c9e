package container

import "github.com/gravitas-games/slotcore/pkg/inventory"

// SlotUpdate carries the contents of one slot of one open inventory.
type SlotUpdate struct {
	Inventory int             `json:"inventory"`
	Slot      int             `json:"slot"`
	Stack     inventory.Stack `json:"stack"`
}

// DragView is the display-relevant part of the drag state.
type DragView struct {
	Mode  DragMode     `json:"mode"`
	Slots []SlotUpdate `json:"slots,omitempty"`
}

func (v DragView) equal(o DragView) bool {
	if v.Mode != o.Mode || len(v.Slots) != len(o.Slots) {
		return false
	}
	for i := range v.Slots {
		a, b := v.Slots[i], o.Slots[i]
		if a.Inventory != b.Inventory || a.Slot != b.Slot || !inventory.StacksEqual(a.Stack, b.Stack) {
			return false
		}
	}
	return true
}

func (v DragView) clone() DragView {
	out := DragView{Mode: v.Mode}
	if len(v.Slots) > 0 {
		out.Slots = make([]SlotUpdate, len(v.Slots))
		for i, u := range v.Slots {
			out.Slots[i] = SlotUpdate{Inventory: u.Inventory, Slot: u.Slot, Stack: u.Stack.Clone()}
		}
	}
	return out
}

// Delta is what changed since the previous Diff. Nil Held and Drag mean
// unchanged.
type Delta struct {
	Slots []SlotUpdate     `json:"slots,omitempty"`
	Held  *inventory.Stack `json:"held,omitempty"`
	Drag  *DragView        `json:"drag,omitempty"`
}

// Empty reports whether there is nothing to send.
func (d Delta) Empty() bool {
	return len(d.Slots) == 0 && d.Held == nil && d.Drag == nil
}

// Synchronizer tracks what a remote display was last sent for one container
// and produces only the differences. The cache holds deep copies and is never
// used as a source of truth.
type Synchronizer struct {
	c     *Container
	slots map[int][]inventory.Stack
	held  inventory.Stack
	drag  DragView
	stale bool
}

// NewSynchronizer creates a synchronizer for c. Until Open or Diff runs,
// everything is considered unsent.
func NewSynchronizer(c *Container) *Synchronizer {
	return &Synchronizer{c: c, slots: make(map[int][]inventory.Stack), stale: true}
}

// Open returns the full contents of every open inventory, other inventories
// first in ascending id order and inventory 0 last, and seeds the cache.
func (s *Synchronizer) Open() []SlotUpdate {
	s.slots = make(map[int][]inventory.Stack)
	var out []SlotUpdate
	ids := s.c.InventoryIDs()
	order := make([]int, 0, len(ids))
	for _, id := range ids {
		if id != OwnInventory {
			order = append(order, id)
		}
	}
	if _, ok := s.c.Inventory(OwnInventory); ok {
		order = append(order, OwnInventory)
	}
	for _, id := range order {
		inv, _ := s.c.Inventory(id)
		snap := inv.Snapshot()
		for i, st := range snap {
			out = append(out, SlotUpdate{Inventory: id, Slot: i, Stack: st.Clone()})
		}
		s.slots[id] = snap
	}
	s.held = s.c.Held()
	s.drag = s.dragView()
	s.stale = false
	return out
}

// Diff compares every open slot, the held stack and the drag state against
// the cache, refreshes the cache and returns what differed.
func (s *Synchronizer) Diff() Delta {
	var d Delta
	if s.stale {
		d.Slots = s.Open()
		held := s.held.Clone()
		d.Held = &held
		drag := s.drag.clone()
		d.Drag = &drag
		return d
	}

	for _, id := range s.c.InventoryIDs() {
		inv, _ := s.c.Inventory(id)
		cached, known := s.slots[id]
		if !known || len(cached) != inv.Size() {
			cached = make([]inventory.Stack, inv.Size())
			known = false
			s.slots[id] = cached
		}
		for i, slot := range inv.Slots() {
			live := slot.Stack()
			if known && inventory.StacksEqual(live, cached[i]) {
				continue
			}
			cached[i] = live.Clone()
			d.Slots = append(d.Slots, SlotUpdate{Inventory: id, Slot: i, Stack: live})
		}
	}
	for id := range s.slots {
		if _, ok := s.c.Inventory(id); !ok {
			delete(s.slots, id)
		}
	}

	if held := s.c.Held(); !inventory.StacksEqual(held, s.held) {
		s.held = held.Clone()
		d.Held = &held
	}
	if drag := s.dragView(); !drag.equal(s.drag) {
		s.drag = drag.clone()
		d.Drag = &drag
	}
	return d
}

// Invalidate forgets what was sent so the next Diff resends everything. Use
// it when the display is known to disagree with the authoritative state.
func (s *Synchronizer) Invalidate() {
	s.stale = true
}

func (s *Synchronizer) dragView() DragView {
	v := DragView{Mode: s.c.DragMode()}
	if slots := s.c.DraggedStacks(); len(slots) > 0 {
		v.Slots = slots
	}
	return v
}

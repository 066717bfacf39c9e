package container

import "github.com/gravitas-games/slotcore/pkg/inventory"

// Mirror is the display-side copy of a container. It only ever applies what
// a Synchronizer produced.
type Mirror struct {
	inventories map[int][]inventory.Stack
	held        inventory.Stack
	drag        DragView
}

// NewMirror creates an empty mirror.
func NewMirror() *Mirror {
	return &Mirror{inventories: make(map[int][]inventory.Stack)}
}

// Reset replaces the mirror contents with the output of Synchronizer.Open.
func (m *Mirror) Reset(updates []SlotUpdate) {
	m.inventories = make(map[int][]inventory.Stack)
	m.held = inventory.Stack{}
	m.drag = DragView{}
	m.applySlots(updates)
}

// Apply merges a delta into the mirror.
func (m *Mirror) Apply(d Delta) {
	m.applySlots(d.Slots)
	if d.Held != nil {
		m.held = d.Held.Clone()
	}
	if d.Drag != nil {
		m.drag = d.Drag.clone()
	}
}

func (m *Mirror) applySlots(updates []SlotUpdate) {
	for _, u := range updates {
		if u.Slot < 0 {
			continue
		}
		slots := m.inventories[u.Inventory]
		for len(slots) <= u.Slot {
			slots = append(slots, inventory.Stack{})
		}
		slots[u.Slot] = u.Stack.Clone()
		m.inventories[u.Inventory] = slots
	}
}

// Slot returns the displayed contents of one slot.
func (m *Mirror) Slot(inventoryID, index int) inventory.Stack {
	slots := m.inventories[inventoryID]
	if index < 0 || index >= len(slots) {
		return inventory.Stack{}
	}
	return slots[index].Clone()
}

// Held returns the displayed held stack.
func (m *Mirror) Held() inventory.Stack { return m.held.Clone() }

// Drag returns the displayed drag state.
func (m *Mirror) Drag() DragView { return m.drag.clone() }

// Matches reports whether the mirror shows exactly what c holds.
func (m *Mirror) Matches(c *Container) bool {
	if !inventory.StacksEqual(m.held, c.Held()) {
		return false
	}
	for _, id := range c.InventoryIDs() {
		inv, _ := c.Inventory(id)
		for i, st := range inv.Snapshot() {
			if !inventory.StacksEqual(st, m.Slot(id, i)) {
				return false
			}
		}
	}
	return true
}

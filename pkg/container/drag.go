package container

import (
	"fmt"

	"github.com/gravitas-games/slotcore/pkg/inventory"
)

// DragMode is the kind of drag gesture in progress.
type DragMode int

const (
	DragNone DragMode = iota
	// DragSpread splits the held stack evenly over the touched slots.
	DragSpread
	// DragOnePerSlot places one unit in every touched slot.
	DragOnePerSlot
	// DragPickup gathers the touched slots into the held stack.
	DragPickup
)

var dragModeNames = [...]string{"none", "spread", "one_per_slot", "pickup"}

// String returns the wire name of the mode.
func (m DragMode) String() string {
	if m < 0 || int(m) >= len(dragModeNames) {
		return "unknown"
	}
	return dragModeNames[m]
}

// MarshalText implements encoding.TextMarshaler.
func (m DragMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *DragMode) UnmarshalText(b []byte) error {
	for i, name := range dragModeNames {
		if name == string(b) {
			*m = DragMode(i)
			return nil
		}
	}
	return fmt.Errorf("container: unknown drag mode %q", b)
}

type dragSlot struct {
	inventory int
	slot      *inventory.Slot
}

type dragState struct {
	mode   DragMode
	amount int
	slots  []dragSlot
}

func (d *dragState) touched(s *inventory.Slot) bool {
	for _, ds := range d.slots {
		if ds.slot == s {
			return true
		}
	}
	return false
}

// DragMode returns the gesture in progress.
func (c *Container) DragMode() DragMode { return c.drag.mode }

// DraggedStacks returns the touched slots with their tentative amounts, in
// the order they were touched.
func (c *Container) DraggedStacks() []SlotUpdate {
	out := make([]SlotUpdate, 0, len(c.drag.slots))
	for _, ds := range c.drag.slots {
		out = append(out, SlotUpdate{
			Inventory: ds.inventory,
			Slot:      ds.slot.Index(),
			Stack:     ds.slot.Dragged(),
		})
	}
	return out
}

func (c *Container) dragStart(modifier int) {
	c.resetDrag()
	var mode DragMode
	switch modifier {
	case DragLeft:
		mode = DragSpread
	case DragRight:
		mode = DragOnePerSlot
	case DragGather:
		mode = DragPickup
	default:
		return
	}
	if mode != DragPickup && c.held.IsEmpty() {
		return
	}
	c.drag = dragState{mode: mode, amount: c.held.Count}
}

func (c *Container) dragAdd(inventoryID int, slot *inventory.Slot) {
	if c.drag.mode == DragNone || c.drag.touched(slot) {
		return
	}

	if c.drag.mode == DragPickup {
		if slot.IsEmpty() || !slot.Allows(inventory.PlayerExtract) {
			return
		}
		if !c.held.IsEmpty() && !slot.Stack().StackableWith(c.held) {
			return
		}
		c.drag.slots = append(c.drag.slots, dragSlot{inventory: inventoryID, slot: slot})
		slot.ExtractInto(&c.held)
		return
	}

	if !slot.Allows(inventory.PlayerInsert) || !slot.IsItemValid(c.held) {
		return
	}
	if !slot.IsEmpty() && !slot.Stack().StackableWith(c.held) {
		return
	}
	if len(c.drag.slots) >= c.drag.amount {
		return
	}
	c.drag.slots = append(c.drag.slots, dragSlot{inventory: inventoryID, slot: slot})
	if len(c.drag.slots) >= 2 {
		c.distribute()
	}
}

// distribute recomputes each touched slot's tentative share. A share never
// exceeds the slot's free space; what is left over stays held.
func (c *Container) distribute() {
	per := 1
	if c.drag.mode == DragSpread {
		per = c.drag.amount / len(c.drag.slots)
		if per < 1 {
			per = 1
		}
	}
	remaining := c.drag.amount
	for _, ds := range c.drag.slots {
		current := ds.slot.Stack()
		free := ds.slot.Capacity(c.held.Item) - current.Count
		give := per
		if free < give {
			give = free
		}
		if remaining < give {
			give = remaining
		}
		if give < 0 {
			give = 0
		}
		ds.slot.SetDragged(c.held.WithCount(give))
		remaining -= give
	}
}

func (c *Container) dragEnd() {
	if c.drag.mode == DragSpread || c.drag.mode == DragOnePerSlot {
		committed := 0
		for _, ds := range c.drag.slots {
			share := ds.slot.Dragged()
			if share.IsEmpty() {
				continue
			}
			left := ds.slot.Insert(share, inventory.FullStack, false)
			committed += share.Count - left.Count
		}
		if committed > 0 {
			c.held = c.held.WithCount(c.held.Count - committed)
		}
	}
	c.resetDrag()
}

// resetDrag discards every tentative share. The held stack is only changed
// by a committed drag, so it is already at its pre-drag amount.
func (c *Container) resetDrag() {
	for _, ds := range c.drag.slots {
		ds.slot.SetDragged(inventory.Stack{})
	}
	c.drag = dragState{}
}

package container

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/gravitas-games/slotcore/pkg/inventory"
)

// ActionType identifies one discrete user interaction.
type ActionType int

const (
	// ActionClick is a left (ButtonLeft) or right (ButtonRight) click.
	ActionClick ActionType = iota
	// ActionShiftClick moves the target stack to the other side.
	ActionShiftClick
	// ActionDoubleClick gathers matching stacks (ClickPlain) or repeats the
	// last shift-click for every matching slot (ClickShift).
	ActionDoubleClick
	// ActionHotbarSwap swaps the target with hotbar slot 0-8 of inventory 0.
	ActionHotbarSwap
	// ActionDrop ejects one (DropOne) or all (DropStack) from the target, or
	// from the held stack when the slot is NoSlot.
	ActionDrop
	// ActionPickBlock copies the target item at full stack into the held
	// stack. Requires elevated privilege.
	ActionPickBlock
	// ActionDragStart begins a drag with DragLeft, DragRight or DragGather.
	ActionDragStart
	// ActionDragAdd adds the target slot to the current drag.
	ActionDragAdd
	// ActionDragEnd commits the current drag.
	ActionDragEnd
	// ActionDragReset abandons the current drag.
	ActionDragReset
)

// Modifier values.
const (
	ButtonLeft  = 0
	ButtonRight = 1

	ClickPlain = 0
	ClickShift = 1

	DropOne   = 0
	DropStack = 1

	DragLeft   = 0
	DragRight  = 1
	DragGather = 2
)

// NoSlot addresses the held stack instead of a slot.
const NoSlot = -1

// HotbarSize is the number of hotbar slots at the start of inventory 0.
const HotbarSize = 9

var actionNames = map[ActionType]string{
	ActionClick:       "click",
	ActionShiftClick:  "shift_click",
	ActionDoubleClick: "double_click",
	ActionHotbarSwap:  "hotbar_swap",
	ActionDrop:        "drop",
	ActionPickBlock:   "pick_block",
	ActionDragStart:   "drag_start",
	ActionDragAdd:     "drag_add",
	ActionDragEnd:     "drag_end",
	ActionDragReset:   "drag_reset",
}

// String returns the wire name of the action.
func (a ActionType) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// ParseAction resolves a wire name.
func ParseAction(name string) (ActionType, error) {
	for a, n := range actionNames {
		if n == name {
			return a, nil
		}
	}
	return 0, fmt.Errorf("%w %q", ErrUnknownAction, name)
}

func (a ActionType) isDrag() bool {
	return a >= ActionDragStart && a <= ActionDragReset
}

// HandleAction applies one interaction and returns the resulting held stack.
// Input is untrusted: unknown inventories, bad slot indices and refused
// permissions leave everything unchanged.
func (c *Container) HandleAction(action ActionType, inventoryID, slotIndex, modifier int) inventory.Stack {
	if c.closed {
		return c.Held()
	}
	if !action.isDrag() {
		c.resetDrag()
	}

	switch action {
	case ActionDragStart:
		c.dragStart(modifier)
		return c.Held()
	case ActionDragEnd:
		c.dragEnd()
		return c.Held()
	case ActionDragReset:
		c.resetDrag()
		return c.Held()
	case ActionDrop:
		if slotIndex == NoSlot {
			c.dropHeld(modifier)
			return c.Held()
		}
	}

	slot, ok := c.resolve(action, inventoryID, slotIndex)
	if !ok || slot.IsFrozen() {
		return c.Held()
	}

	switch action {
	case ActionClick:
		c.click(slot, modifier)
	case ActionShiftClick:
		c.shiftClick(inventoryID, slot)
	case ActionDoubleClick:
		c.doubleClick(inventoryID, modifier)
	case ActionHotbarSwap:
		c.hotbarSwap(slot, modifier)
	case ActionDrop:
		c.dropSlot(slot, modifier)
	case ActionPickBlock:
		c.pickBlock(slot)
	case ActionDragAdd:
		c.dragAdd(inventoryID, slot)
	default:
		c.logger.Warn("unknown action", zap.Int("action", int(action)))
	}
	return c.Held()
}

func (c *Container) resolve(action ActionType, inventoryID, slotIndex int) (*inventory.Slot, bool) {
	inv, ok := c.inventories[inventoryID]
	if !ok {
		c.logger.Warn("action on unknown inventory",
			zap.Stringer("action", action),
			zap.Int("inventory", inventoryID))
		return nil, false
	}
	slot, ok := inv.Slot(slotIndex)
	if !ok {
		c.logger.Warn("action on invalid slot",
			zap.Stringer("action", action),
			zap.Int("inventory", inventoryID),
			zap.Int("slot", slotIndex))
		return nil, false
	}
	return slot, true
}

func (c *Container) click(slot *inventory.Slot, button int) {
	if c.held.IsEmpty() {
		if !slot.Allows(inventory.PlayerExtract) || slot.IsEmpty() {
			return
		}
		amount := inventory.FullStack
		if button == ButtonRight {
			amount = (slot.Stack().Count + 1) / 2
		}
		c.held = slot.Extract(amount)
		return
	}

	current := slot.Stack()
	if !slot.Allows(inventory.PlayerInsert) {
		// output slots: take what fits onto the matching held stack
		if button == ButtonLeft && slot.Allows(inventory.PlayerExtract) && current.StackableWith(c.held) {
			slot.ExtractInto(&c.held)
		}
		return
	}
	if button == ButtonRight {
		c.held = slot.Insert(c.held, 1, false)
		return
	}
	force := !current.IsEmpty() && !current.StackableWith(c.held) && slot.Allows(inventory.PlayerExtract)
	c.held = slot.Insert(c.held, inventory.FullStack, force)
}

// moveAcross offers s to the other side of the container: inventory 0 feeds
// every other inventory in ascending id order, everything else feeds 0.
func (c *Container) moveAcross(from int, s inventory.Stack) inventory.Stack {
	left := s
	if from != OwnInventory {
		return c.inventories[OwnInventory].TransferIntoAs(left, false, inventory.PlayerInsert)
	}
	for _, id := range c.InventoryIDs() {
		if id == OwnInventory || left.IsEmpty() {
			continue
		}
		left = c.inventories[id].TransferIntoAs(left, false, inventory.PlayerInsert)
	}
	return left
}

func (c *Container) shiftClick(inventoryID int, slot *inventory.Slot) {
	if slot.IsEmpty() || !slot.Allows(inventory.PlayerExtract) {
		return
	}
	offered := slot.Stack()
	c.lastShift = offered.WithCount(1)
	left := c.moveAcross(inventoryID, offered)
	if moved := offered.Count - left.Count; moved > 0 {
		slot.Extract(moved)
	}
}

func (c *Container) doubleClick(inventoryID, modifier int) {
	inv := c.inventories[inventoryID]
	if modifier == ClickShift {
		if c.lastShift.IsEmpty() {
			return
		}
		for _, s := range inv.Slots() {
			if s.IsFrozen() || !s.Stack().StackableWith(c.lastShift) {
				continue
			}
			c.shiftClick(inventoryID, s)
		}
		return
	}

	if c.held.IsEmpty() {
		return
	}
	for _, s := range inv.Slots() {
		if s.IsFrozen() || !s.Allows(inventory.PlayerExtract) || s.IsFull() {
			continue
		}
		if !s.Stack().StackableWith(c.held) {
			continue
		}
		if s.ExtractInto(&c.held) {
			return
		}
	}
}

func (c *Container) hotbarSwap(target *inventory.Slot, digit int) {
	if digit < 0 || digit >= HotbarSize {
		c.logger.Warn("hotbar digit out of range", zap.Int("digit", digit))
		return
	}
	hot, ok := c.inventories[OwnInventory].Slot(digit)
	if !ok || hot == target || hot.IsFrozen() {
		return
	}
	t, h := target.Stack(), hot.Stack()
	if t.IsEmpty() && h.IsEmpty() {
		return
	}

	if t.StackableWith(h) {
		if !target.Allows(inventory.PlayerExtract) || !hot.Allows(inventory.PlayerInsert) {
			return
		}
		left := hot.Insert(t, inventory.FullStack, false)
		if moved := t.Count - left.Count; moved > 0 {
			target.Extract(moved)
		}
		return
	}

	if !t.IsEmpty() && !canReceive(hot, t, target) {
		return
	}
	if !h.IsEmpty() && !canReceive(target, h, hot) {
		return
	}
	target.Set(h)
	hot.Set(t)
}

// canReceive reports whether s may move wholesale from src into dst.
func canReceive(dst *inventory.Slot, s inventory.Stack, src *inventory.Slot) bool {
	return src.Allows(inventory.PlayerExtract) &&
		dst.Allows(inventory.PlayerInsert) &&
		dst.IsItemValid(s) &&
		s.Count <= dst.Capacity(s.Item)
}

func dropAmount(modifier int) int {
	if modifier == DropStack {
		return inventory.FullStack
	}
	return 1
}

func (c *Container) dropHeld(modifier int) {
	if c.held.IsEmpty() || c.ejector == nil {
		return
	}
	n := c.held.Count
	if modifier != DropStack {
		n = 1
	}
	out := c.held.WithCount(n)
	c.held = c.held.WithCount(c.held.Count - n)
	c.ejector.EjectItem(c.location, out)
}

func (c *Container) dropSlot(slot *inventory.Slot, modifier int) {
	if c.ejector == nil || slot.IsEmpty() || !slot.Allows(inventory.PlayerExtract) {
		return
	}
	out := slot.Extract(dropAmount(modifier))
	c.ejector.EjectItem(c.location, out)
}

func (c *Container) pickBlock(slot *inventory.Slot) {
	if !c.held.IsEmpty() || slot.IsEmpty() {
		return
	}
	if c.privilege == nil || !c.privilege.HasElevatedPrivilege(c.owner) {
		return
	}
	st := slot.Stack()
	c.held = st.WithCount(slot.Inventory().MaxStack(st.Item))
}

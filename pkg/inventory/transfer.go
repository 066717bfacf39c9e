package inventory

import "go.uber.org/zap"

// TransferInto spreads stack over the inventory and returns what did not fit.
// Slots already holding a stackable partial stack are topped up first; empty
// slots are used only for what remains. With reversed set both passes run
// from the last slot to the first.
func (inv *Inventory) TransferInto(stack Stack, reversed bool) Stack {
	return inv.TransferIntoAs(stack, reversed, 0)
}

// TransferIntoAs is TransferInto restricted to slots that allow perm. A zero
// perm checks nothing but still skips frozen slots.
func (inv *Inventory) TransferIntoAs(stack Stack, reversed bool, perm State) Stack {
	left := stack.Clone()
	if left.IsEmpty() {
		return Stack{}
	}
	for pass := 0; pass < 2 && !left.IsEmpty(); pass++ {
		for n := 0; n < len(inv.slots) && !left.IsEmpty(); n++ {
			i := n
			if reversed {
				i = len(inv.slots) - 1 - n
			}
			s := inv.slots[i]
			if s.IsFrozen() || (perm != 0 && !s.Allows(perm)) {
				continue
			}
			if pass == 0 && !s.stack.StackableWith(left) {
				continue
			}
			if pass == 1 && !s.stack.IsEmpty() {
				continue
			}
			left = s.Insert(left, left.Count, false)
		}
	}
	return left
}

// Transfer pulls every occupied slot of other into inv, in index order. It
// stops at the first source slot that cannot be placed entirely; the part that
// did not fit stays in that slot.
func (inv *Inventory) Transfer(other *Inventory) {
	if other == nil || other == inv {
		return
	}
	for _, src := range other.slots {
		if src.stack.IsEmpty() {
			continue
		}
		offered := src.stack.Clone()
		left := inv.TransferInto(offered, false)
		if moved := offered.Count - left.Count; moved > 0 {
			src.Extract(moved)
		}
		if !left.IsEmpty() {
			return
		}
	}
}

// PullItemStack empties the first occupied slot and returns its contents.
func (inv *Inventory) PullItemStack() Stack {
	for _, s := range inv.slots {
		if !s.stack.IsEmpty() {
			return s.Extract(FullStack)
		}
	}
	return Stack{}
}

// Break ejects the contents of every slot at loc, leaves the inventory empty
// and closes every viewer still displaying it.
func (inv *Inventory) Break(ej Ejector, loc Location) {
	for _, s := range inv.slots {
		if s.stack.IsEmpty() {
			continue
		}
		out := s.Extract(FullStack)
		if ej == nil {
			inv.logger.Warn("inventory broken without ejector",
				zap.String("inventory", inv.ID),
				zap.String("item", string(out.Item)),
				zap.Int("count", out.Count))
			continue
		}
		ej.EjectItem(loc, out)
	}
	for _, v := range inv.Viewers() {
		v.Close()
		inv.Unregister(v)
	}
	inv.events.Publish(Event{Type: EventBroken, Inventory: inv, Slot: -1})
}

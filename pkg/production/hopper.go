package production

import "github.com/gravitas-games/slotcore/pkg/inventory"

// Hopper moves items from one inventory to another through automation
// permissions, a few units per step.
type Hopper struct {
	From *inventory.Inventory
	To   *inventory.Inventory
	Rate int
}

// Step moves up to Rate units out of the first source slot that can give
// anything and returns how many moved. Units the destination refuses stay in
// the source.
func (h *Hopper) Step() int {
	if h.From == nil || h.To == nil {
		return 0
	}
	rate := h.Rate
	if rate <= 0 {
		rate = 1
	}
	for _, s := range h.From.Slots() {
		if s.IsEmpty() || !s.Allows(inventory.AutoExtract) {
			continue
		}
		st := s.Stack()
		if st.Count > rate {
			st = st.WithCount(rate)
		}
		left := h.To.TransferIntoAs(st, false, inventory.AutoInsert)
		if moved := st.Count - left.Count; moved > 0 {
			s.Extract(moved)
			return moved
		}
	}
	return 0
}

// Collect drains every slot of inv holding item into one stack, up to the
// item's max stack size, through AutoExtract slots only.
func Collect(inv *inventory.Inventory, item inventory.ItemID) inventory.Stack {
	var out inventory.Stack
	for _, s := range inv.Slots() {
		if !s.Allows(inventory.AutoExtract) || s.Stack().Item != item {
			continue
		}
		if s.ExtractInto(&out) {
			break
		}
	}
	return out
}

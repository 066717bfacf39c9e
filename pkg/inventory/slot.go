package inventory

// Slot is one addressable holder of a stack inside an inventory.
//
// Every mutating method keeps stack.Count <= Capacity(stack.Item) and reports
// the change to the owning inventory. None of them fail: an operation that
// cannot proceed returns the unconsumed portion so callers can retry safely.
type Slot struct {
	inv     *Inventory
	index   int
	stack   Stack
	dragged Stack
	limit   int
	output  bool
	state   State
}

// SlotOption configures a slot created by Inventory.ReplaceSlot.
type SlotOption func(*Slot)

// AsOutput marks the slot as output-only: nothing can be inserted by players
// or automation, only Fill can place items.
func AsOutput() SlotOption {
	return func(s *Slot) { s.output = true }
}

// WithLimit caps the slot below the item max stack size.
func WithLimit(n int) SlotOption {
	return func(s *Slot) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithSlotState sets the slot's own permission bits.
func WithSlotState(st State) SlotOption {
	return func(s *Slot) { s.state = st }
}

// Index returns the slot position inside its inventory.
func (s *Slot) Index() int { return s.index }

// Inventory returns the owning inventory.
func (s *Slot) Inventory() *Inventory { return s.inv }

// Stack returns a copy of the slot contents.
func (s *Slot) Stack() Stack { return s.stack.Clone() }

// Limit returns the slot's own capacity limit.
func (s *Slot) Limit() int { return s.limit }

// IsOutput reports whether the slot is output-only.
func (s *Slot) IsOutput() bool { return s.output }

// State returns the slot's own permission bits.
func (s *Slot) State() State { return s.state }

// SetState replaces the slot's own permission bits.
func (s *Slot) SetState(st State) { s.state = st }

// Allows reports whether both the slot and its inventory permit p. Output
// slots never permit insertion.
func (s *Slot) Allows(p State) bool {
	if s.output && p&(PlayerInsert|AutoInsert) != 0 {
		return false
	}
	inv := DefaultState
	if s.inv != nil {
		inv = s.inv.state
	}
	return inv.Has(p) && s.state.Has(p) && !s.IsFrozen()
}

// IsFrozen reports whether the slot or its inventory is frozen.
func (s *Slot) IsFrozen() bool {
	if s.state&Frozen != 0 {
		return true
	}
	return s.inv != nil && s.inv.state&Frozen != 0
}

// Capacity returns how many units of item fit: the smaller of the slot limit
// and the item max stack size.
func (s *Slot) Capacity(item ItemID) int {
	most := DefaultMaxStack
	if s.inv != nil {
		most = s.inv.registry.MaxStackFor(item)
	}
	if s.limit > 0 && s.limit < most {
		return s.limit
	}
	return most
}

// IsEmpty reports whether the slot holds nothing.
func (s *Slot) IsEmpty() bool { return s.stack.IsEmpty() }

// IsFull reports whether the slot cannot take another unit of its item.
func (s *Slot) IsFull() bool {
	return !s.stack.IsEmpty() && s.stack.Count >= s.Capacity(s.stack.Item)
}

// IsItemValid reports whether candidate may be placed here. Output slots
// accept nothing; otherwise the inventory validator decides.
func (s *Slot) IsItemValid(candidate Stack) bool {
	if s.output {
		return false
	}
	if s.inv == nil || s.inv.validator == nil {
		return true
	}
	return s.inv.validator.ValidateItem(s, candidate)
}

// Insert moves up to amount units of candidate into the slot and returns what
// was not placed. When the slot holds a different item and force is set, the
// current contents are evicted and returned instead, but only if candidate fits
// entirely; otherwise nothing changes.
func (s *Slot) Insert(candidate Stack, amount int, force bool) Stack {
	if candidate.IsEmpty() || amount == 0 {
		return candidate
	}
	if amount < 0 || amount > candidate.Count {
		amount = candidate.Count
	}
	if !s.IsItemValid(candidate) {
		return candidate
	}
	if s.stack.IsEmpty() || s.stack.StackableWith(candidate) {
		return s.merge(candidate, amount)
	}
	if !force {
		return candidate
	}
	if candidate.Count > s.Capacity(candidate.Item) {
		return candidate
	}
	evicted := s.stack
	s.stack = candidate.Clone()
	s.changed()
	return evicted
}

// Fill merges candidate into the slot ignoring validity, for machines filling
// their own output slots.
func (s *Slot) Fill(candidate Stack) Stack {
	if candidate.IsEmpty() {
		return candidate
	}
	if !s.stack.IsEmpty() && !s.stack.StackableWith(candidate) {
		return candidate
	}
	return s.merge(candidate, candidate.Count)
}

func (s *Slot) merge(candidate Stack, amount int) Stack {
	space := s.Capacity(candidate.Item) - s.stack.Count
	move := minInt(amount, minInt(space, candidate.Count))
	if move <= 0 {
		return candidate
	}
	if s.stack.IsEmpty() {
		s.stack = candidate.WithCount(move)
	} else {
		s.stack.Count += move
	}
	s.changed()
	return candidate.WithCount(candidate.Count - move)
}

// Extract removes up to amount units (FullStack for all) and returns them.
func (s *Slot) Extract(amount int) Stack {
	if s.stack.IsEmpty() || amount == 0 {
		return Stack{}
	}
	if amount < 0 || amount > s.stack.Count {
		amount = s.stack.Count
	}
	out := s.stack.WithCount(amount)
	s.stack = s.stack.WithCount(s.stack.Count - amount)
	s.changed()
	return out
}

// ExtractInto merges as much of the slot as fits into target and reports
// whether target is now at its max stack size.
func (s *Slot) ExtractInto(target *Stack) bool {
	if target == nil {
		return false
	}
	if s.stack.IsEmpty() {
		return s.targetFull(*target)
	}
	if !target.IsEmpty() && !target.StackableWith(s.stack) {
		return s.targetFull(*target)
	}
	most := s.maxStack(s.stack.Item)
	move := minInt(most-maxInt(target.Count, 0), s.stack.Count)
	if move > 0 {
		if target.IsEmpty() {
			*target = s.stack.WithCount(move)
		} else {
			target.Count += move
		}
		s.stack = s.stack.WithCount(s.stack.Count - move)
		s.changed()
	}
	return target.Count >= most
}

func (s *Slot) targetFull(t Stack) bool {
	return !t.IsEmpty() && t.Count >= s.maxStack(t.Item)
}

func (s *Slot) maxStack(item ItemID) int {
	if s.inv == nil {
		return DefaultMaxStack
	}
	return s.inv.registry.MaxStackFor(item)
}

// Set replaces the slot contents without validity checks, clamping to
// capacity. The part that did not fit is returned.
func (s *Slot) Set(st Stack) Stack {
	var overflow Stack
	if !st.IsEmpty() {
		if capacity := s.Capacity(st.Item); st.Count > capacity {
			overflow = st.WithCount(st.Count - capacity)
			st = st.WithCount(capacity)
		}
	}
	s.stack = st.Clone()
	s.changed()
	return overflow
}

// Dragged returns the tentative amount assigned to this slot by an ongoing
// drag gesture.
func (s *Slot) Dragged() Stack { return s.dragged.Clone() }

// SetDragged stores drag scratch state. It is never persisted and never
// notifies observers.
func (s *Slot) SetDragged(st Stack) { s.dragged = st.Clone() }

func (s *Slot) changed() {
	if s.inv != nil {
		s.inv.slotChanged(s)
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

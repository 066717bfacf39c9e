package production

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gravitas-games/slotcore/pkg/inventory"
)

var (
	// ErrInsufficient is returned when inputs are missing.
	ErrInsufficient = errors.New("production: insufficient inputs")
	// ErrOutputFull is returned when yields do not fit.
	ErrOutputFull = errors.New("production: output full")
)

// SlotProvider is an InventoryProvider over slot inventories. Inputs are taken
// only from slots that allow AutoExtract. Yields go to the inventory's output
// slots, or to any slot allowing AutoInsert when it has none.
type SlotProvider struct {
	mu          sync.RWMutex
	inventories map[string]*inventory.Inventory
}

// NewSlotProvider creates an empty provider.
func NewSlotProvider() *SlotProvider {
	return &SlotProvider{inventories: make(map[string]*inventory.Inventory)}
}

// AddInventory registers an inventory with the provider.
func (p *SlotProvider) AddInventory(inv *inventory.Inventory) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inventories[inv.ID] = inv
}

// RemoveInventory forgets an inventory.
func (p *SlotProvider) RemoveInventory(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.inventories, id)
}

// GetInventory retrieves an inventory by ID.
func (p *SlotProvider) GetInventory(id string) (*inventory.Inventory, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	inv, exists := p.inventories[id]
	if !exists {
		return nil, fmt.Errorf("inventory not found: %s", id)
	}
	return inv, nil
}

// ConsumeItems checks every requirement first and only then removes the
// consumed ones, so either all are taken or none.
func (p *SlotProvider) ConsumeItems(inv *inventory.Inventory, items []ItemRequirement) error {
	if inv == nil {
		return errors.New("inventory is nil")
	}
	need := make(map[inventory.ItemID]int, len(items))
	for _, req := range items {
		need[req.Item] += req.Quantity
	}
	for item, qty := range need {
		if have := extractable(inv, item); have < qty {
			return fmt.Errorf("%w: %s have %d need %d", ErrInsufficient, item, have, qty)
		}
	}
	for _, req := range items {
		if !req.Consume {
			continue
		}
		remaining := req.Quantity
		for _, s := range inv.Slots() {
			if remaining == 0 {
				break
			}
			if !s.Allows(inventory.AutoExtract) || s.Stack().Item != req.Item {
				continue
			}
			remaining -= s.Extract(remaining).Count
		}
	}
	return nil
}

func extractable(inv *inventory.Inventory, item inventory.ItemID) int {
	total := 0
	for _, s := range inv.Slots() {
		if st := s.Stack(); st.Item == item && s.Allows(inventory.AutoExtract) {
			total += st.Count
		}
	}
	return total
}

// AddItems places every yield. If any does not fit, the inventory is rolled
// back to its previous contents and ErrOutputFull is returned.
func (p *SlotProvider) AddItems(inv *inventory.Inventory, items []ItemYield) error {
	if inv == nil {
		return errors.New("inventory is nil")
	}
	before := inv.Snapshot()
	for _, yield := range items {
		if yield.Quantity <= 0 {
			continue
		}
		left := place(inv, inventory.NewStack(yield.Item, yield.Quantity))
		if !left.IsEmpty() {
			for i, s := range inv.Slots() {
				if !inventory.StacksEqual(s.Stack(), before[i]) {
					s.Set(before[i])
				}
			}
			return fmt.Errorf("%w: %s x%d", ErrOutputFull, yield.Item, yield.Quantity)
		}
	}
	return nil
}

// RefundItems returns items to the slots automation may insert into, then to
// matching output stacks. What still does not fit is returned.
func (p *SlotProvider) RefundItems(inv *inventory.Inventory, items []ItemYield) []inventory.Stack {
	var left []inventory.Stack
	for _, st := range yieldStacks(items) {
		if inv != nil {
			st = inv.TransferIntoAs(st, false, inventory.AutoInsert)
			for _, s := range inv.Slots() {
				if st.IsEmpty() {
					break
				}
				if cur := s.Stack(); s.IsOutput() && !s.IsFrozen() && cur.StackableWith(st) {
					st = s.Fill(st)
				}
			}
		}
		if !st.IsEmpty() {
			left = append(left, st)
		}
	}
	return left
}

func place(inv *inventory.Inventory, st inventory.Stack) inventory.Stack {
	var outputs []*inventory.Slot
	for _, s := range inv.Slots() {
		if s.IsOutput() && !s.IsFrozen() {
			outputs = append(outputs, s)
		}
	}
	if len(outputs) == 0 {
		return inv.TransferIntoAs(st, false, inventory.AutoInsert)
	}
	for _, s := range outputs {
		if cur := s.Stack(); !cur.IsEmpty() && cur.StackableWith(st) {
			st = s.Fill(st)
		}
	}
	for _, s := range outputs {
		if st.IsEmpty() {
			break
		}
		if s.IsEmpty() {
			st = s.Fill(st)
		}
	}
	return st
}

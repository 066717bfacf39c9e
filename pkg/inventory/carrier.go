package inventory

import "github.com/gravitas-games/slotcore/pkg/tag"

const (
	carrierKey     = "Inventory"
	associationKey = "OpenContainer"
)

// Carrier is an item whose auxiliary data stores a whole inventory, such as a
// bag.
type Carrier interface {
	CarrierData() tag.Compound
	SetCarrierData(tag.Compound)
}

// SlotCarrier is a carrier item sitting in a slot. When Item is set the
// carrier only reads and writes while the slot still holds that item.
type SlotCarrier struct {
	Slot *Slot
	Item ItemID
}

func (c SlotCarrier) holds() bool {
	if c.Slot == nil || c.Slot.stack.IsEmpty() {
		return false
	}
	return c.Item == "" || c.Slot.stack.Item == c.Item
}

// CarrierData returns a copy of the carried stack's auxiliary data.
func (c SlotCarrier) CarrierData() tag.Compound {
	if !c.holds() {
		return nil
	}
	return c.Slot.stack.Aux.Clone()
}

// SetCarrierData replaces the carried stack's auxiliary data. A slot that no
// longer holds the carrier has nothing to write to.
func (c SlotCarrier) SetCarrierData(data tag.Compound) {
	if !c.holds() {
		return
	}
	c.Slot.stack.Aux = data.Clone()
	c.Slot.changed()
}

// StackCarrier is a carrier item held outside any slot.
type StackCarrier struct {
	Stack *Stack
}

// CarrierData returns a copy of the stack's auxiliary data.
func (c StackCarrier) CarrierData() tag.Compound {
	if c.Stack == nil {
		return nil
	}
	return c.Stack.Aux.Clone()
}

// SetCarrierData replaces the stack's auxiliary data.
func (c StackCarrier) SetCarrierData(data tag.Compound) {
	if c.Stack == nil || c.Stack.IsEmpty() {
		return
	}
	c.Stack.Aux = data.Clone()
}

// Carrier returns the item backing the inventory, if any.
func (inv *Inventory) Carrier() Carrier { return inv.carrier }

// Associate marks the carrier item as displayed by the container id. A slot
// carrier's host slot stays frozen until Dissociate so the item cannot move
// while its contents are open.
func (inv *Inventory) Associate(containerID string) {
	if inv.carrier == nil {
		return
	}
	if host := inv.hostSlot(); host != nil && !inv.hostLocked {
		inv.hostState = host.state
		inv.hostLocked = true
		host.state |= Frozen
	}
	data := inv.carrier.CarrierData()
	if data == nil {
		data = tag.Compound{}
	}
	data[associationKey] = containerID
	inv.carrier.SetCarrierData(data)
}

// Dissociate removes the container association from the carrier item and
// releases the host slot.
func (inv *Inventory) Dissociate() {
	if inv.carrier == nil {
		return
	}
	if host := inv.hostSlot(); host != nil && inv.hostLocked {
		host.state = inv.hostState
		inv.hostLocked = false
	}
	data := inv.carrier.CarrierData()
	if _, ok := data[associationKey]; !ok {
		return
	}
	delete(data, associationKey)
	inv.carrier.SetCarrierData(data)
}

func (inv *Inventory) hostSlot() *Slot {
	switch c := inv.carrier.(type) {
	case SlotCarrier:
		return c.Slot
	case *SlotCarrier:
		if c != nil {
			return c.Slot
		}
	}
	return nil
}

// AssociatedContainer returns the container id stored on the carrier item.
func (inv *Inventory) AssociatedContainer() (string, bool) {
	if inv.carrier == nil {
		return "", false
	}
	id, ok := inv.carrier.CarrierData().String(associationKey)
	return id, ok && id != ""
}

func (inv *Inventory) loadCarrier() {
	sub, ok := inv.carrier.CarrierData().Compound(carrierKey)
	if !ok {
		return
	}
	inv.loading = true
	inv.ReadFromTag(sub)
	inv.loading = false
}

func (inv *Inventory) storeCarrier() {
	data := inv.carrier.CarrierData()
	if data == nil {
		data = tag.Compound{}
	}
	sub := tag.Compound{}
	inv.WriteToTag(sub)
	data[carrierKey] = sub
	inv.carrier.SetCarrierData(data)
}

package inventory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/gravitas-games/slotcore/pkg/tag"
)

const (
	itemsKey = "Items"
	slotKey  = "Slot"
)

// WriteToTag stores the non-empty slots under "Items". Each entry is the
// stack's tag plus its slot index.
func (inv *Inventory) WriteToTag(c tag.Compound) {
	if c == nil {
		return
	}
	items := make(tag.List, 0, len(inv.slots))
	for _, s := range inv.slots {
		if s.stack.IsEmpty() {
			continue
		}
		entry := s.stack.ToTag()
		entry[slotKey] = uint8(s.index)
		items = append(items, entry)
	}
	c[itemsKey] = items
}

// ReadFromTag restores slot contents written by WriteToTag. A compound
// without "Items" leaves the inventory untouched; otherwise slots missing
// from the list end up empty. Entries with an index outside the inventory
// are skipped.
func (inv *Inventory) ReadFromTag(c tag.Compound) {
	items, ok := c.List(itemsKey)
	if !ok {
		return
	}
	prev := inv.loading
	inv.loading = true
	contents := make([]Stack, len(inv.slots))
	for _, raw := range items {
		entry, ok := tag.AsCompound(raw)
		if !ok {
			continue
		}
		idx, ok := entry.Int(slotKey)
		if !ok || idx < 0 || int(idx) >= len(inv.slots) {
			inv.logger.Warn("skipping persisted slot",
				zap.String("inventory", inv.ID),
				zap.Int64("slot", idx))
			continue
		}
		st, ok := StackFromTag(entry)
		if !ok {
			continue
		}
		contents[idx] = st
	}
	for i, s := range inv.slots {
		if StacksEqual(s.stack, contents[i]) {
			continue
		}
		if over := s.Set(contents[i]); !over.IsEmpty() {
			inv.logger.Warn("persisted stack exceeds slot capacity",
				zap.String("inventory", inv.ID),
				zap.Int("slot", i),
				zap.Int("dropped", over.Count))
		}
	}
	inv.loading = prev
	if !prev && inv.carrier != nil {
		inv.storeCarrier()
	}
}

// MarshalBinary encodes the inventory contents as a msgpack tag tree.
func (inv *Inventory) MarshalBinary() ([]byte, error) {
	c := tag.Compound{}
	inv.WriteToTag(c)
	data, err := tag.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("inventory %s: encode: %w", inv.ID, err)
	}
	return data, nil
}

// UnmarshalBinary restores contents encoded by MarshalBinary.
func (inv *Inventory) UnmarshalBinary(data []byte) error {
	c, err := tag.Unmarshal(data)
	if err != nil {
		return fmt.Errorf("inventory %s: decode: %w", inv.ID, err)
	}
	inv.ReadFromTag(c)
	return nil
}

package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInventory(size int, opts ...Option) *Inventory {
	opts = append([]Option{WithRegistry(SampleRegistry())}, opts...)
	return New("test", OwnerID("u1"), size, opts...)
}

func mustSlot(t *testing.T, inv *Inventory, i int) *Slot {
	t.Helper()
	s, ok := inv.Slot(i)
	require.True(t, ok, "slot %d", i)
	return s
}

func TestSlotInsertMergesUpToCapacity(t *testing.T) {
	inv := newTestInventory(1)
	s := mustSlot(t, inv, 0)
	s.Set(NewStack("stone", 60))

	left := s.Insert(NewStack("stone", 10), FullStack, false)

	assert.Equal(t, 6, left.Count)
	assert.Equal(t, ItemID("stone"), left.Item)
	assert.Equal(t, 64, s.Stack().Count)
	assert.True(t, s.IsFull())
}

func TestSlotInsertHonoursAmount(t *testing.T) {
	inv := newTestInventory(1)
	s := mustSlot(t, inv, 0)

	left := s.Insert(NewStack("dirt", 10), 1, false)

	assert.Equal(t, 9, left.Count)
	assert.Equal(t, 1, s.Stack().Count)
}

func TestSlotInsertRejectsDifferentItemWithoutForce(t *testing.T) {
	inv := newTestInventory(1)
	s := mustSlot(t, inv, 0)
	s.Set(NewStack("dirt", 5))

	left := s.Insert(NewStack("stone", 3), FullStack, false)

	assert.True(t, StacksEqual(NewStack("stone", 3), left))
	assert.True(t, StacksEqual(NewStack("dirt", 5), s.Stack()))
}

func TestSlotForcedSwapReturnsEvictedStack(t *testing.T) {
	inv := newTestInventory(1)
	s := mustSlot(t, inv, 0)
	s.Set(NewStack("dirt", 5))

	left := s.Insert(NewStack("stone", 3), FullStack, true)

	assert.True(t, StacksEqual(NewStack("dirt", 5), left))
	assert.True(t, StacksEqual(NewStack("stone", 3), s.Stack()))
}

func TestSlotForcedSwapNeverLosesItems(t *testing.T) {
	inv := newTestInventory(1, WithSlotLimit(4))
	s := mustSlot(t, inv, 0)
	s.Set(NewStack("dirt", 4))

	left := s.Insert(NewStack("stone", 5), FullStack, true)

	assert.True(t, StacksEqual(NewStack("stone", 5), left))
	assert.True(t, StacksEqual(NewStack("dirt", 4), s.Stack()))
}

func TestSlotInvalidItemIsIdempotentNoop(t *testing.T) {
	noDirt := ValidatorFunc(func(_ *Slot, st Stack) bool { return st.Item != "dirt" })
	inv := newTestInventory(2, WithValidator(noDirt))
	s := mustSlot(t, inv, 0)
	changes := 0
	inv.Events().Subscribe(func(e Event) {
		if e.Type == EventSlotChanged {
			changes++
		}
	})

	candidate := NewStack("dirt", 7)
	first := s.Insert(candidate, FullStack, true)
	second := s.Insert(candidate, FullStack, true)

	assert.True(t, StacksEqual(candidate, first))
	assert.True(t, StacksEqual(first, second))
	assert.True(t, s.IsEmpty())
	assert.Zero(t, changes)
}

func TestOutputSlotOnlyAcceptsFill(t *testing.T) {
	inv := newTestInventory(1)
	_, ok := inv.ReplaceSlot(0, AsOutput())
	require.True(t, ok)
	s := mustSlot(t, inv, 0)

	assert.False(t, s.Allows(PlayerInsert))
	assert.False(t, s.Allows(AutoInsert))
	assert.True(t, s.Allows(PlayerExtract))

	left := s.Insert(NewStack("iron_ingot", 2), FullStack, false)
	assert.Equal(t, 2, left.Count)
	assert.True(t, s.IsEmpty())

	left = s.Fill(NewStack("iron_ingot", 2))
	assert.True(t, left.IsEmpty())
	assert.Equal(t, 2, s.Stack().Count)
}

func TestSlotExtract(t *testing.T) {
	inv := newTestInventory(1)
	s := mustSlot(t, inv, 0)
	s.Set(NewStack("stone", 10))

	part := s.Extract(3)
	assert.Equal(t, 3, part.Count)
	assert.Equal(t, 7, s.Stack().Count)

	rest := s.Extract(FullStack)
	assert.Equal(t, 7, rest.Count)
	assert.True(t, s.IsEmpty())

	assert.True(t, s.Extract(FullStack).IsEmpty())
}

func TestSlotExtractInto(t *testing.T) {
	inv := newTestInventory(1)
	s := mustSlot(t, inv, 0)
	s.Set(NewStack("ender_pearl", 10))

	target := NewStack("ender_pearl", 12)
	filled := s.ExtractInto(&target)

	assert.True(t, filled)
	assert.Equal(t, 16, target.Count)
	assert.Equal(t, 6, s.Stack().Count)

	other := NewStack("stone", 1)
	assert.False(t, s.ExtractInto(&other))
	assert.Equal(t, 1, other.Count)
}

func TestSlotSetClampsToCapacity(t *testing.T) {
	inv := newTestInventory(1)
	s := mustSlot(t, inv, 0)

	over := s.Set(NewStack("ender_pearl", 40))

	assert.Equal(t, 24, over.Count)
	assert.Equal(t, 16, s.Stack().Count)
	assert.Equal(t, 16, s.Capacity("ender_pearl"))
}

func TestSlotStackIsACopy(t *testing.T) {
	inv := newTestInventory(1)
	s := mustSlot(t, inv, 0)
	s.Set(Stack{Item: "stone", Count: 3, Aux: map[string]any{"level": int32(1)}})

	st := s.Stack()
	st.Count = 50
	st.Aux["level"] = int32(9)

	got := s.Stack()
	assert.Equal(t, 3, got.Count)
	assert.Equal(t, int32(1), got.Aux["level"])
}

func TestPermissionNeverWiderThanInventory(t *testing.T) {
	perms := []State{PlayerInsert, PlayerExtract, AutoInsert, AutoExtract}
	inv := newTestInventory(1)
	s := mustSlot(t, inv, 0)

	for invState := State(0); invState < 32; invState++ {
		for slotState := State(0); slotState < 32; slotState++ {
			inv.SetState(invState)
			s.SetState(slotState)
			for _, p := range perms {
				if s.Allows(p) {
					assert.True(t, invState.Has(p), "inv=%s slot=%s p=%s", invState, slotState, p)
					assert.False(t, s.IsFrozen())
				}
			}
		}
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "none", State(0).String())
	assert.Equal(t, "player_insert|frozen", (PlayerInsert | Frozen).String())
	assert.True(t, DefaultState.Has(PlayerInsert|AutoExtract))
	assert.False(t, DefaultState.Without(AutoExtract).Has(AutoExtract))
}

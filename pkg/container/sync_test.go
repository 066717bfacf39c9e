package container

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravitas-games/slotcore/pkg/inventory"
)

func TestOpenSendsEverythingOwnInventoryLast(t *testing.T) {
	f := newFixture(t, 27)
	slotOf(t, f.chest, 3).Set(stack("coal", 2))
	s := NewSynchronizer(f.c)

	updates := s.Open()

	require.Len(t, updates, 27+36)
	assert.Equal(t, 1, updates[0].Inventory)
	assert.Equal(t, OwnInventory, updates[len(updates)-1].Inventory)
	assert.Equal(t, 2, updates[3].Stack.Count)
	assert.True(t, s.Diff().Empty())
}

func TestDiffReportsOnlyChangedSlot(t *testing.T) {
	f := newFixture(t, 27)
	s := NewSynchronizer(f.c)
	s.Open()

	slotOf(t, f.chest, 5).Set(stack("stone", 3))
	d := s.Diff()

	require.Len(t, d.Slots, 1)
	assert.Equal(t, 1, d.Slots[0].Inventory)
	assert.Equal(t, 5, d.Slots[0].Slot)
	assert.Nil(t, d.Held)
	assert.Nil(t, d.Drag)
	assert.True(t, s.Diff().Empty())
}

func TestDiffIsNotFooledByInPlaceChanges(t *testing.T) {
	f := newFixture(t, 1)
	slot := slotOf(t, f.chest, 0)
	slot.Set(stack("stone", 3))
	s := NewSynchronizer(f.c)
	s.Open()

	slot.Insert(stack("stone", 1), inventory.FullStack, false)
	d := s.Diff()

	require.Len(t, d.Slots, 1)
	assert.Equal(t, 4, d.Slots[0].Stack.Count)
}

func TestDiffTracksHeldAndDrag(t *testing.T) {
	f := newFixture(t, 3)
	slotOf(t, f.chest, 0).Set(stack("coal", 8))
	s := NewSynchronizer(f.c)
	s.Open()

	f.c.HandleAction(ActionClick, 1, 0, ButtonLeft)
	d := s.Diff()
	require.NotNil(t, d.Held)
	assert.Equal(t, 8, d.Held.Count)
	assert.Len(t, d.Slots, 1)

	f.c.HandleAction(ActionDragStart, 0, NoSlot, DragLeft)
	f.c.HandleAction(ActionDragAdd, 1, 1, 0)
	f.c.HandleAction(ActionDragAdd, 1, 2, 0)
	d = s.Diff()
	require.NotNil(t, d.Drag)
	assert.Equal(t, DragSpread, d.Drag.Mode)
	assert.Len(t, d.Drag.Slots, 2)
	assert.Empty(t, d.Slots)
	assert.Nil(t, d.Held)
}

func TestInvalidateResendsEverything(t *testing.T) {
	f := newFixture(t, 2)
	s := NewSynchronizer(f.c)
	s.Open()

	s.Invalidate()
	d := s.Diff()

	assert.Len(t, d.Slots, 2+36)
	assert.NotNil(t, d.Held)
	assert.NotNil(t, d.Drag)
	assert.True(t, s.Diff().Empty())
}

func TestDiffPicksUpAddedInventory(t *testing.T) {
	f := newFixture(t, 2)
	s := NewSynchronizer(f.c)
	s.Open()

	require.NoError(t, f.c.AddInventory(2, inventory.New("extra", "w", 3)))
	d := s.Diff()

	assert.Len(t, d.Slots, 3)
	for _, u := range d.Slots {
		assert.Equal(t, 2, u.Inventory)
	}
}

func TestSharedInventoryVisibleToBothSessions(t *testing.T) {
	f := newFixture(t, 2)
	other := New("u2", inventory.New("p2", "u2", 4))
	require.NoError(t, other.AddInventory(1, f.chest))
	s := NewSynchronizer(other)
	s.Open()

	slotOf(t, f.chest, 1).Set(stack("coal", 1))
	d := s.Diff()

	require.Len(t, d.Slots, 1)
	assert.Equal(t, 1, d.Slots[0].Slot)
	assert.Len(t, f.chest.Viewers(), 2)
}

func TestMirrorConvergesUnderRandomActions(t *testing.T) {
	f := newFixture(t, 9, WithPrivilege(PrivilegeFunc(func(inventory.OwnerID) bool { return true })))
	f.player.TransferInto(stack("stone", 100), false)
	f.player.TransferInto(stack("coal", 40), false)
	f.chest.TransferInto(stack("ender_pearl", 20), false)
	s := NewSynchronizer(f.c)
	m := NewMirror()
	m.Reset(s.Open())
	require.True(t, m.Matches(f.c))

	rng := rand.New(rand.NewSource(7))
	ids := []int{OwnInventory, 1}
	for step := 0; step < 500; step++ {
		id := ids[rng.Intn(len(ids))]
		inv, _ := f.c.Inventory(id)
		action := ActionType(rng.Intn(int(ActionDragReset) + 1))
		f.c.HandleAction(action, id, rng.Intn(inv.Size()), rng.Intn(3))
		m.Apply(s.Diff())
		require.True(t, m.Matches(f.c), "step %d action %s", step, action)
	}
}

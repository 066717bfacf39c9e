package container

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravitas-games/slotcore/pkg/inventory"
)

type dropRecorder struct {
	drops []inventory.Stack
}

func (r *dropRecorder) EjectItem(_ inventory.Location, s inventory.Stack) {
	r.drops = append(r.drops, s)
}

type fixture struct {
	c      *Container
	player *inventory.Inventory
	chest  *inventory.Inventory
	drops  *dropRecorder
}

func newFixture(t *testing.T, chestSize int, opts ...Option) fixture {
	t.Helper()
	reg := inventory.SampleRegistry()
	player := inventory.New("player", "u1", 36, inventory.WithRegistry(reg))
	chest := inventory.New("chest", "world", chestSize, inventory.WithRegistry(reg))
	drops := &dropRecorder{}
	opts = append([]Option{WithEjector(drops)}, opts...)
	c := New("u1", player, opts...)
	require.NoError(t, c.AddInventory(1, chest))
	return fixture{c: c, player: player, chest: chest, drops: drops}
}

func slotOf(t *testing.T, inv *inventory.Inventory, i int) *inventory.Slot {
	t.Helper()
	s, ok := inv.Slot(i)
	require.True(t, ok)
	return s
}

func stack(item string, n int) inventory.Stack {
	return inventory.NewStack(inventory.ItemID(item), n)
}

func TestClickPicksUpAndPlaces(t *testing.T) {
	f := newFixture(t, 3)
	slotOf(t, f.chest, 0).Set(stack("stone", 7))

	held := f.c.HandleAction(ActionClick, 1, 0, ButtonRight)
	assert.Equal(t, 4, held.Count)
	assert.Equal(t, 3, slotOf(t, f.chest, 0).Stack().Count)

	held = f.c.HandleAction(ActionClick, 1, 1, ButtonRight)
	assert.Equal(t, 3, held.Count)
	assert.Equal(t, 1, slotOf(t, f.chest, 1).Stack().Count)

	held = f.c.HandleAction(ActionClick, 1, 0, ButtonLeft)
	assert.True(t, held.IsEmpty())
	assert.Equal(t, 6, slotOf(t, f.chest, 0).Stack().Count)

	held = f.c.HandleAction(ActionClick, 1, 0, ButtonLeft)
	assert.Equal(t, 6, held.Count)
	assert.True(t, slotOf(t, f.chest, 0).IsEmpty())
}

func TestLeftClickSwapsDifferentItems(t *testing.T) {
	f := newFixture(t, 1)
	slotOf(t, f.chest, 0).Set(stack("dirt", 5))
	f.c.SetHeld(stack("stone", 3))

	held := f.c.HandleAction(ActionClick, 1, 0, ButtonLeft)

	assert.True(t, inventory.StacksEqual(stack("dirt", 5), held))
	assert.True(t, inventory.StacksEqual(stack("stone", 3), slotOf(t, f.chest, 0).Stack()))
}

func TestClickRespectsPermissions(t *testing.T) {
	f := newFixture(t, 2)
	f.chest.SetState(inventory.DefaultState.Without(inventory.PlayerInsert))
	slotOf(t, f.chest, 0).Set(stack("coal", 4))
	f.c.SetHeld(stack("stone", 3))

	held := f.c.HandleAction(ActionClick, 1, 1, ButtonLeft)
	assert.Equal(t, 3, held.Count)
	assert.True(t, slotOf(t, f.chest, 1).IsEmpty())

	f.c.SetHeld(inventory.Stack{})
	f.chest.SetState(inventory.DefaultState.Without(inventory.PlayerExtract))
	held = f.c.HandleAction(ActionClick, 1, 0, ButtonLeft)
	assert.True(t, held.IsEmpty())
	assert.Equal(t, 4, slotOf(t, f.chest, 0).Stack().Count)
}

func TestClickTakesFromOutputSlot(t *testing.T) {
	f := newFixture(t, 1)
	f.chest.ReplaceSlot(0, inventory.AsOutput())
	slotOf(t, f.chest, 0).Fill(stack("iron_ingot", 5))
	f.c.SetHeld(stack("iron_ingot", 62))

	held := f.c.HandleAction(ActionClick, 1, 0, ButtonLeft)

	assert.Equal(t, 64, held.Count)
	assert.Equal(t, 3, slotOf(t, f.chest, 0).Stack().Count)
}

func TestFrozenSlotIgnoresEverything(t *testing.T) {
	f := newFixture(t, 1)
	s := slotOf(t, f.chest, 0)
	s.Set(stack("coal", 4))
	s.SetState(inventory.DefaultState | inventory.Frozen)

	for _, a := range []ActionType{ActionClick, ActionShiftClick, ActionDrop, ActionHotbarSwap} {
		held := f.c.HandleAction(a, 1, 0, 0)
		assert.True(t, held.IsEmpty(), a.String())
	}
	assert.Equal(t, 4, s.Stack().Count)
	assert.Empty(t, f.drops.drops)
}

func TestInvalidTargetsAreIgnored(t *testing.T) {
	f := newFixture(t, 1)
	f.c.SetHeld(stack("stone", 2))

	assert.Equal(t, 2, f.c.HandleAction(ActionClick, 9, 0, ButtonLeft).Count)
	assert.Equal(t, 2, f.c.HandleAction(ActionClick, 1, 99, ButtonLeft).Count)
	assert.Equal(t, 2, f.c.HandleAction(ActionClick, 1, -4, ButtonLeft).Count)
	assert.Equal(t, 2, f.c.HandleAction(ActionType(77), 1, 0, 0).Count)
}

func TestShiftClickFillsPartialThenEmpty(t *testing.T) {
	f := newFixture(t, 2)
	slotOf(t, f.player, 0).Set(stack("stone", 64))
	slotOf(t, f.chest, 0).Set(stack("stone", 10))

	f.c.HandleAction(ActionShiftClick, OwnInventory, 0, 0)

	assert.Equal(t, 64, slotOf(t, f.chest, 0).Stack().Count)
	assert.Equal(t, 10, slotOf(t, f.chest, 1).Stack().Count)
	assert.True(t, slotOf(t, f.player, 0).IsEmpty())
}

func TestShiftClickKeepsRemainderAtSource(t *testing.T) {
	f := newFixture(t, 1)
	slotOf(t, f.player, 4).Set(stack("stone", 64))
	slotOf(t, f.chest, 0).Set(stack("stone", 60))

	f.c.HandleAction(ActionShiftClick, OwnInventory, 4, 0)

	assert.Equal(t, 64, slotOf(t, f.chest, 0).Stack().Count)
	assert.Equal(t, 60, slotOf(t, f.player, 4).Stack().Count)
}

func TestShiftClickFromChestGoesToPlayer(t *testing.T) {
	f := newFixture(t, 3)
	slotOf(t, f.chest, 2).Set(stack("coal", 12))

	f.c.HandleAction(ActionShiftClick, 1, 2, 0)

	assert.Equal(t, 12, f.player.Count("coal"))
	assert.True(t, slotOf(t, f.chest, 2).IsEmpty())
}

func TestDoubleClickGathersPartialStacks(t *testing.T) {
	f := newFixture(t, 4)
	slotOf(t, f.chest, 0).Set(stack("stone", 20))
	slotOf(t, f.chest, 1).Set(stack("dirt", 5))
	slotOf(t, f.chest, 2).Set(stack("stone", 64))
	slotOf(t, f.chest, 3).Set(stack("stone", 40))
	f.c.SetHeld(stack("stone", 10))

	held := f.c.HandleAction(ActionDoubleClick, 1, 0, ClickPlain)

	assert.Equal(t, 64, held.Count)
	assert.True(t, slotOf(t, f.chest, 0).IsEmpty())
	assert.Equal(t, 5, slotOf(t, f.chest, 1).Stack().Count)
	assert.Equal(t, 64, slotOf(t, f.chest, 2).Stack().Count)
	assert.Equal(t, 6, slotOf(t, f.chest, 3).Stack().Count)
}

func TestShiftDoubleClickRepeatsLastShift(t *testing.T) {
	f := newFixture(t, 4)
	slotOf(t, f.chest, 0).Set(stack("stone", 8))
	slotOf(t, f.chest, 1).Set(stack("dirt", 5))
	slotOf(t, f.chest, 3).Set(stack("stone", 3))

	f.c.HandleAction(ActionShiftClick, 1, 0, 0)
	f.c.HandleAction(ActionDoubleClick, 1, 0, ClickShift)

	assert.Equal(t, 11, f.player.Count("stone"))
	assert.Equal(t, 5, f.chest.Count("dirt"))
	assert.Zero(t, f.chest.Count("stone"))
}

func TestHotbarSwap(t *testing.T) {
	f := newFixture(t, 2)
	slotOf(t, f.chest, 0).Set(stack("dirt", 5))
	slotOf(t, f.player, 2).Set(stack("stone", 3))

	f.c.HandleAction(ActionHotbarSwap, 1, 0, 2)

	assert.True(t, inventory.StacksEqual(stack("stone", 3), slotOf(t, f.chest, 0).Stack()))
	assert.True(t, inventory.StacksEqual(stack("dirt", 5), slotOf(t, f.player, 2).Stack()))
}

func TestHotbarSwapPrefersMerge(t *testing.T) {
	f := newFixture(t, 1)
	slotOf(t, f.chest, 0).Set(stack("stone", 10))
	slotOf(t, f.player, 0).Set(stack("stone", 60))

	f.c.HandleAction(ActionHotbarSwap, 1, 0, 0)

	assert.Equal(t, 64, slotOf(t, f.player, 0).Stack().Count)
	assert.Equal(t, 6, slotOf(t, f.chest, 0).Stack().Count)
}

func TestHotbarSwapRefusesWhenCapacityWouldBeExceeded(t *testing.T) {
	f := newFixture(t, 1)
	f.chest.ReplaceSlot(0, inventory.WithLimit(4))
	slotOf(t, f.chest, 0).Set(stack("dirt", 2))
	slotOf(t, f.player, 1).Set(stack("stone", 30))

	f.c.HandleAction(ActionHotbarSwap, 1, 0, 1)

	assert.Equal(t, 2, f.chest.Count("dirt"))
	assert.Equal(t, 30, f.player.Count("stone"))

	f.c.HandleAction(ActionHotbarSwap, 1, 0, 12)
	assert.Equal(t, 2, f.chest.Count("dirt"))
}

func TestDrop(t *testing.T) {
	f := newFixture(t, 1)
	slotOf(t, f.chest, 0).Set(stack("coal", 4))
	f.c.SetHeld(stack("stone", 5))

	f.c.HandleAction(ActionDrop, 1, 0, DropOne)
	f.c.HandleAction(ActionDrop, 1, NoSlot, DropOne)
	held := f.c.HandleAction(ActionDrop, 1, NoSlot, DropStack)
	f.c.HandleAction(ActionDrop, 1, 0, DropStack)

	require.Len(t, f.drops.drops, 4)
	assert.True(t, inventory.StacksEqual(stack("coal", 1), f.drops.drops[0]))
	assert.True(t, inventory.StacksEqual(stack("stone", 1), f.drops.drops[1]))
	assert.True(t, inventory.StacksEqual(stack("stone", 4), f.drops.drops[2]))
	assert.True(t, inventory.StacksEqual(stack("coal", 3), f.drops.drops[3]))
	assert.True(t, held.IsEmpty())
	assert.True(t, slotOf(t, f.chest, 0).IsEmpty())
}

func TestDropWithoutEjectorDoesNothing(t *testing.T) {
	player := inventory.New("p", "u1", 4)
	slotOf(t, player, 0).Set(stack("coal", 4))
	c := New("u1", player)

	c.HandleAction(ActionDrop, OwnInventory, 0, DropStack)

	assert.Equal(t, 4, player.Count("coal"))
}

func TestPickBlockRequiresPrivilege(t *testing.T) {
	f := newFixture(t, 1)
	slotOf(t, f.chest, 0).Set(stack("ender_pearl", 2))

	held := f.c.HandleAction(ActionPickBlock, 1, 0, 0)
	assert.True(t, held.IsEmpty())

	g := newFixture(t, 1, WithPrivilege(PrivilegeFunc(func(owner inventory.OwnerID) bool {
		return owner == "u1"
	})))
	slotOf(t, g.chest, 0).Set(stack("ender_pearl", 2))

	held = g.c.HandleAction(ActionPickBlock, 1, 0, 0)
	assert.Equal(t, 16, held.Count)
	assert.Equal(t, 2, slotOf(t, g.chest, 0).Stack().Count)
}

func TestAddRemoveInventory(t *testing.T) {
	f := newFixture(t, 1)
	other := inventory.New("other", "w", 2)

	assert.ErrorIs(t, f.c.AddInventory(OwnInventory, other), ErrOwnInventory)
	assert.ErrorIs(t, f.c.AddInventory(1, other), ErrInventoryExists)
	assert.ErrorIs(t, f.c.RemoveInventory(OwnInventory), ErrOwnInventory)
	assert.ErrorIs(t, f.c.RemoveInventory(5), ErrUnknownInventory)

	require.NoError(t, f.c.AddInventory(2, other))
	assert.Equal(t, []int{0, 1, 2}, f.c.InventoryIDs())
	assert.Len(t, other.Viewers(), 1)

	require.NoError(t, f.c.RemoveInventory(2))
	assert.Empty(t, other.Viewers())
}

func TestCloseReturnsHeldStack(t *testing.T) {
	closed := 0
	f := newFixture(t, 1, OnClose(func(*Container) { closed++ }))
	f.c.SetHeld(stack("coal", 9))

	f.c.Close()
	f.c.Close()

	assert.Equal(t, 9, f.player.Count("coal"))
	assert.True(t, f.c.Held().IsEmpty())
	assert.Empty(t, f.chest.Viewers())
	assert.Empty(t, f.player.Viewers())
	assert.Equal(t, 1, closed)
	assert.ErrorIs(t, f.c.AddInventory(3, inventory.New("x", "w", 1)), ErrClosed)
}

func TestCloseEjectsWhatDoesNotFit(t *testing.T) {
	reg := inventory.SampleRegistry()
	player := inventory.New("player", "u1", 1, inventory.WithRegistry(reg))
	slotOf(t, player, 0).Set(stack("dirt", 64))
	drops := &dropRecorder{}
	c := New("u1", player, WithEjector(drops))
	c.SetHeld(stack("stone", 5))

	c.Close()

	require.Len(t, drops.drops, 1)
	assert.True(t, inventory.StacksEqual(stack("stone", 5), drops.drops[0]))
}

func TestBreakingAnInventoryClosesTheContainer(t *testing.T) {
	f := newFixture(t, 2)
	slotOf(t, f.chest, 0).Set(stack("coal", 2))

	f.chest.Break(f.drops, inventory.Location{})

	assert.True(t, f.c.Closed())
	assert.Empty(t, f.player.Viewers())
	require.Len(t, f.drops.drops, 1)
}

func TestCarrierAssociationClearedOnClose(t *testing.T) {
	bag := stack("backpack", 1)
	bagInv := inventory.New("bag", "u1", 4, inventory.WithCarrier(inventory.StackCarrier{Stack: &bag}))
	c := New("u1", inventory.New("player", "u1", 4))
	require.NoError(t, c.AddInventory(1, bagInv))

	id, ok := bagInv.AssociatedContainer()
	require.True(t, ok)
	assert.Equal(t, c.ID(), id)

	c.Close()
	_, ok = bagInv.AssociatedContainer()
	assert.False(t, ok)
}

func TestOpenBagCannotLeaveItsSlot(t *testing.T) {
	reg := inventory.SampleRegistry()
	player := inventory.New("player", "u1", 36, inventory.WithRegistry(reg))
	host := slotOf(t, player, 0)
	host.Set(stack("backpack", 1))
	slotOf(t, player, 3).Set(stack("iron_sword", 1))
	bag := inventory.New("bag", "u1", 4, inventory.WithRegistry(reg),
		inventory.WithCarrier(inventory.SlotCarrier{Slot: host, Item: "backpack"}))

	c := New("u1", player)
	require.NoError(t, c.AddInventory(1, bag))

	assert.True(t, c.HandleAction(ActionClick, OwnInventory, 0, ButtonLeft).IsEmpty())
	c.HandleAction(ActionHotbarSwap, OwnInventory, 3, 0)
	c.HandleAction(ActionShiftClick, OwnInventory, 0, 0)
	assert.Equal(t, inventory.ItemID("backpack"), host.Stack().Item)
	assert.Equal(t, inventory.ItemID("iron_sword"), slotOf(t, player, 3).Stack().Item)

	bag.TransferInto(stack("coal", 5), false)
	stored, ok := host.Stack().Aux.Compound("Inventory")
	require.True(t, ok)
	restored := inventory.New("check", "u1", 4)
	restored.ReadFromTag(stored)
	assert.Equal(t, 5, restored.Count("coal"))

	c.Close()
	assert.False(t, host.IsFrozen())
	_, ok = bag.AssociatedContainer()
	assert.False(t, ok)
}

func TestParseAction(t *testing.T) {
	for a := ActionClick; a <= ActionDragReset; a++ {
		got, err := ParseAction(a.String())
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}
	_, err := ParseAction("teleport")
	assert.ErrorIs(t, err, ErrUnknownAction)
}

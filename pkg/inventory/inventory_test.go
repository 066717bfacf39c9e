package inventory

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingViewer struct {
	id     string
	closed int
}

func (v *recordingViewer) ViewerID() string { return v.id }
func (v *recordingViewer) Close()           { v.closed++ }

func TestNewClampsSize(t *testing.T) {
	assert.Equal(t, 0, New("a", "u", -3).Size())
	assert.Equal(t, MaxSlots, New("b", "u", MaxSlots+10).Size())
}

func TestTransferIntoTopsUpPartialsFirst(t *testing.T) {
	inv := newTestInventory(4)
	mustSlot(t, inv, 2).Set(NewStack("stone", 10))

	left := inv.TransferInto(NewStack("stone", 64), false)

	require.True(t, left.IsEmpty())
	snap := inv.Snapshot()
	assert.Equal(t, 10, snap[0].Count)
	assert.True(t, snap[1].IsEmpty())
	assert.Equal(t, 64, snap[2].Count)
	assert.True(t, snap[3].IsEmpty())
}

func TestTransferIntoReversed(t *testing.T) {
	inv := newTestInventory(4)

	inv.TransferInto(NewStack("dirt", 70), true)

	snap := inv.Snapshot()
	assert.Equal(t, 64, snap[3].Count)
	assert.Equal(t, 6, snap[2].Count)
	assert.True(t, snap[0].IsEmpty())
}

func TestTransferIntoReturnsOverflow(t *testing.T) {
	inv := newTestInventory(2)

	left := inv.TransferInto(NewStack("ender_pearl", 40), false)

	assert.Equal(t, 8, left.Count)
	assert.Equal(t, 32, inv.Count("ender_pearl"))
}

func TestTransferIntoAsSkipsDisallowedSlots(t *testing.T) {
	inv := newTestInventory(3)
	mustSlot(t, inv, 0).SetState(DefaultState.Without(AutoInsert))
	mustSlot(t, inv, 1).SetState(DefaultState | Frozen)

	left := inv.TransferIntoAs(NewStack("coal", 5), false, AutoInsert)

	require.True(t, left.IsEmpty())
	snap := inv.Snapshot()
	assert.True(t, snap[0].IsEmpty())
	assert.True(t, snap[1].IsEmpty())
	assert.Equal(t, 5, snap[2].Count)
}

func TestTransferStopsAtFirstPartialSource(t *testing.T) {
	dst := newTestInventory(1)
	mustSlot(t, dst, 0).Set(NewStack("dirt", 60))
	src := newTestInventory(2)
	mustSlot(t, src, 0).Set(NewStack("dirt", 10))
	mustSlot(t, src, 1).Set(NewStack("stone", 5))

	dst.Transfer(src)

	assert.Equal(t, 64, dst.Count("dirt"))
	assert.Equal(t, 6, mustSlot(t, src, 0).Stack().Count)
	assert.Equal(t, 5, mustSlot(t, src, 1).Stack().Count)
}

func TestPullItemStack(t *testing.T) {
	inv := newTestInventory(3)
	mustSlot(t, inv, 1).Set(NewStack("coal", 3))
	mustSlot(t, inv, 2).Set(NewStack("stone", 1))

	got := inv.PullItemStack()

	assert.True(t, StacksEqual(NewStack("coal", 3), got))
	assert.True(t, mustSlot(t, inv, 1).IsEmpty())
	assert.True(t, StacksEqual(NewStack("stone", 1), inv.PullItemStack()))
	assert.True(t, inv.PullItemStack().IsEmpty())
}

func TestBreakEjectsAndClosesViewers(t *testing.T) {
	inv := newTestInventory(3)
	mustSlot(t, inv, 0).Set(NewStack("coal", 3))
	mustSlot(t, inv, 2).Set(NewStack("stone", 9))
	viewer := &recordingViewer{id: "c1"}
	inv.Register(viewer)
	broken := false
	inv.Events().Subscribe(func(e Event) {
		if e.Type == EventBroken {
			broken = true
		}
	})

	var ejected []Stack
	loc := Location{World: "overworld", X: 1, Y: 64, Z: -3}
	inv.Break(EjectorFunc(func(at Location, s Stack) {
		assert.Equal(t, loc, at)
		ejected = append(ejected, s)
	}), loc)

	require.Len(t, ejected, 2)
	assert.Equal(t, 3, ejected[0].Count)
	assert.Equal(t, 9, ejected[1].Count)
	assert.Zero(t, inv.Count("coal")+inv.Count("stone"))
	assert.Equal(t, 1, viewer.closed)
	assert.Empty(t, inv.Viewers())
	assert.True(t, broken)
}

func TestRegisterPublishesOnce(t *testing.T) {
	inv := newTestInventory(1)
	var types []EventType
	id := inv.Events().Subscribe(func(e Event) { types = append(types, e.Type) })
	v := &recordingViewer{id: "v"}

	inv.Register(v)
	inv.Register(v)
	inv.Unregister(v)
	inv.Unregister(v)
	inv.Events().Unsubscribe(id)
	inv.Register(v)

	assert.Equal(t, []EventType{EventOpened, EventClosed}, types)
	assert.Len(t, inv.Viewers(), 1)
}

func TestReplaceSlotKeepsContents(t *testing.T) {
	inv := newTestInventory(2)
	mustSlot(t, inv, 1).Set(NewStack("stone", 30))

	over, ok := inv.ReplaceSlot(1, WithLimit(8))

	require.True(t, ok)
	assert.Equal(t, 22, over.Count)
	assert.Equal(t, 8, mustSlot(t, inv, 1).Stack().Count)
	assert.Equal(t, 2, inv.Size())

	_, ok = inv.ReplaceSlot(5)
	assert.False(t, ok)
}

func TestConservationAcrossRandomOperations(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	a := newTestInventory(5, WithSlotLimit(20))
	b := newTestInventory(4)
	invs := []*Inventory{a, b}
	items := []ItemID{"stone", "ender_pearl", "coal"}
	pool := map[ItemID]int{"stone": 500, "ender_pearl": 100, "coal": 250}
	total := func() map[ItemID]int {
		out := make(map[ItemID]int, len(items))
		for _, item := range items {
			out[item] = pool[item] + a.Count(item) + b.Count(item)
		}
		return out
	}
	want := total()

	for step := 0; step < 2000; step++ {
		inv := invs[rng.Intn(len(invs))]
		s := mustSlot(t, inv, rng.Intn(inv.Size()))
		item := items[rng.Intn(len(items))]
		switch rng.Intn(4) {
		case 0, 1:
			if pool[item] == 0 {
				continue
			}
			n := 1 + rng.Intn(minInt(pool[item], 80))
			pool[item] -= n
			left := s.Insert(NewStack(item, n), rng.Intn(n+1), rng.Intn(2) == 0)
			pool[left.Item] += left.Count
		case 2:
			out := s.Extract(rng.Intn(30) - 1)
			pool[out.Item] += out.Count
		case 3:
			if pool[item] == 0 {
				continue
			}
			n := 1 + rng.Intn(minInt(pool[item], 100))
			pool[item] -= n
			left := inv.TransferInto(NewStack(item, n), rng.Intn(2) == 0)
			pool[left.Item] += left.Count
		}

		require.Equal(t, want, total(), "step %d", step)
		for _, check := range invs {
			for _, cs := range check.Slots() {
				st := cs.Stack()
				if !st.IsEmpty() {
					require.LessOrEqual(t, st.Count, cs.Capacity(st.Item), "step %d", step)
				}
			}
		}
	}
}

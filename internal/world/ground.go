package world

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gravitas-games/slotcore/pkg/inventory"
)

// DroppedItem is an item entity lying on the ground.
type DroppedItem struct {
	ID        uuid.UUID          `json:"id"`
	Location  inventory.Location `json:"location"`
	Stack     inventory.Stack    `json:"stack"`
	DroppedAt time.Time          `json:"droppedAt"`
}

// Ground collects everything ejected from containers and broken blocks.
// It implements inventory.Ejector.
type Ground struct {
	mu     sync.Mutex
	items  map[uuid.UUID]DroppedItem
	clock  func() time.Time
	logger *zap.Logger
}

// NewGround creates an empty ground.
func NewGround(logger *zap.Logger) *Ground {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ground{
		items:  make(map[uuid.UUID]DroppedItem),
		clock:  time.Now,
		logger: logger,
	}
}

// EjectItem spawns a dropped item entity at loc. Empty stacks are ignored.
func (g *Ground) EjectItem(loc inventory.Location, s inventory.Stack) {
	if s.IsEmpty() {
		return
	}
	item := DroppedItem{
		ID:        uuid.New(),
		Location:  loc,
		Stack:     s.Clone(),
		DroppedAt: g.clock(),
	}
	g.mu.Lock()
	g.items[item.ID] = item
	g.mu.Unlock()
	g.logger.Debug("item dropped",
		zap.String("item", string(s.Item)),
		zap.Int("count", s.Count),
		zap.Int("x", loc.X), zap.Int("y", loc.Y), zap.Int("z", loc.Z))
}

// Items returns every dropped item, oldest first.
func (g *Ground) Items() []DroppedItem {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]DroppedItem, 0, len(g.items))
	for _, it := range g.items {
		it.Stack = it.Stack.Clone()
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DroppedAt.Equal(out[j].DroppedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].DroppedAt.Before(out[j].DroppedAt)
	})
	return out
}

// Count returns the total number of units of item lying on the ground.
func (g *Ground) Count(item inventory.ItemID) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	total := 0
	for _, it := range g.items {
		if it.Stack.Item == item {
			total += it.Stack.Count
		}
	}
	return total
}

// Pickup moves a dropped item into inv. Whatever does not fit stays on the
// ground. It reports how many units were picked up.
func (g *Ground) Pickup(id uuid.UUID, inv *inventory.Inventory) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	it, ok := g.items[id]
	if !ok {
		return 0
	}
	left := inv.TransferIntoAs(it.Stack, false, inventory.PlayerInsert)
	moved := it.Stack.Count - left.Count
	if left.IsEmpty() {
		delete(g.items, id)
	} else {
		it.Stack = left
		g.items[id] = it
	}
	return moved
}

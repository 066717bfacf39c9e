// Package world holds the block inventories shared between players: chests,
// machines and the hoppers that feed them, plus the ground that catches
// ejected items.
package world

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gravitas-games/slotcore/internal/config"
	"github.com/gravitas-games/slotcore/pkg/inventory"
	"github.com/gravitas-games/slotcore/pkg/production"
)

// Owner owns every block inventory.
const Owner inventory.OwnerID = "world"

// ErrUnknownBlock is returned for block ids that are not placed.
var ErrUnknownBlock = errors.New("world: unknown block")

// BlockKind tells chests and machines apart.
type BlockKind string

const (
	KindChest   BlockKind = "chest"
	KindMachine BlockKind = "machine"
)

// Block is a placed block with an inventory.
type Block struct {
	ID        string
	Kind      BlockKind
	Location  inventory.Location
	Inventory *inventory.Inventory
	Recipe    production.RecipeID
}

// InventoryStore persists block inventories between runs.
type InventoryStore interface {
	Load(ctx context.Context, inv *inventory.Inventory) (bool, error)
	Save(ctx context.Context, inv *inventory.Inventory) error
}

// World owns the shared block inventories and drives automation.
type World struct {
	name      string
	slotLimit int
	registry  *inventory.Registry
	recipes   *production.RecipeRegistry
	provider  *production.SlotProvider
	manager   *production.Manager
	ground    *Ground
	logger    *zap.Logger

	mu      sync.Mutex
	blocks  map[string]*Block
	byPos   map[inventory.Location]string
	hoppers []*production.Hopper
}

// Option configures a World.
type Option func(*options)

type options struct {
	logger   *zap.Logger
	onEvent  func(production.Event)
	clock    func() time.Time
	registry *inventory.Registry
}

// WithLogger sets the world logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithProductionEvents receives every machine job event. The handler runs
// inside the production manager and must not call back into the world.
func WithProductionEvents(fn func(production.Event)) Option {
	return func(o *options) { o.onEvent = fn }
}

// WithClock replaces time.Now for machine jobs.
func WithClock(clock func() time.Time) Option {
	return func(o *options) { o.clock = clock }
}

// WithRegistry uses reg instead of building one from the config items.
func WithRegistry(reg *inventory.Registry) Option {
	return func(o *options) { o.registry = reg }
}

// New builds the world described by cfg.
func New(cfg *config.Config, opts ...Option) (*World, error) {
	o := options{logger: zap.NewNop(), clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	reg := o.registry
	if reg == nil {
		var err error
		if reg, err = BuildRegistry(cfg.Items); err != nil {
			return nil, err
		}
	}
	recipes, err := BuildRecipes(cfg.Recipes)
	if err != nil {
		return nil, err
	}

	bus := production.NewSimpleEventBus()
	if o.onEvent != nil {
		bus.Subscribe(Owner, o.onEvent)
	}
	provider := production.NewSlotProvider()
	w := &World{
		name:      "overworld",
		slotLimit: cfg.Inventory.SlotLimit,
		registry:  reg,
		recipes:   recipes,
		provider:  provider,
		manager: production.NewManager("world", recipes, provider, bus,
			production.WithLogger(o.logger.Named("production")),
			production.WithClock(o.clock)),
		ground: NewGround(o.logger.Named("ground")),
		logger: o.logger,
		blocks: make(map[string]*Block),
		byPos:  make(map[inventory.Location]string),
	}

	for _, c := range cfg.Chests {
		if _, err := w.PlaceChest(c.ID, c.Name, c.Size, w.location(c.X, c.Y, c.Z)); err != nil {
			return nil, err
		}
	}
	for _, m := range cfg.Machines {
		if _, err := w.PlaceMachine(m.ID, m.Name, production.RecipeID(m.Recipe), w.location(m.X, m.Y, m.Z)); err != nil {
			return nil, err
		}
	}
	for _, h := range cfg.Hoppers {
		if err := w.AddHopper(h.From, h.To, h.Rate); err != nil {
			return nil, err
		}
	}
	w.logger.Info("world ready",
		zap.Int("items", len(reg.Export())),
		zap.Int("recipes", recipes.Count()),
		zap.Int("blocks", len(w.blocks)))
	return w, nil
}

// BuildRegistry turns the configured items into a registry. An empty list
// yields the sample catalog.
func BuildRegistry(items []config.ItemConfig) (*inventory.Registry, error) {
	if len(items) == 0 {
		return inventory.SampleRegistry(), nil
	}
	reg := inventory.NewRegistry()
	for _, it := range items {
		err := reg.RegisterDetails(inventory.ItemDetails{
			ID:       inventory.ItemID(it.ID),
			Name:     it.Name,
			Category: it.Category,
			MaxStack: it.MaxStack,
		})
		if err != nil {
			return nil, fmt.Errorf("item %s: %w", it.ID, err)
		}
	}
	return reg, nil
}

// BuildRecipes turns the configured recipes into a recipe registry.
func BuildRecipes(recipes []config.RecipeConfig) (*production.RecipeRegistry, error) {
	reg := production.NewRecipeRegistry()
	for _, rc := range recipes {
		r := &production.Recipe{
			ID:       production.RecipeID(rc.ID),
			Name:     rc.Name,
			Duration: rc.Duration,
		}
		for _, in := range rc.Inputs {
			r.Inputs = append(r.Inputs, production.ItemRequirement{
				Item:     inventory.ItemID(in.Item),
				Quantity: in.Quantity,
				Consume:  !in.Tool,
			})
		}
		for _, out := range rc.Outputs {
			r.Outputs = append(r.Outputs, production.ItemYield{
				Item:     inventory.ItemID(out.Item),
				Quantity: out.Quantity,
			})
		}
		if err := reg.Register(r); err != nil {
			return nil, fmt.Errorf("recipe %s: %w", rc.ID, err)
		}
	}
	return reg, nil
}

func (w *World) location(x, y, z int) inventory.Location {
	return inventory.Location{World: w.name, X: x, Y: y, Z: z}
}

// Registry returns the item registry shared by every inventory.
func (w *World) Registry() *inventory.Registry { return w.registry }

// Recipes returns the recipe registry.
func (w *World) Recipes() *production.RecipeRegistry { return w.recipes }

// Production returns the machine job manager.
func (w *World) Production() *production.Manager { return w.manager }

// Ground returns the dropped item collection.
func (w *World) Ground() *Ground { return w.ground }

// Location returns a location in this world.
func (w *World) Location(x, y, z int) inventory.Location { return w.location(x, y, z) }

// PlaceChest places a chest with size slots at loc.
func (w *World) PlaceChest(id, name string, size int, loc inventory.Location) (*Block, error) {
	if name == "" {
		name = "Chest"
	}
	inv := inventory.New(id, Owner, size,
		inventory.WithRegistry(w.registry),
		inventory.WithName(name),
		inventory.WithSlotLimit(w.slotLimit),
		inventory.WithLogger(w.logger))
	return w.place(&Block{ID: id, Kind: KindChest, Location: loc, Inventory: inv})
}

// PlaceMachine places a machine running recipe at loc. The machine has one
// input slot per recipe input followed by one output slot per recipe output.
func (w *World) PlaceMachine(id, name string, recipe production.RecipeID, loc inventory.Location) (*Block, error) {
	r := w.recipes.Lookup(recipe)
	if r == nil {
		return nil, fmt.Errorf("machine %s: recipe not found: %s", id, recipe)
	}
	if name == "" {
		name = r.Name
	}
	inputs := len(r.Inputs)
	inv := inventory.New(id, Owner, inputs+len(r.Outputs),
		inventory.WithRegistry(w.registry),
		inventory.WithName(name),
		inventory.WithSlotLimit(w.slotLimit),
		inventory.WithLogger(w.logger))
	for i := inputs; i < inv.Size(); i++ {
		inv.ReplaceSlot(i, inventory.AsOutput())
	}
	return w.place(&Block{ID: id, Kind: KindMachine, Location: loc, Inventory: inv, Recipe: recipe})
}

func (w *World) place(b *Block) (*Block, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, exists := w.blocks[b.ID]; exists {
		return nil, fmt.Errorf("block %s already placed", b.ID)
	}
	if other, taken := w.byPos[b.Location]; taken {
		return nil, fmt.Errorf("block %s: position taken by %s", b.ID, other)
	}
	w.blocks[b.ID] = b
	w.byPos[b.Location] = b.ID
	w.provider.AddInventory(b.Inventory)
	return b, nil
}

// AddHopper feeds rate items per tick from one block into another.
func (w *World) AddHopper(from, to string, rate int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	src, ok := w.blocks[from]
	if !ok {
		return fmt.Errorf("hopper source %s: %w", from, ErrUnknownBlock)
	}
	dst, ok := w.blocks[to]
	if !ok {
		return fmt.Errorf("hopper target %s: %w", to, ErrUnknownBlock)
	}
	w.hoppers = append(w.hoppers, &production.Hopper{From: src.Inventory, To: dst.Inventory, Rate: rate})
	return nil
}

// Block returns the block with the given id.
func (w *World) Block(id string) (*Block, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, ok := w.blocks[id]
	return b, ok
}

// BlockAt returns the block placed at loc.
func (w *World) BlockAt(loc inventory.Location) (*Block, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	id, ok := w.byPos[loc]
	if !ok {
		return nil, false
	}
	return w.blocks[id], true
}

// Blocks returns every placed block ordered by id.
func (w *World) Blocks() []*Block {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]*Block, 0, len(w.blocks))
	for _, b := range w.blocks {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Break removes a block. Its contents drop to the ground at the block
// position, containers viewing it close, and its machine jobs stop.
func (w *World) Break(id string) error {
	w.mu.Lock()
	b, ok := w.blocks[id]
	if !ok {
		w.mu.Unlock()
		return fmt.Errorf("break %s: %w", id, ErrUnknownBlock)
	}
	delete(w.blocks, id)
	delete(w.byPos, b.Location)
	hoppers := w.hoppers[:0]
	for _, h := range w.hoppers {
		if h.From != b.Inventory && h.To != b.Inventory {
			hoppers = append(hoppers, h)
		}
	}
	w.hoppers = hoppers
	w.mu.Unlock()

	for _, job := range w.manager.JobsFor(id) {
		left, err := w.manager.CancelProductionWithRefund(job.ID)
		if err != nil {
			w.logger.Warn("failed to refund production job",
				zap.String("block", id),
				zap.String("job", string(job.ID)),
				zap.Error(err))
		}
		for _, st := range left {
			w.ground.EjectItem(b.Location, st)
		}
	}
	w.provider.RemoveInventory(id)
	b.Inventory.Break(w.ground, b.Location)
	w.logger.Info("block broken", zap.String("block", id), zap.String("kind", string(b.Kind)))
	return nil
}

// Tick advances automation: hoppers move items, machines finish due jobs
// and idle machines start a new cycle when their inputs are present.
func (w *World) Tick(now time.Time) {
	w.mu.Lock()
	hoppers := append([]*production.Hopper(nil), w.hoppers...)
	machines := make([]*Block, 0, len(w.blocks))
	for _, b := range w.blocks {
		if b.Kind == KindMachine {
			machines = append(machines, b)
		}
	}
	w.mu.Unlock()
	sort.Slice(machines, func(i, j int) bool { return machines[i].ID < machines[j].ID })

	for _, h := range hoppers {
		h.Step()
	}
	w.manager.Update(now)
	for _, m := range machines {
		if len(w.manager.JobsFor(m.ID)) > 0 {
			continue
		}
		_, err := w.manager.StartRepeatingProduction(m.Recipe, Owner, m.ID)
		if err != nil && !errors.Is(err, production.ErrInsufficient) {
			w.logger.Warn("machine start failed", zap.String("block", m.ID), zap.Error(err))
		}
	}
}

// Load restores every block inventory saved in store.
func (w *World) Load(ctx context.Context, store InventoryStore) error {
	for _, b := range w.Blocks() {
		if _, err := store.Load(ctx, b.Inventory); err != nil {
			return fmt.Errorf("load block %s: %w", b.ID, err)
		}
	}
	return nil
}

// Save writes every block inventory to store.
func (w *World) Save(ctx context.Context, store InventoryStore) error {
	var errs []error
	for _, b := range w.Blocks() {
		if err := store.Save(ctx, b.Inventory); err != nil {
			errs = append(errs, fmt.Errorf("save block %s: %w", b.ID, err))
		}
	}
	return errors.Join(errs...)
}

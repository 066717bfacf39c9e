// Package container implements the interaction session that sits between a
// player and the inventories they have open: the currently held stack, the
// click and drag state machine, and the synchronizer that keeps a remote
// display in step with the authoritative slots.
//
// A Container has a single writer. Callers serialize HandleAction, Close and
// Synchronizer.Diff for one container; inventories shared between containers
// see each other's changes immediately.
package container

import (
	"errors"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gravitas-games/slotcore/pkg/inventory"
)

// OwnInventory is the id reserved for the opener's own inventory.
const OwnInventory = 0

var (
	// ErrOwnInventory is returned when trying to replace or remove inventory 0.
	ErrOwnInventory = errors.New("container: inventory 0 belongs to the opener")
	// ErrInventoryExists is returned when an id is already in use.
	ErrInventoryExists = errors.New("container: inventory id already in use")
	// ErrUnknownInventory is returned for ids that are not open.
	ErrUnknownInventory = errors.New("container: unknown inventory id")
	// ErrClosed is returned for changes to a closed container.
	ErrClosed = errors.New("container: closed")
	// ErrUnknownAction is returned by ParseAction for unknown names.
	ErrUnknownAction = errors.New("container: unknown action")
)

// PrivilegeChecker decides whether an owner may use creative-only actions.
type PrivilegeChecker interface {
	HasElevatedPrivilege(owner inventory.OwnerID) bool
}

// PrivilegeFunc adapts a function to PrivilegeChecker.
type PrivilegeFunc func(owner inventory.OwnerID) bool

// HasElevatedPrivilege calls f(owner).
func (f PrivilegeFunc) HasElevatedPrivilege(owner inventory.OwnerID) bool { return f(owner) }

// Container aggregates the inventories one player has open together.
type Container struct {
	id          string
	owner       inventory.OwnerID
	inventories map[int]*inventory.Inventory

	held      inventory.Stack
	drag      dragState
	lastShift inventory.Stack

	location  inventory.Location
	ejector   inventory.Ejector
	privilege PrivilegeChecker
	logger    *zap.Logger
	onClose   []func(*Container)
	closed    bool
}

// Option configures a container.
type Option func(*Container)

// WithID overrides the generated container id.
func WithID(id string) Option {
	return func(c *Container) {
		if id != "" {
			c.id = id
		}
	}
}

// WithEjector sets where dropped items go. Without one, drops do nothing.
func WithEjector(e inventory.Ejector) Option {
	return func(c *Container) { c.ejector = e }
}

// WithLocation sets the location used for dropped items.
func WithLocation(loc inventory.Location) Option {
	return func(c *Container) { c.location = loc }
}

// WithPrivilege sets the checker gating pick-block. Without one, pick-block
// is always denied.
func WithPrivilege(p PrivilegeChecker) Option {
	return func(c *Container) { c.privilege = p }
}

// WithLogger sets the logger for rejected input.
func WithLogger(l *zap.Logger) Option {
	return func(c *Container) {
		if l != nil {
			c.logger = l
		}
	}
}

// OnClose registers a callback run once the container has closed.
func OnClose(fn func(*Container)) Option {
	return func(c *Container) {
		if fn != nil {
			c.onClose = append(c.onClose, fn)
		}
	}
}

// New opens a container for owner with own as inventory 0.
func New(owner inventory.OwnerID, own *inventory.Inventory, opts ...Option) *Container {
	c := &Container{
		id:          uuid.NewString(),
		owner:       owner,
		inventories: make(map[int]*inventory.Inventory),
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	c.logger = c.logger.With(zap.String("container", c.id))
	if own == nil {
		own = inventory.New("", owner, 0)
	}
	c.attach(OwnInventory, own)
	return c
}

// ID returns the container id.
func (c *Container) ID() string { return c.id }

// ViewerID implements inventory.Viewer.
func (c *Container) ViewerID() string { return c.id }

// Owner returns the session owner.
func (c *Container) Owner() inventory.OwnerID { return c.owner }

// Location returns where dropped items are ejected.
func (c *Container) Location() inventory.Location { return c.location }

// Closed reports whether Close has run.
func (c *Container) Closed() bool { return c.closed }

// Held returns a copy of the stack on the cursor.
func (c *Container) Held() inventory.Stack { return c.held.Clone() }

// SetHeld replaces the stack on the cursor.
func (c *Container) SetHeld(s inventory.Stack) { c.held = s.Clone() }

// Inventory returns the inventory open under id.
func (c *Container) Inventory(id int) (*inventory.Inventory, bool) {
	inv, ok := c.inventories[id]
	return inv, ok
}

// InventoryIDs returns the open ids in ascending order.
func (c *Container) InventoryIDs() []int {
	ids := make([]int, 0, len(c.inventories))
	for id := range c.inventories {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// AddInventory opens inv under id.
func (c *Container) AddInventory(id int, inv *inventory.Inventory) error {
	if c.closed {
		return ErrClosed
	}
	if id == OwnInventory {
		return ErrOwnInventory
	}
	if id < 0 || inv == nil {
		return ErrUnknownInventory
	}
	if _, exists := c.inventories[id]; exists {
		return ErrInventoryExists
	}
	c.attach(id, inv)
	return nil
}

// RemoveInventory closes the inventory open under id.
func (c *Container) RemoveInventory(id int) error {
	if id == OwnInventory {
		return ErrOwnInventory
	}
	inv, ok := c.inventories[id]
	if !ok {
		return ErrUnknownInventory
	}
	c.resetDrag()
	c.detach(id, inv)
	return nil
}

// Close returns the held stack to inventory 0, ejecting what does not fit,
// and releases every inventory. Closing twice is a no-op.
func (c *Container) Close() {
	if c.closed {
		return
	}
	c.resetDrag()
	if !c.held.IsEmpty() {
		left := c.inventories[OwnInventory].TransferInto(c.held, false)
		c.held = inventory.Stack{}
		c.eject(left)
	}
	for _, id := range c.InventoryIDs() {
		c.detach(id, c.inventories[id])
	}
	c.closed = true
	for _, fn := range c.onClose {
		fn(c)
	}
}

func (c *Container) attach(id int, inv *inventory.Inventory) {
	c.inventories[id] = inv
	inv.Register(c)
	if id != OwnInventory && inv.Carrier() != nil {
		inv.Associate(c.id)
	}
}

func (c *Container) detach(id int, inv *inventory.Inventory) {
	delete(c.inventories, id)
	inv.Unregister(c)
	if len(inv.Viewers()) == 0 {
		inv.Dissociate()
	}
}

func (c *Container) eject(s inventory.Stack) {
	if s.IsEmpty() {
		return
	}
	if c.ejector == nil {
		c.logger.Warn("no ejector, item discarded",
			zap.String("item", string(s.Item)),
			zap.Int("count", s.Count))
		return
	}
	c.ejector.EjectItem(c.location, s)
}

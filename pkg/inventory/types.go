package inventory

// Package inventory provides the slot model: stacks of items held in fixed
// size inventories, the permission flags that gate who may move them and the
// merge/split arithmetic that moves quantities between slots without ever
// creating or destroying items.

import "github.com/gravitas-games/slotcore/pkg/tag"

// ItemID represents an application-defined identifier for an item kind.
// The inventory system does not interpret this value.
type ItemID string

// OwnerID represents an application-defined owner identifier.
// Can be a player id, a machine id, etc.
type OwnerID string

// FullStack is the amount sentinel meaning "everything in the stack".
const FullStack = -1

// DefaultMaxStack is the per-stack maximum used for items the registry does
// not know about.
const DefaultMaxStack = 64

// MaxSlots is the largest inventory size the persisted format can address.
const MaxSlots = 256

// Stack is a quantity of one item kind plus its auxiliary data.
// A stack with Count <= 0 is empty and carries no identity.
type Stack struct {
	Item  ItemID       `json:"item,omitempty"`
	Count int          `json:"count,omitempty"`
	Aux   tag.Compound `json:"aux,omitempty"`
}

// NewStack builds a stack without auxiliary data.
func NewStack(item ItemID, count int) Stack {
	return Stack{Item: item, Count: count}.normalize()
}

// IsEmpty reports whether the stack holds nothing.
func (s Stack) IsEmpty() bool {
	return s.Count <= 0 || s.Item == ""
}

// Clone returns a copy that shares no mutable state with s.
func (s Stack) Clone() Stack {
	if s.IsEmpty() {
		return Stack{}
	}
	return Stack{Item: s.Item, Count: s.Count, Aux: s.Aux.Clone()}
}

// WithCount returns a copy of s holding n units.
func (s Stack) WithCount(n int) Stack {
	return Stack{Item: s.Item, Count: n, Aux: s.Aux.Clone()}.normalize()
}

// StackableWith reports whether s and o may share a slot: both non-empty, same
// item kind, same auxiliary data.
func (s Stack) StackableWith(o Stack) bool {
	if s.IsEmpty() || o.IsEmpty() {
		return false
	}
	return s.Item == o.Item && tag.Equal(s.Aux, o.Aux)
}

// StacksEqual reports whether two stacks are identical in kind, data and
// count. Two empty stacks are equal.
func StacksEqual(a, b Stack) bool {
	if a.IsEmpty() || b.IsEmpty() {
		return a.IsEmpty() && b.IsEmpty()
	}
	return a.Count == b.Count && a.StackableWith(b)
}

func (s Stack) normalize() Stack {
	if s.IsEmpty() {
		return Stack{}
	}
	return s
}

// ToTag encodes the stack as a tag compound.
func (s Stack) ToTag() tag.Compound {
	c := tag.Compound{"id": string(s.Item), "Count": int32(s.Count)}
	if len(s.Aux) > 0 {
		c["tag"] = s.Aux.Clone()
	}
	return c
}

// StackFromTag decodes a stack written by ToTag.
func StackFromTag(c tag.Compound) (Stack, bool) {
	id, ok := c.String("id")
	if !ok || id == "" {
		return Stack{}, false
	}
	count, ok := c.Int("Count")
	if !ok || count <= 0 {
		return Stack{}, false
	}
	s := Stack{Item: ItemID(id), Count: int(count)}
	if aux, ok := c.Compound("tag"); ok && len(aux) > 0 {
		s.Aux = aux.Clone()
	}
	return s, true
}

// Location identifies a place in the world where items can be ejected.
type Location struct {
	World string `json:"world,omitempty"`
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Z     int    `json:"z"`
}

// Ejector releases items into the world, e.g. as dropped entities.
type Ejector interface {
	EjectItem(loc Location, s Stack)
}

// EjectorFunc adapts a function to the Ejector interface.
type EjectorFunc func(loc Location, s Stack)

// EjectItem calls f(loc, s).
func (f EjectorFunc) EjectItem(loc Location, s Stack) { f(loc, s) }

// ItemValidator restricts which items an inventory accepts.
type ItemValidator interface {
	ValidateItem(slot *Slot, s Stack) bool
}

// ValidatorFunc adapts a function to the ItemValidator interface.
type ValidatorFunc func(slot *Slot, s Stack) bool

// ValidateItem calls f(slot, s).
func (f ValidatorFunc) ValidateItem(slot *Slot, s Stack) bool { return f(slot, s) }

// Viewer is anything that displays an inventory, typically an open container.
// Inventories keep a non-owning registration of their viewers and close them
// when the inventory is broken.
type Viewer interface {
	ViewerID() string
	Close()
}

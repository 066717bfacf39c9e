package inventory

import (
	"errors"
	"sort"
	"sync"
)

// ItemDetails captures metadata about an item kind. Only MaxStack affects slot
// arithmetic; the rest is passed through to clients.
type ItemDetails struct {
	ID         ItemID            `json:"id" yaml:"id"`
	NumericID  int64             `json:"numericId,omitempty" yaml:"numeric_id"`
	Name       string            `json:"name,omitempty" yaml:"name"`
	Category   string            `json:"category,omitempty" yaml:"category"`
	MaxStack   int               `json:"maxStack,omitempty" yaml:"max_stack"`
	Attributes map[string]string `json:"attributes,omitempty" yaml:"attributes"`
}

// Registry stores item details keyed by ItemID and provides numeric handles
// for compact client catalogs.
type Registry struct {
	mu     sync.RWMutex
	items  map[ItemID]ItemDetails
	byID   map[int64]ItemID
	nextID int64
}

// NewRegistry constructs an empty registry and optionally seeds it with
// initial item details.
func NewRegistry(details ...ItemDetails) *Registry {
	r := &Registry{
		items: make(map[ItemID]ItemDetails, len(details)),
		byID:  make(map[int64]ItemID, len(details)),
	}
	for _, d := range details {
		_ = r.RegisterDetails(d) // ignore duplicates during seed
	}
	return r
}

// RegisterDetails inserts or updates metadata for an item. The ID must be
// non-empty.
func (r *Registry) RegisterDetails(details ItemDetails) error {
	if details.ID == "" {
		return errors.New("inventory: item details missing id")
	}
	if details.MaxStack < 0 {
		return errors.New("inventory: max stack must not be negative")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.items[details.ID]
	if exists {
		if details.NumericID == 0 {
			details.NumericID = existing.NumericID
		} else if existing.NumericID != 0 && existing.NumericID != details.NumericID {
			return errors.New("inventory: numeric id mismatch for existing item")
		}
	}

	if details.NumericID == 0 {
		r.nextID++
		details.NumericID = r.nextID
	} else {
		if details.NumericID < 0 {
			return errors.New("inventory: numeric id must be positive")
		}
		if owner, collision := r.byID[details.NumericID]; collision && owner != details.ID {
			return errors.New("inventory: numeric id already assigned to another item")
		}
		if details.NumericID > r.nextID {
			r.nextID = details.NumericID
		}
	}

	r.items[details.ID] = details
	r.byID[details.NumericID] = details.ID
	return nil
}

// Lookup returns details for the provided ID, if present.
func (r *Registry) Lookup(id ItemID) (ItemDetails, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	details, ok := r.items[id]
	return details, ok
}

// MaxStackFor returns the per-stack maximum of an item kind. Unknown items and
// a nil registry fall back to DefaultMaxStack.
func (r *Registry) MaxStackFor(id ItemID) int {
	if r == nil {
		return DefaultMaxStack
	}
	details, ok := r.Lookup(id)
	if !ok || details.MaxStack <= 0 {
		return DefaultMaxStack
	}
	return details.MaxStack
}

// Export copies registry contents into a slice sorted by numeric id, suitable
// for sending to clients.
func (r *Registry) Export() []ItemDetails {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.items) == 0 {
		return nil
	}
	out := make([]ItemDetails, 0, len(r.items))
	for _, d := range r.items {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].NumericID != out[j].NumericID {
			return out[i].NumericID < out[j].NumericID
		}
		return out[i].ID < out[j].ID
	})
	return out
}

package production

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/gravitas-games/slotcore/pkg/inventory"
)

// RecipeRegistry stores recipes with lookup by id and by output item.
type RecipeRegistry struct {
	mu       sync.RWMutex
	recipes  map[RecipeID]*Recipe
	byOutput map[inventory.ItemID][]RecipeID
}

// NewRecipeRegistry creates an empty recipe registry.
func NewRecipeRegistry() *RecipeRegistry {
	return &RecipeRegistry{
		recipes:  make(map[RecipeID]*Recipe),
		byOutput: make(map[inventory.ItemID][]RecipeID),
	}
}

// Register adds or updates a recipe in the registry.
func (r *RecipeRegistry) Register(recipe *Recipe) error {
	if recipe == nil {
		return errors.New("recipe cannot be nil")
	}
	if recipe.ID == "" {
		return errors.New("recipe ID cannot be empty")
	}
	if len(recipe.Outputs) == 0 {
		return fmt.Errorf("recipe %s: no outputs", recipe.ID)
	}
	for i, input := range recipe.Inputs {
		if input.Item == "" {
			return fmt.Errorf("recipe %s: input %d: item ID cannot be empty", recipe.ID, i)
		}
		if input.Quantity <= 0 {
			return fmt.Errorf("recipe %s: input %d: quantity must be positive", recipe.ID, i)
		}
	}
	for i, output := range recipe.Outputs {
		if output.Item == "" {
			return fmt.Errorf("recipe %s: output %d: item ID cannot be empty", recipe.ID, i)
		}
		if output.Quantity <= 0 {
			return fmt.Errorf("recipe %s: output %d: quantity must be positive", recipe.ID, i)
		}
		if output.Probability < 0 || output.Probability > 1 {
			return fmt.Errorf("recipe %s: output %d: probability must be between 0 and 1", recipe.ID, i)
		}
		if output.Probability == 0 {
			recipe.Outputs[i].Probability = 1
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, exists := r.recipes[recipe.ID]; exists {
		r.removeIndices(existing)
	}
	r.recipes[recipe.ID] = recipe
	for _, output := range recipe.Outputs {
		r.byOutput[output.Item] = append(r.byOutput[output.Item], recipe.ID)
	}
	return nil
}

// removeIndices drops recipe from the output index (caller must hold lock).
func (r *RecipeRegistry) removeIndices(recipe *Recipe) {
	for _, output := range recipe.Outputs {
		ids := r.byOutput[output.Item]
		kept := ids[:0]
		for _, id := range ids {
			if id != recipe.ID {
				kept = append(kept, id)
			}
		}
		if len(kept) == 0 {
			delete(r.byOutput, output.Item)
		} else {
			r.byOutput[output.Item] = kept
		}
	}
}

// Lookup retrieves a recipe by ID. Returns nil if not found.
func (r *RecipeRegistry) Lookup(id RecipeID) *Recipe {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.recipes[id]
}

// GetByOutput returns the ids of recipes producing item.
func (r *RecipeRegistry) GetByOutput(item inventory.ItemID) []RecipeID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.byOutput[item]
	if ids == nil {
		return nil
	}
	out := make([]RecipeID, len(ids))
	copy(out, ids)
	return out
}

// GetAll returns every recipe ordered by id.
func (r *RecipeRegistry) GetAll() []*Recipe {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Recipe, 0, len(r.recipes))
	for _, recipe := range r.recipes {
		out = append(out, recipe)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Count returns the number of recipes in the registry.
func (r *RecipeRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.recipes)
}

// Remove deletes a recipe. Returns true if it existed.
func (r *RecipeRegistry) Remove(id RecipeID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	recipe, exists := r.recipes[id]
	if !exists {
		return false
	}
	r.removeIndices(recipe)
	delete(r.recipes, id)
	return true
}

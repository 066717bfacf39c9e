// Package production runs machines on top of slot inventories. Machines take
// their inputs through automation permissions and place results in output
// slots, so a player watching the same inventory sees every step through the
// normal slot change path.
package production

import (
	"time"

	"github.com/gravitas-games/slotcore/pkg/inventory"
)

// RecipeID uniquely identifies a recipe.
type RecipeID string

// JobID uniquely identifies a production job.
type JobID string

// Recipe defines the transformation rules for production.
type Recipe struct {
	ID       RecipeID          `json:"id" yaml:"id"`
	Name     string            `json:"name" yaml:"name"`
	Category string            `json:"category,omitempty" yaml:"category"`
	Inputs   []ItemRequirement `json:"inputs" yaml:"inputs"`
	Outputs  []ItemYield       `json:"outputs" yaml:"outputs"`
	Duration time.Duration     `json:"duration" yaml:"duration"`
}

// ItemRequirement specifies an input item for a recipe.
type ItemRequirement struct {
	Item     inventory.ItemID `json:"item" yaml:"item"`
	Quantity int              `json:"quantity" yaml:"quantity"`
	Consume  bool             `json:"consume" yaml:"consume"` // false for tools: checked, not removed
}

// ItemYield specifies an output item from a recipe.
type ItemYield struct {
	Item        inventory.ItemID `json:"item" yaml:"item"`
	Quantity    int              `json:"quantity" yaml:"quantity"`
	Probability float64          `json:"probability" yaml:"probability"` // 0 means always
}

// JobState represents the current state of a production job.
type JobState int

const (
	// JobRunning indicates the job is in progress (inputs already consumed)
	JobRunning JobState = iota
	// JobComplete indicates the job finished successfully
	JobComplete
	// JobBlocked indicates the outputs did not fit; the job retries on the
	// next update
	JobBlocked
	// JobFailed indicates the job could not continue
	JobFailed
	// JobCancelled indicates the job was manually cancelled
	JobCancelled
)

// String returns a human-readable representation of the job state.
func (s JobState) String() string {
	switch s {
	case JobRunning:
		return "Running"
	case JobComplete:
		return "Complete"
	case JobBlocked:
		return "Blocked"
	case JobFailed:
		return "Failed"
	case JobCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Job represents a single production instance in progress.
type Job struct {
	ID                JobID             `json:"id"`
	Recipe            RecipeID          `json:"recipe"`
	Owner             inventory.OwnerID `json:"owner"`
	InventoryID       string            `json:"inventoryId"`
	State             JobState          `json:"state"`
	StartTime         time.Time         `json:"startTime"`
	EndTime           time.Time         `json:"endTime"`
	Modifiers         Modifiers         `json:"modifiers"`
	EffectiveInputs   []ItemRequirement `json:"effectiveInputs"`
	EffectiveOutputs  []ItemYield       `json:"effectiveOutputs"`
	EffectiveDuration time.Duration     `json:"effectiveDuration"`
	Repeat            bool              `json:"repeat"`
	CyclesCompleted   int               `json:"cyclesCompleted"`
	pending           []ItemYield
}

// Progress returns the fraction of the current cycle elapsed at now.
func (j *Job) Progress(now time.Time) float64 {
	switch j.State {
	case JobComplete, JobBlocked:
		return 1
	case JobRunning:
	default:
		return 0
	}
	total := j.EndTime.Sub(j.StartTime)
	if total <= 0 || !now.Before(j.EndTime) {
		return 1
	}
	if now.Before(j.StartTime) {
		return 0
	}
	return float64(now.Sub(j.StartTime)) / float64(total)
}

// Modifiers represents efficiency adjustments applied to production.
type Modifiers struct {
	InputCost   float64 `json:"inputCost"`   // multiplier for consumed quantities
	OutputYield float64 `json:"outputYield"` // multiplier for produced quantities
	TimeSpeed   float64 `json:"timeSpeed"`   // multiplier for duration
	Source      string  `json:"source,omitempty"`
}

// Combine stacks multiple modifiers multiplicatively.
func (m Modifiers) Combine(other Modifiers) Modifiers {
	source := m.Source
	if source != "" && other.Source != "" {
		source = source + "+" + other.Source
	} else if other.Source != "" {
		source = other.Source
	}
	return Modifiers{
		InputCost:   m.InputCost * other.InputCost,
		OutputYield: m.OutputYield * other.OutputYield,
		TimeSpeed:   m.TimeSpeed * other.TimeSpeed,
		Source:      source,
	}
}

// ModifierSource provides modifiers for production jobs, e.g. machine
// upgrades or fuel quality.
type ModifierSource interface {
	GetModifiers(owner inventory.OwnerID, recipe RecipeID) Modifiers
}

// InventoryProvider abstracts inventory access for the production system.
type InventoryProvider interface {
	// GetInventory retrieves an inventory by ID.
	GetInventory(id string) (*inventory.Inventory, error)

	// ConsumeItems removes every consumed requirement or nothing at all.
	ConsumeItems(inv *inventory.Inventory, items []ItemRequirement) error

	// AddItems places every yield or nothing at all.
	AddItems(inv *inventory.Inventory, items []ItemYield) error

	// RefundItems places what fits and returns the rest.
	RefundItems(inv *inventory.Inventory, items []ItemYield) []inventory.Stack
}

package production

import (
	"math"
	"time"
)

// DefaultModifiers returns identity modifiers (no effect).
func DefaultModifiers() Modifiers {
	return Modifiers{InputCost: 1, OutputYield: 1, TimeSpeed: 1}
}

// applyInputModifiers scales consumed quantities, rounding up with a minimum
// of one. Tools are left alone.
func applyInputModifiers(inputs []ItemRequirement, modifier float64) []ItemRequirement {
	if len(inputs) == 0 {
		return nil
	}
	result := make([]ItemRequirement, len(inputs))
	for i, req := range inputs {
		result[i] = req
		if !req.Consume {
			continue
		}
		result[i].Quantity = int(math.Ceil(float64(req.Quantity) * modifier))
		if result[i].Quantity < 1 {
			result[i].Quantity = 1
		}
	}
	return result
}

// applyOutputModifiers scales yields, rounding down.
func applyOutputModifiers(outputs []ItemYield, modifier float64) []ItemYield {
	if len(outputs) == 0 {
		return nil
	}
	result := make([]ItemYield, len(outputs))
	for i, yield := range outputs {
		result[i] = yield
		result[i].Quantity = int(math.Floor(float64(yield.Quantity) * modifier))
		if result[i].Quantity < 0 {
			result[i].Quantity = 0
		}
	}
	return result
}

func applyDurationModifier(d time.Duration, modifier float64) time.Duration {
	if d <= 0 {
		return 0
	}
	out := time.Duration(math.Round(float64(d) * modifier))
	if out < 0 {
		return 0
	}
	return out
}

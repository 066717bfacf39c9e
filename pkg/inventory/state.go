package inventory

import "strings"

// State is a permission bitset carried by inventories and slots.
// A slot's effective permission is the AND of its own bits and its
// inventory's bits, so a slot can narrow but never widen what its inventory
// allows. Frozen works the other way round: either side freezing the slot is
// enough.
type State uint8

const (
	// PlayerInsert allows a player to put items in.
	PlayerInsert State = 1 << iota
	// PlayerExtract allows a player to take items out.
	PlayerExtract
	// AutoInsert allows automation (hoppers, machines) to put items in.
	AutoInsert
	// AutoExtract allows automation to take items out.
	AutoExtract
	// Frozen locks the slot against every interaction.
	Frozen
)

// DefaultState permits everything and is not frozen.
const DefaultState = PlayerInsert | PlayerExtract | AutoInsert | AutoExtract

// Has reports whether every bit of p is set.
func (s State) Has(p State) bool { return s&p == p }

// With returns s with the bits of p set.
func (s State) With(p State) State { return s | p }

// Without returns s with the bits of p cleared.
func (s State) Without(p State) State { return s &^ p }

// String returns a pipe separated list of flag names.
func (s State) String() string {
	if s == 0 {
		return "none"
	}
	names := []struct {
		bit  State
		name string
	}{
		{PlayerInsert, "player_insert"},
		{PlayerExtract, "player_extract"},
		{AutoInsert, "auto_insert"},
		{AutoExtract, "auto_extract"},
		{Frozen, "frozen"},
	}
	parts := make([]string, 0, len(names))
	for _, n := range names {
		if s&n.bit != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

package inventory

// SampleRegistry returns a small block-game item catalog used when the server
// configuration does not list any items.
func SampleRegistry() *Registry {
	return NewRegistry(
		ItemDetails{ID: ItemID("stone"), NumericID: 1, Name: "Stone", Category: "block"},
		ItemDetails{ID: ItemID("dirt"), NumericID: 2, Name: "Dirt", Category: "block"},
		ItemDetails{ID: ItemID("oak_log"), NumericID: 3, Name: "Oak Log", Category: "block"},
		ItemDetails{ID: ItemID("oak_planks"), NumericID: 4, Name: "Oak Planks", Category: "block"},
		ItemDetails{ID: ItemID("iron_ore"), NumericID: 5, Name: "Iron Ore", Category: "block"},
		ItemDetails{ID: ItemID("iron_ingot"), NumericID: 6, Name: "Iron Ingot", Category: "resource"},
		ItemDetails{ID: ItemID("coal"), NumericID: 7, Name: "Coal", Category: "resource"},
		ItemDetails{ID: ItemID("ender_pearl"), NumericID: 8, Name: "Ender Pearl", Category: "resource", MaxStack: 16},
		ItemDetails{ID: ItemID("iron_sword"), NumericID: 9, Name: "Iron Sword", Category: "tool", MaxStack: 1},
		ItemDetails{ID: ItemID("backpack"), NumericID: 10, Name: "Backpack", Category: "container", MaxStack: 1},
	)
}

// SampleInventory returns a player-sized inventory with a few stacks in it,
// backed by SampleRegistry.
func SampleInventory(owner OwnerID) (*Inventory, *Registry) {
	reg := SampleRegistry()
	inv := New("player-"+string(owner), owner, 36, WithRegistry(reg), WithName("Inventory"))
	inv.TransferInto(NewStack("stone", 64), false)
	inv.TransferInto(NewStack("oak_planks", 20), false)
	inv.TransferInto(NewStack("ender_pearl", 16), false)
	inv.TransferInto(NewStack("iron_sword", 1), false)
	return inv, reg
}

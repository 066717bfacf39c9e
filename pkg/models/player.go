package models

import (
	"time"

	"github.com/gravitas-games/slotcore/pkg/inventory"
)

// Permission bits carried in the JWT "permissions" claim.
const (
	PermissionPlay     int64 = 1 << 0
	PermissionCreative int64 = 1 << 1 // pick-block hands out full stacks
	PermissionBuild    int64 = 1 << 2 // may break and place blocks
	PermissionAdmin    int64 = 1 << 62
)

// Player is a connected account, built from JWT claims.
type Player struct {
	ID          string `json:"id"`          // user_id claim as a string
	Username    string `json:"username"`
	Email       string `json:"email"`
	Permissions int64  `json:"permissions"` // bitwise permission flags
	Activated   int64  `json:"activated"`   // >0 activated, 0 pending, -1 banned
	AuthMethod  string `json:"auth_method"` // "password" or "oauth"

	Connected   bool      `json:"connected"`
	ConnectedAt time.Time `json:"connected_at"`
	LastSeen    time.Time `json:"last_seen"`
	SessionID   string    `json:"session_id"`
}

// IsActive reports whether the account is activated and not banned.
func (p *Player) IsActive() bool {
	return p.Activated > 0
}

// IsBanned reports whether the account is banned.
func (p *Player) IsBanned() bool {
	return p.Activated == -1
}

// HasPermission reports whether every bit of perm is granted. Admins hold
// every permission.
func (p *Player) HasPermission(perm int64) bool {
	if p.Permissions&PermissionAdmin != 0 {
		return true
	}
	return p.Permissions&perm == perm
}

// Owner is the inventory owner id of the player.
func (p *Player) Owner() inventory.OwnerID {
	return inventory.OwnerID(p.ID)
}

// InventoryID is the key of the player's own inventory in storage.
func (p *Player) InventoryID() string {
	return "player:" + p.ID
}

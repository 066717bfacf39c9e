package network

import (
	"encoding/json"

	"github.com/gravitas-games/slotcore/pkg/container"
	"github.com/gravitas-games/slotcore/pkg/inventory"
)

// Message types - Client → Server
const (
	MsgTypeJoin            = "join"
	MsgTypeLeave           = "leave"
	MsgTypePing            = "ping"
	MsgTypeOpenContainer   = "open_container"
	MsgTypeContainerAction = "container_action"
	MsgTypeCloseContainer  = "close_container"
	MsgTypeBreakBlock      = "break_block"
)

// Message types - Server → Client
const (
	MsgTypeWelcome         = "welcome"
	MsgTypePong            = "pong"
	MsgTypeError           = "error"
	MsgTypeItemCatalog     = "item_catalog"
	MsgTypeContainerOpened = "container_opened"
	MsgTypeContainerItems  = "container_items"
	MsgTypeSlotUpdates     = "slot_updates"
	MsgTypeHeldStack       = "held_stack"
	MsgTypeDragState       = "drag_state"
	MsgTypeContainerClosed = "container_closed"
)

// Error codes sent in ErrorPayload.
const (
	ErrCodeInvalidMessage   = "INVALID_MESSAGE"
	ErrCodeUnknownType      = "UNKNOWN_MESSAGE_TYPE"
	ErrCodeNotJoined        = "NOT_JOINED"
	ErrCodeUnknownTarget    = "UNKNOWN_TARGET"
	ErrCodeUnknownContainer = "UNKNOWN_CONTAINER"
	ErrCodeUnknownAction    = "UNKNOWN_ACTION"
	ErrCodePermission       = "PERMISSION_DENIED"
	ErrCodeJoinFailed       = "JOIN_FAILED"
)

// ClientMessage represents any message from client to server
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ServerMessage represents any message from server to client
type ServerMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// --- Client Message Payloads ---

// OpenContainerPayload asks to open the player inventory, alone or together
// with a block. An empty target opens only the player inventory.
type OpenContainerPayload struct {
	Target string `json:"target,omitempty"`
}

// ContainerActionPayload is one player gesture on an open container.
// Expected is the held stack the client predicted after the action; a
// mismatch makes the server resend the whole container.
type ContainerActionPayload struct {
	Container string           `json:"container"`
	Action    string           `json:"action"`
	Inventory int              `json:"inventory"`
	Slot      int              `json:"slot"`
	Modifier  int              `json:"modifier"`
	Expected  *inventory.Stack `json:"expected,omitempty"`
}

// CloseContainerPayload closes an open container.
type CloseContainerPayload struct {
	Container string `json:"container"`
}

// BreakBlockPayload breaks a world block, dropping its contents.
type BreakBlockPayload struct {
	Target string `json:"target"`
}

// --- Server Message Payloads ---

// WelcomePayload is sent to client after successful connection
type WelcomePayload struct {
	PlayerID      string        `json:"player_id"`
	Username      string        `json:"username"`
	SessionID     string        `json:"session_id"`
	SessionStatus SessionStatus `json:"session_status"`
}

// ItemCatalogPayload lists every item kind the server knows
type ItemCatalogPayload struct {
	Items []inventory.ItemDetails `json:"items"`
}

// InventoryInfo describes one inventory inside an opened container
type InventoryInfo struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Size int    `json:"size"`
}

// ContainerOpenedPayload announces a new container and its layout
type ContainerOpenedPayload struct {
	Container   string          `json:"container"`
	Inventories []InventoryInfo `json:"inventories"`
}

// SlotUpdatesPayload carries slot contents, either the full initial set
// (container_items) or a diff (slot_updates)
type SlotUpdatesPayload struct {
	Container string                 `json:"container"`
	Updates   []container.SlotUpdate `json:"updates"`
}

// HeldStackPayload carries the stack on the cursor
type HeldStackPayload struct {
	Container string          `json:"container"`
	Stack     inventory.Stack `json:"stack"`
}

// DragStatePayload carries the in-progress drag gesture
type DragStatePayload struct {
	Container string                 `json:"container"`
	Mode      container.DragMode     `json:"mode"`
	Slots     []container.SlotUpdate `json:"slots,omitempty"`
}

// ContainerClosedPayload tells the client a container is gone
type ContainerClosedPayload struct {
	Container string `json:"container"`
}

// SessionStatus represents the current session state
type SessionStatus struct {
	State       string `json:"state"`
	PlayerCount int    `json:"player_count"`
	MaxPlayers  int    `json:"max_players"`
	ServerTick  int64  `json:"server_tick"`
	Uptime      int64  `json:"uptime"`
}

// ErrorPayload contains error information
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// DeltaMessages turns a synchronizer delta into the messages to send, in
// slots, held, drag order. An empty delta yields nothing.
func DeltaMessages(containerID string, d container.Delta) []ServerMessage {
	var out []ServerMessage
	if len(d.Slots) > 0 {
		out = append(out, ServerMessage{
			Type:    MsgTypeSlotUpdates,
			Payload: SlotUpdatesPayload{Container: containerID, Updates: d.Slots},
		})
	}
	if d.Held != nil {
		out = append(out, ServerMessage{
			Type:    MsgTypeHeldStack,
			Payload: HeldStackPayload{Container: containerID, Stack: *d.Held},
		})
	}
	if d.Drag != nil {
		out = append(out, ServerMessage{
			Type:    MsgTypeDragState,
			Payload: DragStatePayload{Container: containerID, Mode: d.Drag.Mode, Slots: d.Drag.Slots},
		})
	}
	return out
}

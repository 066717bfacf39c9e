package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/gravitas-games/slotcore/internal/network"
	"github.com/gravitas-games/slotcore/pkg/container"
	"github.com/gravitas-games/slotcore/pkg/models"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

// Connection represents a WebSocket connection to a client
type Connection struct {
	ws     *websocket.Conn
	server *Server
	player *models.Player
	logger *zap.Logger

	// Buffered channel for outbound messages
	send      chan []byte
	closeOnce sync.Once
	joined    atomic.Bool
}

// NewConnection creates a connection for an authenticated player
func NewConnection(ws *websocket.Conn, server *Server, player *models.Player) *Connection {
	return &Connection{
		ws:     ws,
		server: server,
		player: player,
		logger: server.logger.With(zap.String("player", player.ID)),
		send:   make(chan []byte, 256),
	}
}

// Handle manages the connection lifecycle
func (c *Connection) Handle() {
	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.writePump()
	c.readPump()
}

// readPump pumps messages from the WebSocket connection to the session
func (c *Connection) readPump() {
	defer c.Close()

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}

		var clientMsg network.ClientMessage
		if err := json.Unmarshal(message, &clientMsg); err != nil {
			c.logger.Debug("failed to parse client message", zap.Error(err))
			c.SendError(network.ErrCodeInvalidMessage, "Failed to parse message")
			continue
		}
		c.handleMessage(&clientMsg)
	}
}

// writePump pumps messages from the send channel to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Warn("websocket write error", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.server.ctx.Done():
			return
		}
	}
}

// handleMessage routes messages to appropriate handlers
func (c *Connection) handleMessage(msg *network.ClientMessage) {
	if msg.Type != network.MsgTypeJoin && msg.Type != network.MsgTypePing && !c.joined.Load() {
		c.SendError(network.ErrCodeNotJoined, "Join the session first")
		return
	}

	switch msg.Type {
	case network.MsgTypeJoin:
		c.handleJoin()
	case network.MsgTypeLeave:
		c.handleLeave()
	case network.MsgTypePing:
		c.handlePing()
	case network.MsgTypeOpenContainer:
		c.handleOpenContainer(msg.Payload)
	case network.MsgTypeContainerAction:
		c.handleContainerAction(msg.Payload)
	case network.MsgTypeCloseContainer:
		c.handleCloseContainer(msg.Payload)
	case network.MsgTypeBreakBlock:
		c.handleBreakBlock(msg.Payload)
	default:
		c.logger.Debug("unknown message type", zap.String("type", msg.Type))
		c.SendError(network.ErrCodeUnknownType, "Unknown message type")
	}
}

func (c *Connection) handleJoin() {
	if c.joined.Load() {
		return
	}
	ctx, cancel := context.WithTimeout(c.server.ctx, 5*time.Second)
	defer cancel()
	if err := c.server.session.Join(ctx, c.player, c); err != nil {
		c.logger.Warn("failed to join session", zap.Error(err))
		c.SendError(network.ErrCodeJoinFailed, err.Error())
		return
	}
	c.joined.Store(true)
}

func (c *Connection) handleLeave() {
	if !c.joined.CompareAndSwap(true, false) {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c.server.session.Leave(ctx, c.player.ID)
}

func (c *Connection) handlePing() {
	c.SendMessage(&network.ServerMessage{
		Type:    network.MsgTypePong,
		Payload: map[string]interface{}{"timestamp": time.Now().Unix()},
	})
}

func (c *Connection) handleOpenContainer(payload json.RawMessage) {
	var p network.OpenContainerPayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &p); err != nil {
			c.SendError(network.ErrCodeInvalidMessage, "Invalid open_container payload")
			return
		}
	}
	if _, err := c.server.session.OpenContainer(c.player.ID, p.Target); err != nil {
		c.sendSessionError(err)
	}
}

func (c *Connection) handleContainerAction(payload json.RawMessage) {
	var p network.ContainerActionPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.SendError(network.ErrCodeInvalidMessage, "Invalid container_action payload")
		return
	}
	if _, err := c.server.session.HandleAction(c.player.ID, p); err != nil {
		c.sendSessionError(err)
	}
}

func (c *Connection) handleCloseContainer(payload json.RawMessage) {
	var p network.CloseContainerPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.SendError(network.ErrCodeInvalidMessage, "Invalid close_container payload")
		return
	}
	if err := c.server.session.CloseContainer(c.player.ID, p.Container); err != nil {
		c.sendSessionError(err)
	}
}

func (c *Connection) handleBreakBlock(payload json.RawMessage) {
	var p network.BreakBlockPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.SendError(network.ErrCodeInvalidMessage, "Invalid break_block payload")
		return
	}
	if err := c.server.session.BreakBlock(c.player.ID, p.Target); err != nil {
		c.sendSessionError(err)
	}
}

func (c *Connection) sendSessionError(err error) {
	code := "INTERNAL"
	switch {
	case errors.Is(err, ErrUnknownContainer):
		code = network.ErrCodeUnknownContainer
	case errors.Is(err, ErrUnknownTarget):
		code = network.ErrCodeUnknownTarget
	case errors.Is(err, ErrNotJoined):
		code = network.ErrCodeNotJoined
	case errors.Is(err, ErrPermission):
		code = network.ErrCodePermission
	case errors.Is(err, container.ErrUnknownAction):
		code = network.ErrCodeUnknownAction
	}
	c.logger.Debug("request rejected", zap.String("code", code), zap.Error(err))
	c.SendError(code, err.Error())
}

// SendMessage queues a message for the client. Messages are dropped when the
// send buffer is full.
func (c *Connection) SendMessage(msg *network.ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("failed to marshal message", zap.String("type", msg.Type), zap.Error(err))
		return
	}

	select {
	case c.send <- data:
	default:
		c.logger.Warn("send buffer full, dropping message", zap.String("type", msg.Type))
	}
}

// SendError sends an error message to the client
func (c *Connection) SendError(code, message string) {
	c.SendMessage(&network.ServerMessage{
		Type:    network.MsgTypeError,
		Payload: network.ErrorPayload{Code: code, Message: message},
	})
}

// Close leaves the session and closes the connection
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		c.handleLeave()
		close(c.send)
		c.ws.Close()
	})
}

package server

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gravitas-games/slotcore/internal/config"
	"github.com/gravitas-games/slotcore/internal/metrics"
	"github.com/gravitas-games/slotcore/internal/network"
	"github.com/gravitas-games/slotcore/internal/storage"
	"github.com/gravitas-games/slotcore/internal/world"
	"github.com/gravitas-games/slotcore/pkg/container"
	"github.com/gravitas-games/slotcore/pkg/inventory"
	"github.com/gravitas-games/slotcore/pkg/models"
)

var (
	ErrSessionFull      = errors.New("session is full")
	ErrAlreadyJoined    = errors.New("player already joined")
	ErrNotJoined        = errors.New("player has not joined")
	ErrUnknownTarget    = errors.New("unknown container target")
	ErrUnknownContainer = errors.New("unknown container")
	ErrPermission       = errors.New("permission denied")
)

// Sender delivers server messages to one client.
type Sender interface {
	SendMessage(msg *network.ServerMessage)
}

type openContainer struct {
	c      *container.Container
	sync   *container.Synchronizer
	target string
}

type playerState struct {
	player *models.Player
	sender Sender
	inv    *inventory.Inventory
	open   *openContainer
}

// Session represents a game session
type Session struct {
	ID        string
	CreatedAt time.Time

	config  *config.Config
	world   *world.World
	store   *storage.InventoryStore
	metrics *metrics.ServerMetrics
	logger  *zap.Logger

	// mu serializes every change to players and to the inventories they can
	// reach, including shared block inventories.
	mu      sync.Mutex
	players map[string]*playerState
	state   string
	tick    int64
}

// NewSession creates a new game session
func NewSession(id string, cfg *config.Config, w *world.World, store *storage.InventoryStore, m *metrics.ServerMetrics, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.New()
	}
	return &Session{
		ID:        id,
		CreatedAt: time.Now(),
		config:    cfg,
		world:     w,
		store:     store,
		metrics:   m,
		logger:    logger.With(zap.String("session", id)),
		players:   make(map[string]*playerState),
		state:     "waiting",
	}
}

// Join adds a player, restores their inventory from the store and sends the
// welcome message and item catalog.
func (s *Session) Join(ctx context.Context, player *models.Player, sender Sender) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.players[player.ID]; exists {
		return ErrAlreadyJoined
	}
	if len(s.players) >= s.config.Session.MaxPlayers {
		return ErrSessionFull
	}

	inv := inventory.New(player.InventoryID(), player.Owner(), s.config.Inventory.PlayerSlots,
		inventory.WithRegistry(s.world.Registry()),
		inventory.WithName("Inventory"),
		inventory.WithSlotLimit(s.config.Inventory.SlotLimit),
		inventory.WithLogger(s.logger))
	if s.store != nil {
		if _, err := s.store.Load(ctx, inv); err != nil {
			return fmt.Errorf("load inventory of %s: %w", player.ID, err)
		}
	}

	player.Connected = true
	player.ConnectedAt = time.Now()
	player.LastSeen = player.ConnectedAt
	player.SessionID = s.ID
	s.players[player.ID] = &playerState{player: player, sender: sender, inv: inv}
	s.state = "running"
	s.metrics.OnlinePlayers.Inc()

	sender.SendMessage(&network.ServerMessage{
		Type: network.MsgTypeWelcome,
		Payload: network.WelcomePayload{
			PlayerID:      player.ID,
			Username:      player.Username,
			SessionID:     s.ID,
			SessionStatus: s.statusLocked(),
		},
	})
	sender.SendMessage(&network.ServerMessage{
		Type:    network.MsgTypeItemCatalog,
		Payload: network.ItemCatalogPayload{Items: s.world.Registry().Export()},
	})

	s.logger.Info("player joined",
		zap.String("player", player.ID),
		zap.String("username", player.Username))
	return nil
}

// Leave closes the player's container, saves their inventory and removes
// them. Unknown players are ignored.
func (s *Session) Leave(ctx context.Context, playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ps, ok := s.players[playerID]
	if !ok {
		return
	}
	if ps.open != nil {
		ps.open.c.Close()
	}
	if s.store != nil {
		if err := s.store.Save(ctx, ps.inv); err != nil {
			s.logger.Error("failed to save inventory", zap.String("player", playerID), zap.Error(err))
		}
	}
	ps.player.Connected = false
	ps.player.LastSeen = time.Now()
	delete(s.players, playerID)
	s.metrics.OnlinePlayers.Dec()
	if len(s.players) == 0 {
		s.state = "waiting"
	}
	s.logger.Info("player left", zap.String("player", playerID))
}

// OpenContainer opens the player's inventory, together with the block
// inventory named by target when target is not empty. Any container the
// player already had open is closed first.
func (s *Session) OpenContainer(playerID, target string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ps, ok := s.players[playerID]
	if !ok {
		return "", ErrNotJoined
	}
	var block *world.Block
	loc := s.world.Location(0, 64, 0)
	if target != "" {
		if block, ok = s.world.Block(target); !ok {
			return "", fmt.Errorf("%w: %s", ErrUnknownTarget, target)
		}
		loc = block.Location
	}
	if ps.open != nil {
		ps.open.c.Close()
	}

	player := ps.player
	c := container.New(player.Owner(), ps.inv,
		container.WithEjector(s.world.Ground()),
		container.WithLocation(loc),
		container.WithPrivilege(container.PrivilegeFunc(func(inventory.OwnerID) bool {
			return player.HasPermission(models.PermissionCreative)
		})),
		container.WithLogger(s.logger.Named("container")),
		container.OnClose(func(c *container.Container) { s.containerClosed(ps, c) }))
	if block != nil {
		if err := c.AddInventory(1, block.Inventory); err != nil {
			c.Close()
			return "", err
		}
	}
	oc := &openContainer{c: c, sync: container.NewSynchronizer(c), target: target}
	ps.open = oc
	s.metrics.OpenContainers.Inc()

	infos := make([]network.InventoryInfo, 0, 2)
	for _, id := range c.InventoryIDs() {
		inv, _ := c.Inventory(id)
		infos = append(infos, network.InventoryInfo{ID: id, Name: inv.Name, Size: inv.Size()})
	}
	ps.sender.SendMessage(&network.ServerMessage{
		Type:    network.MsgTypeContainerOpened,
		Payload: network.ContainerOpenedPayload{Container: c.ID(), Inventories: infos},
	})
	ps.sender.SendMessage(&network.ServerMessage{
		Type:    network.MsgTypeContainerItems,
		Payload: network.SlotUpdatesPayload{Container: c.ID(), Updates: oc.sync.Open()},
	})
	s.logger.Debug("container opened",
		zap.String("player", playerID),
		zap.String("container", c.ID()),
		zap.String("target", target))
	return c.ID(), nil
}

// containerClosed runs from Container.Close, whether the player closed it or
// the block it showed was broken. Callers hold s.mu.
func (s *Session) containerClosed(ps *playerState, c *container.Container) {
	if ps.open == nil || ps.open.c != c {
		return
	}
	ps.open = nil
	s.metrics.OpenContainers.Dec()
	ps.sender.SendMessage(&network.ServerMessage{
		Type:    network.MsgTypeContainerClosed,
		Payload: network.ContainerClosedPayload{Container: c.ID()},
	})
}

// HandleAction applies one container action for the player and returns the
// held stack afterwards. When the client sent its predicted held stack and
// it differs, the whole container is resent on the next tick.
func (s *Session) HandleAction(playerID string, p network.ContainerActionPayload) (inventory.Stack, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	oc, err := s.openContainerLocked(playerID, p.Container)
	if err != nil {
		s.metrics.RecordAction(p.Action, false, 0)
		return inventory.Stack{}, err
	}
	action, err := container.ParseAction(p.Action)
	if err != nil {
		s.metrics.RecordAction("unknown", false, 0)
		return oc.c.Held(), err
	}

	start := time.Now()
	held := oc.c.HandleAction(action, p.Inventory, p.Slot, p.Modifier)
	s.metrics.RecordAction(action.String(), true, time.Since(start))

	if p.Expected != nil && !inventory.StacksEqual(*p.Expected, held) {
		oc.sync.Invalidate()
		s.metrics.Resyncs.Inc()
		s.logger.Debug("client prediction mismatch",
			zap.String("player", playerID),
			zap.String("action", action.String()))
	}
	return held, nil
}

// CloseContainer closes the player's open container.
func (s *Session) CloseContainer(playerID, containerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	oc, err := s.openContainerLocked(playerID, containerID)
	if err != nil {
		return err
	}
	oc.c.Close()
	return nil
}

func (s *Session) openContainerLocked(playerID, containerID string) (*openContainer, error) {
	ps, ok := s.players[playerID]
	if !ok {
		return nil, ErrNotJoined
	}
	if ps.open == nil || ps.open.c.ID() != containerID {
		return nil, fmt.Errorf("%w: %s", ErrUnknownContainer, containerID)
	}
	return ps.open, nil
}

// BreakBlock breaks a world block on behalf of a player with build rights.
// Every container showing the block closes.
func (s *Session) BreakBlock(playerID, target string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ps, ok := s.players[playerID]
	if !ok {
		return ErrNotJoined
	}
	if !ps.player.HasPermission(models.PermissionBuild) {
		return ErrPermission
	}
	if err := s.world.Break(target); err != nil {
		if errors.Is(err, world.ErrUnknownBlock) {
			return fmt.Errorf("%w: %s", ErrUnknownTarget, target)
		}
		return err
	}
	return nil
}

// Tick advances the world and sends every player the changes to their open
// container since the previous tick.
func (s *Session) Tick(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tick++
	s.world.Tick(now)

	ids := make([]string, 0, len(s.players))
	for id := range s.players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		ps := s.players[id]
		if ps.open == nil {
			continue
		}
		delta := ps.open.sync.Diff()
		if delta.Empty() {
			continue
		}
		for _, msg := range network.DeltaMessages(ps.open.c.ID(), delta) {
			msg := msg
			ps.sender.SendMessage(&msg)
		}
		s.metrics.SlotUpdates.Add(float64(len(delta.Slots)))
	}
}

// SaveAll writes every online player inventory and every block inventory.
func (s *Session) SaveAll(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for id, ps := range s.players {
		if err := s.store.Save(ctx, ps.inv); err != nil {
			errs = append(errs, fmt.Errorf("player %s: %w", id, err))
		}
	}
	if err := s.world.Save(ctx, s.store); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// PlayerInventory returns the inventory of an online player.
func (s *Session) PlayerInventory(playerID string) (*inventory.Inventory, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ps, ok := s.players[playerID]
	if !ok {
		return nil, false
	}
	return ps.inv, true
}

// PlayerCount returns the number of joined players.
func (s *Session) PlayerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.players)
}

// GetStatus returns the current session status
func (s *Session) GetStatus() network.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

func (s *Session) statusLocked() network.SessionStatus {
	return network.SessionStatus{
		State:       s.state,
		PlayerCount: len(s.players),
		MaxPlayers:  s.config.Session.MaxPlayers,
		ServerTick:  s.tick,
		Uptime:      int64(time.Since(s.CreatedAt).Seconds()),
	}
}

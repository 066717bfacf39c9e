package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gravitas-games/slotcore/internal/metrics"
	"github.com/gravitas-games/slotcore/pkg/inventory"
)

// InventoryStore saves and restores inventory contents through a Store,
// keyed by inventory id.
type InventoryStore struct {
	store   Store
	comp    Compressor
	logger  *zap.Logger
	metrics *metrics.ServerMetrics
}

// NewInventoryStore wraps store. A nil compressor stores raw msgpack.
func NewInventoryStore(store Store, comp Compressor, logger *zap.Logger, m *metrics.ServerMetrics) *InventoryStore {
	if comp == nil {
		comp = noneCompressor{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryStore{store: store, comp: comp, logger: logger, metrics: m}
}

// Load restores inv from the store. It reports false when nothing was saved
// under inv.ID, leaving inv untouched.
func (s *InventoryStore) Load(ctx context.Context, inv *inventory.Inventory) (bool, error) {
	start := time.Now()
	found, err := s.load(ctx, inv)
	s.record("load", err, start)
	return found, err
}

func (s *InventoryStore) load(ctx context.Context, inv *inventory.Inventory) (bool, error) {
	raw, err := s.store.Get(ctx, inv.ID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	data, err := s.comp.Decompress(raw)
	if err != nil {
		return false, fmt.Errorf("inventory %s: %s decompress: %w", inv.ID, s.comp.Name(), err)
	}
	if err := inv.UnmarshalBinary(data); err != nil {
		return false, err
	}
	s.logger.Debug("inventory loaded",
		zap.String("inventory", inv.ID),
		zap.Int("bytes", len(raw)))
	return true, nil
}

// Save writes the current contents of inv.
func (s *InventoryStore) Save(ctx context.Context, inv *inventory.Inventory) error {
	start := time.Now()
	err := s.save(ctx, inv)
	s.record("save", err, start)
	return err
}

func (s *InventoryStore) save(ctx context.Context, inv *inventory.Inventory) error {
	data, err := inv.MarshalBinary()
	if err != nil {
		return err
	}
	packed, err := s.comp.Compress(data)
	if err != nil {
		return fmt.Errorf("inventory %s: %s compress: %w", inv.ID, s.comp.Name(), err)
	}
	return s.store.Put(ctx, inv.ID, packed)
}

// Delete forgets the saved contents of the inventory with the given id.
func (s *InventoryStore) Delete(ctx context.Context, id string) error {
	start := time.Now()
	err := s.store.Delete(ctx, id)
	s.record("delete", err, start)
	return err
}

// Close closes the underlying store.
func (s *InventoryStore) Close() error {
	return s.store.Close()
}

func (s *InventoryStore) record(op string, err error, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordStore(op, err, time.Since(start))
	}
	if err != nil {
		s.logger.Warn("inventory store operation failed", zap.String("op", op), zap.Error(err))
	}
}

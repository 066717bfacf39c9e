package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravitas-games/slotcore/internal/config"
	"github.com/gravitas-games/slotcore/internal/metrics"
	"github.com/gravitas-games/slotcore/pkg/inventory"
)

func TestCompressors(t *testing.T) {
	payload := bytes.Repeat([]byte("iron_ingot"), 200)
	for _, name := range []string{CompressionNone, CompressionSnappy, CompressionZstd} {
		t.Run(name, func(t *testing.T) {
			c, err := NewCompressor(name)
			require.NoError(t, err)
			assert.Equal(t, name, c.Name())

			packed, err := c.Compress(payload)
			require.NoError(t, err)
			if name != CompressionNone {
				assert.Less(t, len(packed), len(payload))
			}
			out, err := c.Decompress(packed)
			require.NoError(t, err)
			assert.Equal(t, payload, out)
		})
	}

	_, err := NewCompressor("lz4")
	assert.Error(t, err)
}

func testStore(t *testing.T, s Store) {
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(ctx, "a", []byte{1, 2, 3}))
	require.NoError(t, s.Put(ctx, "a", []byte{4, 5}))
	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte{4, 5}, got)

	require.NoError(t, s.Delete(ctx, "a"))
	_, err = s.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, s.Delete(ctx, "a"))
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", "inv.db"))
	require.NoError(t, err)
	defer s.Close()
	testStore(t, s)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	testStore(t, NewRedisStore(client, "slotcore-test:"))
}

func TestOpen(t *testing.T) {
	s, err := Open(config.StorageConfig{Driver: "memory"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	_, err = Open(config.StorageConfig{Driver: "redis"}, nil)
	assert.Error(t, err)

	_, err = Open(config.StorageConfig{Driver: "etcd"}, nil)
	assert.Error(t, err)
}

func TestInventoryStoreRoundTrip(t *testing.T) {
	for _, name := range []string{CompressionNone, CompressionZstd, CompressionSnappy} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			comp, err := NewCompressor(name)
			require.NoError(t, err)
			store := NewInventoryStore(NewMemoryStore(), comp, nil, metrics.New())

			inv, _ := inventory.SampleInventory("alice")
			inv.TransferInto(inventory.NewStack("iron_ingot", 40), false)
			s, _ := inv.Slot(20)
			s.Set(inventory.NewStack("ender_pearl", 3))
			require.NoError(t, store.Save(ctx, inv))

			restored, _ := inventory.SampleInventory("alice")
			found, err := store.Load(ctx, restored)
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, inv.Snapshot(), restored.Snapshot())
		})
	}
}

func TestInventoryStoreMissing(t *testing.T) {
	store := NewInventoryStore(NewMemoryStore(), nil, nil, nil)
	inv, _ := inventory.SampleInventory("bob")
	inv.TransferInto(inventory.NewStack("dirt", 5), false)

	found, err := store.Load(context.Background(), inv)

	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, 5, inv.Count("dirt"))
}

func TestInventoryStoreCorrupt(t *testing.T) {
	mem := NewMemoryStore()
	require.NoError(t, mem.Put(context.Background(), "player:carol", []byte{0xff, 0x00, 0x13}))
	comp, err := NewCompressor(CompressionZstd)
	require.NoError(t, err)
	store := NewInventoryStore(mem, comp, nil, nil)

	inv := inventory.New("player:carol", "carol", 9)
	_, err = store.Load(context.Background(), inv)
	assert.Error(t, err)
}

package statestore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mkudasov/soltrader/pkg/types"
)

func snapshot(mint string) *types.PositionSnapshot {
	return &types.PositionSnapshot{
		TokenMint:   mint,
		Amount:      1000,
		AvgBuyPrice: 0.001,
		CostBasis:   1.0,
		LastUpdated: time.Now(),
	}
}

// Memory-only mode: no Redis address configured.
func newMemoryStore(t *testing.T) *RedisStore {
	t.Helper()

	logger, _ := zap.NewDevelopment()
	store, err := New(&Config{Logger: logger})
	require.NoError(t, err)

	return store
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)

	_, err = New(&Config{Addr: "localhost:6379"})
	assert.Error(t, err)
}

func TestMemoryStore_SaveListDelete(t *testing.T) {
	store := newMemoryStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, snapshot("mint-a")))
	require.NoError(t, store.Save(ctx, snapshot("mint-b")))

	snaps, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, snaps, 2)

	require.NoError(t, store.Delete(ctx, "mint-a"))

	snaps, err = store.List(ctx)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "mint-b", snaps[0].TokenMint)
}

func TestMemoryStore_SaveOverwrites(t *testing.T) {
	store := newMemoryStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, snapshot("mint-a")))

	updated := snapshot("mint-a")
	updated.CurrentPrice = 0.002
	require.NoError(t, store.Save(ctx, updated))

	snaps, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.InDelta(t, 0.002, snaps[0].CurrentPrice, 1e-9)
}

func TestMemoryStore_DeleteMissingIsNoop(t *testing.T) {
	store := newMemoryStore(t)

	assert.NoError(t, store.Delete(context.Background(), "mint-missing"))
}

func TestMemoryStore_Close(t *testing.T) {
	store := newMemoryStore(t)
	assert.NoError(t, store.Close())
}

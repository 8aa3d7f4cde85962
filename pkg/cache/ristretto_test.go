package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCache(t *testing.T) Cache {
	t.Helper()

	logger, _ := zap.NewDevelopment()
	c, err := NewRistrettoCache(&RistrettoConfig{
		NumCounters: 1000,
		MaxCost:     100,
		BufferItems: 64,
		Logger:      logger,
	})
	require.NoError(t, err)
	t.Cleanup(c.Close)

	return c
}

func TestRistrettoCache_SetGet(t *testing.T) {
	c := newTestCache(t)

	ok := c.Set("decimals:mint-a", 9, time.Minute)
	require.True(t, ok)

	// Ristretto applies sets asynchronously.
	time.Sleep(10 * time.Millisecond)

	value, found := c.Get("decimals:mint-a")
	require.True(t, found)
	assert.Equal(t, 9, value)
}

func TestRistrettoCache_GetMissing(t *testing.T) {
	c := newTestCache(t)

	_, found := c.Get("decimals:unknown")
	assert.False(t, found)
}

func TestRistrettoCache_Delete(t *testing.T) {
	c := newTestCache(t)

	c.Set("decimals:mint-b", 6, time.Minute)
	time.Sleep(10 * time.Millisecond)

	c.Delete("decimals:mint-b")
	time.Sleep(10 * time.Millisecond)

	_, found := c.Get("decimals:mint-b")
	assert.False(t, found)
}

func TestRistrettoCache_TTLExpiry(t *testing.T) {
	c := newTestCache(t)

	c.Set("decimals:mint-c", 9, 20*time.Millisecond)
	time.Sleep(60 * time.Millisecond)

	_, found := c.Get("decimals:mint-c")
	assert.False(t, found)
}

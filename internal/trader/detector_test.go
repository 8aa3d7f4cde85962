package trader

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkudasov/soltrader/internal/testutil"
	"github.com/mkudasov/soltrader/pkg/types"
)

type stubPriceSource struct {
	mu     sync.Mutex
	prices map[string]float64
	err    error
}

func (s *stubPriceSource) GetPrice(ctx context.Context, tokenMint string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	return s.prices[tokenMint], nil
}

func newTestDetector(t *testing.T) (*PriceDetector, *stubPriceSource) {
	t.Helper()

	source := &stubPriceSource{prices: map[string]float64{"mint-token": 0.001}}
	detector, err := NewPriceDetector(source, "mint-base", testutil.Logger())
	require.NoError(t, err)

	return detector, source
}

func TestPriceDetector_DetectsFreshPool(t *testing.T) {
	detector, _ := newTestDetector(t)

	event := testutil.PoolEvent("mint-token")
	event.FirstDetectedAt = time.Now()

	opp, err := detector.Detect(context.Background(), event)
	require.NoError(t, err)
	require.NotNil(t, opp)

	assert.Equal(t, types.ActionBuy, opp.Action)
	assert.Equal(t, "mint-token", opp.TokenMint)
	assert.Equal(t, "mint-base", opp.BaseMint)
	assert.InDelta(t, 0.001, opp.EstimatedPrice, 1e-12)
	assert.InDelta(t, 0.85, opp.Confidence, 1e-9)
	// Near-zero age keeps almost the full venue score.
	assert.InDelta(t, 0.85, opp.PriorityScore, 0.01)
}

func TestPriceDetector_UnknownVenueIgnored(t *testing.T) {
	detector, _ := newTestDetector(t)

	event := testutil.PoolEvent("mint-token")
	event.Dex = "unknown-dex"

	opp, err := detector.Detect(context.Background(), event)
	require.NoError(t, err)
	assert.Nil(t, opp)
}

func TestPriceDetector_StaleEventIgnored(t *testing.T) {
	detector, _ := newTestDetector(t)

	event := testutil.PoolEvent("mint-token")
	event.FirstDetectedAt = time.Now().Add(-3 * time.Minute)

	opp, err := detector.Detect(context.Background(), event)
	require.NoError(t, err)
	assert.Nil(t, opp)
}

func TestPriceDetector_PicksNonBaseMint(t *testing.T) {
	detector, source := newTestDetector(t)
	source.prices["mint-new"] = 0.002

	event := testutil.PoolEvent("mint-new")
	// Base mint first in the pair; the detector must pick the other side.
	event.TokenAMint = "mint-base"
	event.TokenBMint = "mint-new"
	event.FirstDetectedAt = time.Now()

	opp, err := detector.Detect(context.Background(), event)
	require.NoError(t, err)
	require.NotNil(t, opp)
	assert.Equal(t, "mint-new", opp.TokenMint)
}

func TestPriceDetector_BaseOnlyPairIgnored(t *testing.T) {
	detector, _ := newTestDetector(t)

	event := testutil.PoolEvent("mint-token")
	event.TokenAMint = "mint-base"
	event.TokenBMint = "mint-base"
	event.FirstDetectedAt = time.Now()

	opp, err := detector.Detect(context.Background(), event)
	require.NoError(t, err)
	assert.Nil(t, opp)
}

func TestPriceDetector_PriorityDecaysWithAge(t *testing.T) {
	detector, _ := newTestDetector(t)

	fresh := testutil.PoolEvent("mint-token")
	fresh.FirstDetectedAt = time.Now()

	aged := testutil.PoolEvent("mint-token")
	aged.FirstDetectedAt = time.Now().Add(-time.Minute)

	freshOpp, err := detector.Detect(context.Background(), fresh)
	require.NoError(t, err)
	require.NotNil(t, freshOpp)

	agedOpp, err := detector.Detect(context.Background(), aged)
	require.NoError(t, err)
	require.NotNil(t, agedOpp)

	assert.Greater(t, freshOpp.PriorityScore, agedOpp.PriorityScore)
	// One minute into a two-minute window leaves about half the score.
	assert.InDelta(t, 0.425, agedOpp.PriorityScore, 0.01)
}

func TestPriceDetector_QuoteErrorPropagates(t *testing.T) {
	detector, source := newTestDetector(t)
	source.err = errors.New("rate limited")

	event := testutil.PoolEvent("mint-token")
	event.FirstDetectedAt = time.Now()

	_, err := detector.Detect(context.Background(), event)
	assert.Error(t, err)
}

func TestPriceDetector_Validation(t *testing.T) {
	logger := testutil.Logger()
	source := &stubPriceSource{}

	_, err := NewPriceDetector(nil, "mint-base", logger)
	assert.Error(t, err)

	_, err = NewPriceDetector(source, "", logger)
	assert.Error(t, err)

	_, err = NewPriceDetector(source, "mint-base", nil)
	assert.Error(t, err)
}

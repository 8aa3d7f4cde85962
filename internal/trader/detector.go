package trader

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mkudasov/soltrader/internal/pricing"
	"github.com/mkudasov/soltrader/pkg/types"
)

// detectionMaxAge bounds how stale a pool event can be before the edge
// is considered gone.
const detectionMaxAge = 2 * time.Minute

// venueConfidence reflects how much signal a new pool on each venue
// carries. Bonding-curve launches are noisier than AMM listings.
var venueConfidence = map[string]float64{
	"raydium": 0.85,
	"orca":    0.80,
	"pumpfun": 0.60,
}

// PriceDetector scores pool events into buy opportunities using a live
// price quote. Events for unknown venues, for pools not involving the
// base mint, or too old to act on are dropped.
type PriceDetector struct {
	logger   *zap.Logger
	source   pricing.PriceSource
	baseMint string
}

// NewPriceDetector creates a detector quoting through the given source.
func NewPriceDetector(source pricing.PriceSource, baseMint string, logger *zap.Logger) (*PriceDetector, error) {
	if source == nil {
		return nil, fmt.Errorf("price source cannot be nil")
	}
	if baseMint == "" {
		return nil, fmt.Errorf("base mint cannot be empty")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	return &PriceDetector{logger: logger, source: source, baseMint: baseMint}, nil
}

// Detect scores one pool event. Returns (nil, nil) when the event holds
// no actionable opportunity.
func (d *PriceDetector) Detect(ctx context.Context, event *types.PoolEvent) (*types.Opportunity, error) {
	confidence, known := venueConfidence[event.Dex]
	if !known {
		return nil, nil
	}

	tokenMint := event.TokenAMint
	if tokenMint == d.baseMint {
		tokenMint = event.TokenBMint
	}
	if tokenMint == d.baseMint || tokenMint == "" {
		// Pool doesn't pair a new token against the base mint.
		return nil, nil
	}

	age := time.Since(event.FirstDetectedAt)
	if age > detectionMaxAge {
		return nil, nil
	}

	price, err := d.source.GetPrice(ctx, tokenMint)
	if err != nil {
		return nil, fmt.Errorf("quote %s: %w", tokenMint, err)
	}

	// Fresh events keep their full venue score; the edge decays linearly
	// to zero over the detection window.
	freshness := 1 - age.Seconds()/detectionMaxAge.Seconds()
	if freshness < 0 {
		freshness = 0
	}
	priority := confidence * freshness

	opp := types.NewBuyOpportunity(event, tokenMint, d.baseMint, price, confidence, priority)

	d.logger.Debug("opportunity-detected",
		zap.String("mint", tokenMint),
		zap.String("dex", event.Dex),
		zap.Float64("price", price),
		zap.Float64("confidence", confidence),
		zap.Float64("priority", priority))

	return opp, nil
}

package testutil

import (
	"time"

	"github.com/mkudasov/soltrader/internal/txbuilder"
	"github.com/mkudasov/soltrader/pkg/types"
)

// KnownMints returns a metadata map for the fixture mints.
func KnownMints() map[string]*txbuilder.TokenMetadata {
	return map[string]*txbuilder.TokenMetadata{
		"mint-token": {Mint: "mint-token", Symbol: "TOK", Decimals: 6},
		"mint-other": {Mint: "mint-other", Symbol: "OTH", Decimals: 9},
	}
}

// PoolEvent returns a pool event fixture for the given mint.
func PoolEvent(tokenMint string) *types.PoolEvent {
	return &types.PoolEvent{
		Dex:             "raydium",
		PoolAddress:     "pool-" + tokenMint,
		TokenAMint:      tokenMint,
		TokenBMint:      "mint-base",
		FirstDetectedAt: time.Now(),
	}
}

// BuyOpportunity returns a buy opportunity fixture for the given mint.
func BuyOpportunity(tokenMint string, price, confidence, priority float64) *types.Opportunity {
	return types.NewBuyOpportunity(PoolEvent(tokenMint), tokenMint, "mint-base", price, confidence, priority)
}

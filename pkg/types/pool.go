package types

import "time"

// PoolEvent is pushed by the external liquidity-pool listener when a new
// pool is observed on chain.
type PoolEvent struct {
	Dex             string    `json:"dex"`
	PoolAddress     string    `json:"poolAddress"`
	TokenAMint      string    `json:"tokenAMint"`
	TokenBMint      string    `json:"tokenBMint"`
	FirstDetectedAt time.Time `json:"firstDetectedAt"`
}

// TokenValidationResult is returned by the external token validator.
type TokenValidationResult struct {
	IsValid bool
	Token   string
	Reason  string
}

// RiskCheckResult is returned by the external risk/compliance check.
type RiskCheckResult struct {
	Passed bool
	Reason string
}

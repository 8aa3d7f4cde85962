package txbuilder

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/mkudasov/soltrader/pkg/types"
)

const (
	raydiumProgramID = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"

	// Raydium AMM pools charge a flat 25 bps trade fee.
	raydiumFeeBps = 25

	raydiumSwapBaseIn  = 0x09
	raydiumSwapBaseOut = 0x0b
)

type raydiumEncoder struct{}

func (e *raydiumEncoder) EncodeSwap(ctx context.Context, params *SwapParams, meta *TokenMetadata) ([]Instruction, float64, error) {
	amountIn, err := rawAmountIn(params, meta)
	if err != nil {
		return nil, 0, err
	}

	minOut := rawMinOut(params, meta)

	tag := byte(raydiumSwapBaseIn)
	if params.Action == types.ActionSell {
		tag = raydiumSwapBaseOut
	}

	data := make([]byte, 17)
	data[0] = tag
	binary.LittleEndian.PutUint64(data[1:9], amountIn)
	binary.LittleEndian.PutUint64(data[9:17], minOut)

	ix := Instruction{
		ProgramID: raydiumProgramID,
		Accounts: []AccountMeta{
			{Pubkey: params.PoolAddress, IsWritable: true},
			{Pubkey: params.TokenMint, IsWritable: true},
			{Pubkey: params.BaseMint, IsWritable: true},
		},
		Data: data,
	}

	return []Instruction{ix}, float64(raydiumFeeBps) / 10000, nil
}

// rawAmountIn converts the swap input to raw units: base-token lamports
// on a buy, raw token units on a sell.
func rawAmountIn(params *SwapParams, meta *TokenMetadata) (uint64, error) {
	switch params.Action {
	case types.ActionBuy:
		if params.AmountIn <= 0 {
			return 0, fmt.Errorf("buy amount must be positive, got %f", params.AmountIn)
		}
		return uint64(params.AmountIn * 1e9), nil
	case types.ActionSell:
		if params.TokenAmount <= 0 {
			return 0, fmt.Errorf("sell token amount must be positive, got %d", params.TokenAmount)
		}
		return uint64(params.TokenAmount), nil
	default:
		return 0, fmt.Errorf("unknown trade action %q", params.Action)
	}
}

// rawMinOut scales the slippage-adjusted output into raw output units.
func rawMinOut(params *SwapParams, meta *TokenMetadata) uint64 {
	adjusted := params.ExpectedOut * float64(10000-params.SlippageBps) / 10000
	if adjusted <= 0 {
		return 0
	}

	if params.Action == types.ActionBuy {
		// Output is the token being bought.
		scale := pow10(meta.Decimals)
		return uint64(adjusted * scale)
	}

	// Output is the base token.
	return uint64(adjusted * 1e9)
}

func pow10(decimals uint8) float64 {
	scale := 1.0
	for i := uint8(0); i < decimals; i++ {
		scale *= 10
	}

	return scale
}

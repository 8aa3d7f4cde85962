package txbuilder

import (
	"context"
	"encoding/binary"

	"github.com/mkudasov/soltrader/pkg/types"
)

const (
	pumpFunProgramID = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"

	// Bonding-curve pools charge 100 bps and move the curve on every
	// fill, so the impact floor is higher than AMM venues.
	pumpFunFeeBps = 100
)

var (
	pumpFunBuyDiscriminator  = [8]byte{0x66, 0x06, 0x3d, 0x12, 0x01, 0xda, 0xeb, 0xea}
	pumpFunSellDiscriminator = [8]byte{0x33, 0xe6, 0x85, 0xa4, 0x01, 0x7f, 0x83, 0xad}
)

type pumpFunEncoder struct{}

func (e *pumpFunEncoder) EncodeSwap(ctx context.Context, params *SwapParams, meta *TokenMetadata) ([]Instruction, float64, error) {
	amountIn, err := rawAmountIn(params, meta)
	if err != nil {
		return nil, 0, err
	}

	minOut := rawMinOut(params, meta)

	discriminator := pumpFunBuyDiscriminator
	if params.Action == types.ActionSell {
		discriminator = pumpFunSellDiscriminator
	}

	data := make([]byte, 24)
	copy(data[:8], discriminator[:])
	binary.LittleEndian.PutUint64(data[8:16], amountIn)
	binary.LittleEndian.PutUint64(data[16:24], minOut)

	ix := Instruction{
		ProgramID: pumpFunProgramID,
		Accounts: []AccountMeta{
			{Pubkey: params.PoolAddress, IsWritable: true},
			{Pubkey: params.TokenMint, IsWritable: true},
		},
		Data: data,
	}

	return []Instruction{ix}, float64(pumpFunFeeBps) / 10000, nil
}

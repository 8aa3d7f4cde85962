package txbuilder

import (
	"context"
	"encoding/binary"

	"github.com/mkudasov/soltrader/pkg/types"
)

const (
	orcaProgramID = "whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc"

	// Default whirlpool fee tier.
	orcaFeeBps = 30
)

// Whirlpool swap discriminator (anchor 8-byte).
var orcaSwapDiscriminator = [8]byte{0xf8, 0xc6, 0x9e, 0x91, 0xe1, 0x75, 0x87, 0xc8}

type orcaEncoder struct{}

func (e *orcaEncoder) EncodeSwap(ctx context.Context, params *SwapParams, meta *TokenMetadata) ([]Instruction, float64, error) {
	amountIn, err := rawAmountIn(params, meta)
	if err != nil {
		return nil, 0, err
	}

	minOut := rawMinOut(params, meta)

	data := make([]byte, 25)
	copy(data[:8], orcaSwapDiscriminator[:])
	binary.LittleEndian.PutUint64(data[8:16], amountIn)
	binary.LittleEndian.PutUint64(data[16:24], minOut)
	if params.Action == types.ActionBuy {
		data[24] = 1 // aToB
	}

	ix := Instruction{
		ProgramID: orcaProgramID,
		Accounts: []AccountMeta{
			{Pubkey: params.PoolAddress, IsWritable: true},
			{Pubkey: params.TokenMint, IsWritable: true},
			{Pubkey: params.BaseMint, IsWritable: true},
		},
		Data: data,
	}

	return []Instruction{ix}, float64(orcaFeeBps) / 10000, nil
}

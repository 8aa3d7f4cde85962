package txbuilder

import (
	"context"

	"github.com/mkudasov/soltrader/pkg/types"
)

// Venue names understood by the builder. The registry is closed: adding
// a venue means adding an encoder here, not registering one at runtime.
const (
	VenueRaydium = "raydium"
	VenueOrca    = "orca"
	VenuePumpFun = "pumpfun"
)

// VenueEncoder turns swap parameters into venue-specific instructions.
// Exact byte layouts live behind this boundary.
type VenueEncoder interface {
	// EncodeSwap returns the swap instructions and the encoder's price
	// impact estimate for the trade.
	EncodeSwap(ctx context.Context, params *SwapParams, meta *TokenMetadata) ([]Instruction, float64, error)
}

func newVenueRegistry() map[string]VenueEncoder {
	return map[string]VenueEncoder{
		VenueRaydium: &raydiumEncoder{},
		VenueOrca:    &orcaEncoder{},
		VenuePumpFun: &pumpFunEncoder{},
	}
}

// encoderFor resolves the encoder for a venue name.
func (b *TransactionBuilder) encoderFor(venue string) (VenueEncoder, error) {
	encoder, ok := b.encoders[venue]
	if !ok {
		return nil, &types.UnsupportedVenueError{Venue: venue}
	}

	return encoder, nil
}

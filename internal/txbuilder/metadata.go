package txbuilder

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const metadataCacheTTL = 30 * time.Minute

// TokenMetadata describes a mint. Decimals drive amount scaling in the
// venue encoders.
type TokenMetadata struct {
	Mint     string
	Symbol   string
	Decimals uint8
}

// MetadataSource resolves token metadata from the chain or an indexer.
type MetadataSource interface {
	GetTokenMetadata(ctx context.Context, mint string) (*TokenMetadata, error)
}

// tokenMetadata resolves mint metadata through the ristretto cache.
// Metadata is immutable in practice so a long TTL is fine.
func (b *TransactionBuilder) tokenMetadata(ctx context.Context, mint string) (*TokenMetadata, error) {
	if cached, found := b.metadataCache.Get(mint); found {
		if meta, ok := cached.(*TokenMetadata); ok {
			return meta, nil
		}
	}

	meta, err := b.metadataSource.GetTokenMetadata(ctx, mint)
	if err != nil {
		return nil, fmt.Errorf("token metadata for %s: %w", mint, err)
	}

	b.metadataCache.Set(mint, meta, metadataCacheTTL)

	b.logger.Debug("token-metadata-cached",
		zap.String("mint", mint),
		zap.String("symbol", meta.Symbol),
		zap.Uint8("decimals", meta.Decimals))

	return meta, nil
}

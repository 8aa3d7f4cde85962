package txbuilder

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/mkudasov/soltrader/pkg/cache"
	"github.com/mkudasov/soltrader/pkg/types"
)

const (
	// signatureFeeLamports is the flat per-signature network fee.
	signatureFeeLamports = 5000

	// swapComputeUnits is the compute budget requested for a swap.
	swapComputeUnits = 200_000
)

// BlockhashProvider supplies a fresh blockhash to anchor transactions.
// The chain RPC client implements this.
type BlockhashProvider interface {
	LatestBlockhash(ctx context.Context) (string, error)
}

// SwapParams describes one swap to build.
type SwapParams struct {
	Venue       string
	PoolAddress string
	TokenMint   string
	BaseMint    string
	Action      types.TradeAction
	// AmountIn is the base-token amount spent on a buy.
	AmountIn float64
	// TokenAmount is the raw token amount sold on a sell.
	TokenAmount int64
	// ExpectedOut is the quoted output before slippage tolerance.
	ExpectedOut float64
	SlippageBps int
}

// BuiltTransaction is the product of BuildSwap: an unsigned transaction
// plus the estimates the executor reports alongside the trade.
type BuiltTransaction struct {
	Tx              *Transaction
	MinOut          float64
	EstimatedFee    uint64
	EstimatedImpact float64
}

// TransactionBuilder assembles unsigned transactions for the supported
// venues. Each build fetches a fresh blockhash; stale anchors are the
// executor's problem to refresh on retry.
type TransactionBuilder struct {
	logger         *zap.Logger
	blockhash      BlockhashProvider
	metadataSource MetadataSource
	metadataCache  cache.Cache
	payer          string
	encoders       map[string]VenueEncoder

	priorityFeeEnabled bool
	priorityFeeBase    uint64
	priorityFeeMult    float64
	priorityFeeCap     uint64
}

// Config holds transaction builder configuration.
type Config struct {
	Blockhash      BlockhashProvider
	MetadataSource MetadataSource
	MetadataCache  cache.Cache
	// Payer is the wallet pubkey paying fees and signing.
	Payer string

	PriorityFeeEnabled    bool
	PriorityFeeBase       uint64
	PriorityFeeMultiplier float64
	PriorityFeeCap        uint64

	Logger *zap.Logger
}

// New creates a transaction builder.
func New(cfg *Config) (*TransactionBuilder, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Blockhash == nil {
		return nil, fmt.Errorf("blockhash provider cannot be nil")
	}
	if cfg.MetadataSource == nil {
		return nil, fmt.Errorf("metadata source cannot be nil")
	}
	if cfg.MetadataCache == nil {
		return nil, fmt.Errorf("metadata cache cannot be nil")
	}
	if cfg.Payer == "" {
		return nil, fmt.Errorf("payer pubkey cannot be empty")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	return &TransactionBuilder{
		logger:             cfg.Logger,
		blockhash:          cfg.Blockhash,
		metadataSource:     cfg.MetadataSource,
		metadataCache:      cfg.MetadataCache,
		payer:              cfg.Payer,
		encoders:           newVenueRegistry(),
		priorityFeeEnabled: cfg.PriorityFeeEnabled,
		priorityFeeBase:    cfg.PriorityFeeBase,
		priorityFeeMult:    cfg.PriorityFeeMultiplier,
		priorityFeeCap:     cfg.PriorityFeeCap,
	}, nil
}

// BuildSwap builds an unsigned swap transaction for the given params.
// Build failures surface as typed BuildError so the caller can tell them
// apart from submission failures.
func (b *TransactionBuilder) BuildSwap(ctx context.Context, params *SwapParams) (*BuiltTransaction, error) {
	encoder, err := b.encoderFor(params.Venue)
	if err != nil {
		BuildsTotal.WithLabelValues(params.Venue, "unsupported").Inc()
		return nil, err
	}

	meta, err := b.tokenMetadata(ctx, params.TokenMint)
	if err != nil {
		BuildsTotal.WithLabelValues(params.Venue, "error").Inc()
		return nil, &types.BuildError{Venue: params.Venue, Cause: err}
	}

	instructions, impact, err := encoder.EncodeSwap(ctx, params, meta)
	if err != nil {
		BuildsTotal.WithLabelValues(params.Venue, "error").Inc()
		return nil, &types.BuildError{Venue: params.Venue, Cause: err}
	}

	if b.priorityFeeEnabled {
		instructions = append([]Instruction{b.priorityFeeInstruction()}, instructions...)
	}

	blockhash, err := b.blockhash.LatestBlockhash(ctx)
	if err != nil {
		BuildsTotal.WithLabelValues(params.Venue, "error").Inc()
		return nil, &types.BuildError{Venue: params.Venue, Cause: fmt.Errorf("latest blockhash: %w", err)}
	}

	tx := &Transaction{
		RecentBlockhash: blockhash,
		FeePayer:        b.payer,
		Instructions:    instructions,
	}

	minOut := params.ExpectedOut * float64(10000-params.SlippageBps) / 10000

	built := &BuiltTransaction{
		Tx:              tx,
		MinOut:          minOut,
		EstimatedFee:    b.estimatedFee(),
		EstimatedImpact: impact,
	}

	BuildsTotal.WithLabelValues(params.Venue, "success").Inc()

	b.logger.Debug("swap-built",
		zap.String("venue", params.Venue),
		zap.String("pool", params.PoolAddress),
		zap.String("action", string(params.Action)),
		zap.Float64("min_out", minOut),
		zap.Float64("est_impact", impact))

	return built, nil
}

// RefreshBlockhash re-anchors a transaction to a fresh blockhash and
// clears any stale signature. Used by the executor between retries.
func (b *TransactionBuilder) RefreshBlockhash(ctx context.Context, tx *Transaction) error {
	blockhash, err := b.blockhash.LatestBlockhash(ctx)
	if err != nil {
		return fmt.Errorf("refresh blockhash: %w", err)
	}

	tx.RecentBlockhash = blockhash
	tx.Signature = nil

	return nil
}

// priorityFee is base × multiplier in micro-lamports per compute unit,
// clamped to the configured cap.
func (b *TransactionBuilder) priorityFee() uint64 {
	fee := uint64(math.Round(float64(b.priorityFeeBase) * b.priorityFeeMult))
	if b.priorityFeeCap > 0 && fee > b.priorityFeeCap {
		fee = b.priorityFeeCap
	}

	return fee
}

func (b *TransactionBuilder) priorityFeeInstruction() Instruction {
	fee := b.priorityFee()

	data := make([]byte, 9)
	data[0] = 0x03 // SetComputeUnitPrice
	for i := 0; i < 8; i++ {
		data[1+i] = byte(fee >> (8 * i))
	}

	return Instruction{
		ProgramID: "ComputeBudget111111111111111111111111111111",
		Data:      data,
	}
}

// estimatedFee is the signature fee plus the priority fee spread over
// the requested compute units.
func (b *TransactionBuilder) estimatedFee() uint64 {
	fee := uint64(signatureFeeLamports)
	if b.priorityFeeEnabled {
		fee += b.priorityFee() * swapComputeUnits / 1_000_000
	}

	return fee
}

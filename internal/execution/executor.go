package execution

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/mkudasov/soltrader/internal/txbuilder"
	"github.com/mkudasov/soltrader/pkg/types"
)

// attemptStatus tracks one submission attempt through its lifecycle.
type attemptStatus string

const (
	statusBuilding  attemptStatus = "building"
	statusSubmitted attemptStatus = "submitted"
	statusConfirmed attemptStatus = "confirmed"
	statusFailed    attemptStatus = "failed"
)

// Signer signs transaction messages. The wallet implements this.
type Signer interface {
	Sign(message []byte) []byte
	Pubkey() string
}

// TradeExecutor drives the build, sign, submit, confirm pipeline with
// bounded retries. Every attempt after the first re-anchors the
// transaction to a fresh blockhash before resubmitting.
type TradeExecutor struct {
	logger         *zap.Logger
	builder        *txbuilder.TransactionBuilder
	signer         Signer
	chain          ChainClient
	maxRetries     int
	confirmTimeout time.Duration
	slippageBps    int
	backoffBase    time.Duration
	backoffCap     time.Duration
}

// Config holds trade executor configuration.
type Config struct {
	Builder        *txbuilder.TransactionBuilder
	Signer         Signer
	Chain          ChainClient
	MaxRetries     int
	ConfirmTimeout time.Duration
	SlippageBps    int
	BackoffBase    time.Duration
	BackoffCap     time.Duration
	Logger         *zap.Logger
}

// New creates a trade executor.
func New(cfg *Config) (*TradeExecutor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Builder == nil {
		return nil, fmt.Errorf("builder cannot be nil")
	}
	if cfg.Signer == nil {
		return nil, fmt.Errorf("signer cannot be nil")
	}
	if cfg.Chain == nil {
		return nil, fmt.Errorf("chain client cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.MaxRetries <= 0 {
		return nil, fmt.Errorf("max retries must be positive")
	}
	if cfg.ConfirmTimeout <= 0 {
		return nil, fmt.Errorf("confirm timeout must be positive")
	}

	backoffBase := cfg.BackoffBase
	if backoffBase <= 0 {
		backoffBase = 500 * time.Millisecond
	}
	backoffCap := cfg.BackoffCap
	if backoffCap <= 0 {
		backoffCap = 10 * time.Second
	}

	return &TradeExecutor{
		logger:         cfg.Logger,
		builder:        cfg.Builder,
		signer:         cfg.Signer,
		chain:          cfg.Chain,
		maxRetries:     cfg.MaxRetries,
		confirmTimeout: cfg.ConfirmTimeout,
		slippageBps:    cfg.SlippageBps,
		backoffBase:    backoffBase,
		backoffCap:     backoffCap,
	}, nil
}

// ExecuteBuy spends the given base-token amount on the opportunity's
// token. The result always carries a timestamp; failures set Err and
// leave Success false.
func (e *TradeExecutor) ExecuteBuy(ctx context.Context, opp *types.Opportunity, baseAmount float64) *types.TradeResult {
	result := &types.TradeResult{Timestamp: time.Now()}

	if opp.EstimatedPrice <= 0 {
		result.Err = fmt.Errorf("non-positive estimated price %f", opp.EstimatedPrice)
		return result
	}

	expectedTokens := baseAmount / opp.EstimatedPrice

	params := &txbuilder.SwapParams{
		Venue:       opp.Dex,
		PoolAddress: opp.PoolAddress,
		TokenMint:   opp.TokenMint,
		BaseMint:    opp.BaseMint,
		Action:      types.ActionBuy,
		AmountIn:    baseAmount,
		ExpectedOut: expectedTokens,
		SlippageBps: e.slippageBps,
	}

	built, err := e.builder.BuildSwap(ctx, params)
	if err != nil {
		TradesTotal.WithLabelValues("buy", "build_failed").Inc()
		result.Err = err
		return result
	}

	signature, err := e.submitWithRetry(ctx, built.Tx)
	if err != nil {
		TradesTotal.WithLabelValues("buy", "failed").Inc()
		result.Err = err
		return result
	}

	TradesTotal.WithLabelValues("buy", "success").Inc()

	result.Success = true
	result.Signature = signature
	result.TokenAmount = int64(math.Round(expectedTokens))
	result.BaseAmount = baseAmount
	result.Price = opp.EstimatedPrice
	result.PriceImpact = built.EstimatedImpact
	result.Fee = float64(built.EstimatedFee) / 1e9

	e.logger.Info("buy-executed",
		zap.String("mint", opp.TokenMint),
		zap.String("signature", signature),
		zap.Float64("base_amount", baseAmount),
		zap.Int64("token_amount", result.TokenAmount))

	return result
}

// ExecuteSell sells the opportunity's SellAmount of tokens back to the
// base token.
func (e *TradeExecutor) ExecuteSell(ctx context.Context, opp *types.Opportunity) *types.TradeResult {
	result := &types.TradeResult{Timestamp: time.Now()}

	if opp.SellAmount <= 0 {
		result.Err = fmt.Errorf("non-positive sell amount %d", opp.SellAmount)
		return result
	}

	expectedBase := float64(opp.SellAmount) * opp.EstimatedPrice

	params := &txbuilder.SwapParams{
		Venue:       opp.Dex,
		PoolAddress: opp.PoolAddress,
		TokenMint:   opp.TokenMint,
		BaseMint:    opp.BaseMint,
		Action:      types.ActionSell,
		TokenAmount: opp.SellAmount,
		ExpectedOut: expectedBase,
		SlippageBps: e.slippageBps,
	}

	built, err := e.builder.BuildSwap(ctx, params)
	if err != nil {
		TradesTotal.WithLabelValues("sell", "build_failed").Inc()
		result.Err = err
		return result
	}

	signature, err := e.submitWithRetry(ctx, built.Tx)
	if err != nil {
		TradesTotal.WithLabelValues("sell", "failed").Inc()
		result.Err = err
		return result
	}

	TradesTotal.WithLabelValues("sell", "success").Inc()

	result.Success = true
	result.Signature = signature
	result.TokenAmount = opp.SellAmount
	result.BaseAmount = expectedBase
	result.Price = opp.EstimatedPrice
	result.PriceImpact = built.EstimatedImpact
	result.Fee = float64(built.EstimatedFee) / 1e9

	e.logger.Info("sell-executed",
		zap.String("mint", opp.TokenMint),
		zap.String("signature", signature),
		zap.Int64("token_amount", opp.SellAmount),
		zap.Float64("base_amount", expectedBase))

	return result
}

// submitWithRetry signs and submits the transaction, confirming each
// attempt. Attempts after the first wait out an exponential backoff and
// re-anchor to a fresh blockhash. Confirmation timeouts count as
// submission failures and are retried like any other.
func (e *TradeExecutor) submitWithRetry(ctx context.Context, tx *txbuilder.Transaction) (string, error) {
	var lastErr error

	for attempt := 0; attempt < e.maxRetries; attempt++ {
		if attempt > 0 {
			delay := e.backoffDelay(attempt)
			e.logger.Warn("submit-retrying",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", delay),
				zap.Error(lastErr))

			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}

			if err := e.builder.RefreshBlockhash(ctx, tx); err != nil {
				lastErr = &types.SubmissionError{Attempt: attempt, Cause: err}
				continue
			}
			BlockhashRefreshesTotal.Inc()
		}

		signature, err := e.submitOnce(ctx, tx, attempt)
		if err != nil {
			lastErr = err
			AttemptsTotal.WithLabelValues(string(statusFailed)).Inc()
			continue
		}

		AttemptsTotal.WithLabelValues(string(statusConfirmed)).Inc()

		return signature, nil
	}

	return "", lastErr
}

// submitOnce runs one attempt through building, submitted and confirmed.
func (e *TradeExecutor) submitOnce(ctx context.Context, tx *txbuilder.Transaction, attempt int) (string, error) {
	e.logger.Debug("attempt-status",
		zap.Int("attempt", attempt),
		zap.String("status", string(statusBuilding)))

	message, err := tx.Message()
	if err != nil {
		return "", &types.SubmissionError{Attempt: attempt, Cause: err}
	}
	tx.Signature = e.signer.Sign(message)

	raw, err := tx.Serialize()
	if err != nil {
		return "", &types.SubmissionError{Attempt: attempt, Cause: err}
	}

	signature, err := e.chain.SubmitTransaction(ctx, raw)
	if err != nil {
		return "", &types.SubmissionError{Attempt: attempt, Cause: err}
	}

	e.logger.Debug("attempt-status",
		zap.Int("attempt", attempt),
		zap.String("status", string(statusSubmitted)),
		zap.String("signature", signature))

	confirmCtx, cancel := context.WithTimeout(ctx, e.confirmTimeout)
	defer cancel()

	if err := e.chain.ConfirmTransaction(confirmCtx, signature); err != nil {
		if errors.Is(confirmCtx.Err(), context.DeadlineExceeded) {
			err = &types.ConfirmationTimeoutError{Signature: signature}
		}
		return "", &types.SubmissionError{Attempt: attempt, Cause: err}
	}

	return signature, nil
}

// backoffDelay is min(base × 2^attempt, cap).
func (e *TradeExecutor) backoffDelay(attempt int) time.Duration {
	delay := e.backoffBase << uint(attempt)
	if delay > e.backoffCap || delay <= 0 {
		delay = e.backoffCap
	}

	return delay
}

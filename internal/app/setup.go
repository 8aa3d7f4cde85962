package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mkudasov/soltrader/internal/circuitbreaker"
	"github.com/mkudasov/soltrader/internal/execution"
	"github.com/mkudasov/soltrader/internal/feed"
	"github.com/mkudasov/soltrader/internal/pricing"
	"github.com/mkudasov/soltrader/internal/risk"
	"github.com/mkudasov/soltrader/internal/statestore"
	"github.com/mkudasov/soltrader/internal/storage"
	"github.com/mkudasov/soltrader/internal/strategy"
	"github.com/mkudasov/soltrader/internal/trader"
	"github.com/mkudasov/soltrader/internal/txbuilder"
	"github.com/mkudasov/soltrader/pkg/cache"
	"github.com/mkudasov/soltrader/pkg/config"
	"github.com/mkudasov/soltrader/pkg/healthprobe"
	"github.com/mkudasov/soltrader/pkg/httpserver"
	"github.com/mkudasov/soltrader/pkg/types"
	"github.com/mkudasov/soltrader/pkg/wallet"
)

// New creates a new application instance.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())

	healthChecker := healthprobe.New()

	wlt, err := wallet.NewFromKey(cfg.WalletPrivateKey, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("load wallet: %w", err)
	}

	chain, err := execution.NewRPCClient(&execution.RPCConfig{
		Endpoint: cfg.RPCURL,
		Logger:   logger,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create rpc client: %w", err)
	}

	snapshots, err := statestore.New(&statestore.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		Logger:   logger,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create snapshot store: %w", err)
	}

	strategyManager := setupStrategy(cfg, logger, snapshots)
	riskAdjuster := setupRisk(cfg, logger)

	breaker, gate, err := setupCircuitBreaker(cfg, logger, chain, wlt.Pubkey())
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup circuit breaker: %w", err)
	}

	executor, err := setupExecutor(cfg, logger, chain, wlt)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup executor: %w", err)
	}

	tradeStorage, err := setupStorage(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup storage: %w", err)
	}

	priceSource, scheduler, err := setupPricing(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup pricing: %w", err)
	}

	listener, err := setupFeedListener(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup feed listener: %w", err)
	}

	tradingEngine, err := setupTrader(cfg, logger, &traderDeps{
		priceSource: priceSource,
		strategy:    strategyManager,
		risk:        riskAdjuster,
		gate:        gate,
		executor:    executor,
		store:       tradeStorage,
		scheduler:   scheduler,
		chain:       chain,
		pubkey:      wlt.Pubkey(),
		listener:    listener,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup trader: %w", err)
	}

	httpServer := httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: healthChecker,
		Positions:     strategyManager,
		Trades:        tradeStorage,
	})

	return &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthChecker,
		httpServer:    httpServer,
		wallet:        wlt,
		chain:         chain,
		snapshots:     snapshots,
		strategy:      strategyManager,
		risk:          riskAdjuster,
		breaker:       breaker,
		storage:       tradeStorage,
		scheduler:     scheduler,
		listener:      listener,
		trader:        tradingEngine,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

func setupStrategy(cfg *config.Config, logger *zap.Logger, snapshots strategy.SnapshotStore) *strategy.Manager {
	var conditions []strategy.Condition
	if cfg.TakeProfitPct > 0 {
		conditions = append(conditions, strategy.Condition{
			Type:       strategy.TakeProfit,
			Percentage: cfg.TakeProfitPct,
			Enabled:    true,
		})
	}
	if cfg.StopLossPct > 0 {
		conditions = append(conditions, strategy.Condition{
			Type:       strategy.StopLoss,
			Percentage: cfg.StopLossPct,
			Enabled:    true,
		})
	}
	if cfg.TrailingStopPct > 0 {
		conditions = append(conditions, strategy.Condition{
			Type:       strategy.TrailingStop,
			Percentage: cfg.TrailingStopPct,
			Enabled:    true,
		})
	}
	if cfg.PositionTimeLimit > 0 {
		conditions = append(conditions, strategy.Condition{
			Type:      strategy.TimeLimit,
			TimeLimit: cfg.PositionTimeLimit,
			Enabled:   true,
		})
	}

	return strategy.New(&strategy.Config{
		BuyEnabled:       cfg.BuyEnabled,
		MinConfidence:    cfg.MinConfidence,
		MinPriorityScore: cfg.MinPriorityScore,
		Conditions:       conditions,
		SnapshotStore:    snapshots,
		Logger:           logger,
	})
}

func setupRisk(cfg *config.Config, logger *zap.Logger) *risk.Adjuster {
	return risk.New(&risk.Config{
		AdjustInterval:        cfg.RiskAdjustInterval,
		WindowSize:            cfg.RiskWindowSize,
		MaxRiskPerToken:       cfg.MaxRiskPerToken,
		MinRiskPerToken:       cfg.MinRiskPerToken,
		MaxTotalRisk:          cfg.MaxTotalRisk,
		MinTotalRisk:          cfg.MinTotalRisk,
		Step:                  cfg.RiskStep,
		MaxAllocationPerToken: cfg.MaxAllocationPerToken,
		Logger:                logger,
	})
}

// alwaysOnGate stands in for the circuit breaker when it is disabled.
type alwaysOnGate struct{}

func (alwaysOnGate) IsEnabled() bool          { return true }
func (alwaysOnGate) RecordTrade(size float64) {}

func setupCircuitBreaker(
	cfg *config.Config,
	logger *zap.Logger,
	chain *execution.RPCClient,
	pubkey string,
) (*circuitbreaker.BalanceCircuitBreaker, trader.TradingGate, error) {
	if !cfg.CircuitBreakerEnabled {
		logger.Info("circuit-breaker-disabled")
		return nil, alwaysOnGate{}, nil
	}

	breaker, err := circuitbreaker.New(&circuitbreaker.Config{
		CheckInterval:   cfg.CircuitBreakerCheckInterval,
		TradeMultiplier: cfg.CircuitBreakerTradeMultiplier,
		MinAbsolute:     cfg.CircuitBreakerMinAbsolute,
		HysteresisRatio: cfg.CircuitBreakerHysteresisRatio,
		WalletClient:    chain,
		Pubkey:          pubkey,
		Logger:          logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create circuit breaker: %w", err)
	}

	logger.Info("circuit-breaker-enabled",
		zap.Duration("check_interval", cfg.CircuitBreakerCheckInterval),
		zap.Float64("trade_multiplier", cfg.CircuitBreakerTradeMultiplier),
		zap.Float64("min_absolute", cfg.CircuitBreakerMinAbsolute))

	return breaker, breaker, nil
}

func setupExecutor(
	cfg *config.Config,
	logger *zap.Logger,
	chain *execution.RPCClient,
	wlt *wallet.Wallet,
) (*execution.TradeExecutor, error) {
	metadataCache, err := cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 10000,
		MaxCost:     1000,
		BufferItems: 64,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create metadata cache: %w", err)
	}

	builder, err := txbuilder.New(&txbuilder.Config{
		Blockhash:             chain,
		MetadataSource:        chain,
		MetadataCache:         metadataCache,
		Payer:                 wlt.Pubkey(),
		PriorityFeeEnabled:    cfg.PriorityFee,
		PriorityFeeBase:       cfg.PriorityFeeBase,
		PriorityFeeMultiplier: cfg.PriorityFeeMult,
		PriorityFeeCap:        cfg.PriorityFeeCap,
		Logger:                logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create transaction builder: %w", err)
	}

	return execution.New(&execution.Config{
		Builder:        builder,
		Signer:         wlt,
		Chain:          chain,
		MaxRetries:     cfg.MaxRetries,
		ConfirmTimeout: cfg.ConfirmTimeout,
		SlippageBps:    cfg.SlippageBps,
		BackoffBase:    cfg.RetryBackoffBase,
		BackoffCap:     cfg.RetryBackoffCap,
		Logger:         logger,
	})
}

func setupStorage(cfg *config.Config, logger *zap.Logger) (storage.Storage, error) {
	if cfg.StorageMode == "postgres" {
		pgStorage, err := storage.NewPostgresStorage(&storage.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create postgres storage: %w", err)
		}
		return pgStorage, nil
	}

	return storage.NewConsoleStorage(logger), nil
}

func setupPricing(cfg *config.Config, logger *zap.Logger) (pricing.PriceSource, *pricing.Scheduler, error) {
	source, err := pricing.NewHTTPSource(&pricing.HTTPSourceConfig{
		BaseURL:      cfg.PriceAPIURL,
		RateLimitRPS: cfg.PriceRateLimitRPS,
		Logger:       logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create price source: %w", err)
	}

	priceCache := pricing.NewPriceCache(cfg.PriceCacheTTL, cfg.PriceCacheMaxSize)

	scheduler, err := pricing.NewScheduler(&pricing.SchedulerConfig{
		Source:   source,
		Cache:    priceCache,
		Interval: cfg.PriceCheckInterval,
		BatchMin: cfg.PriceBatchMin,
		BatchMax: cfg.PriceBatchMax,
		Logger:   logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create price scheduler: %w", err)
	}

	return source, scheduler, nil
}

func setupFeedListener(cfg *config.Config, logger *zap.Logger) (*feed.Listener, error) {
	if cfg.PoolFeedURL == "" {
		logger.Warn("pool-feed-disabled-no-url")
		return nil, nil
	}

	return feed.New(feed.Config{
		URL:    cfg.PoolFeedURL,
		Logger: logger,
	})
}

type traderDeps struct {
	priceSource pricing.PriceSource
	strategy    *strategy.Manager
	risk        *risk.Adjuster
	gate        trader.TradingGate
	executor    *execution.TradeExecutor
	store       storage.Storage
	scheduler   *pricing.Scheduler
	chain       *execution.RPCClient
	pubkey      string
	listener    *feed.Listener
}

func setupTrader(cfg *config.Config, logger *zap.Logger, deps *traderDeps) (*trader.Trader, error) {
	detector, err := trader.NewPriceDetector(deps.priceSource, cfg.BaseMint, logger)
	if err != nil {
		return nil, fmt.Errorf("create detector: %w", err)
	}

	validator, err := trader.NewMintValidator(cfg.BaseMint, logger)
	if err != nil {
		return nil, fmt.Errorf("create validator: %w", err)
	}

	riskCheck, err := trader.NewDenylistRiskChecker(cfg.TokenDenylist, logger)
	if err != nil {
		return nil, fmt.Errorf("create risk checker: %w", err)
	}

	var poolFeed <-chan *types.PoolEvent
	if deps.listener != nil {
		poolFeed = deps.listener.Events()
	}

	return trader.New(&trader.Config{
		Detector:        detector,
		Validator:       validator,
		RiskCheck:       riskCheck,
		Strategy:        deps.strategy,
		Risk:            deps.risk,
		Gate:            deps.gate,
		Executor:        deps.executor,
		Store:           deps.store,
		Prices:          deps.scheduler,
		Balance:         deps.chain,
		Pubkey:          deps.pubkey,
		PoolFeed:        poolFeed,
		QueueMaxSize:    cfg.QueueMaxSize,
		BatchSize:       cfg.BatchSize,
		BatchInterval:   cfg.BatchInterval,
		HealInterval:    cfg.HealInterval,
		StuckResetAfter: cfg.StuckResetAfter,
		PendingTimeout:  cfg.PendingTimeout,
		Logger:          logger,
	})
}

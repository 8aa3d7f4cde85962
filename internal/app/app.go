package app

import (
	"context"
	"sync"

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
	"github.com/mkudasov/soltrader/pkg/config"
	"github.com/mkudasov/soltrader/pkg/healthprobe"
	"github.com/mkudasov/soltrader/pkg/httpserver"
	"github.com/mkudasov/soltrader/pkg/wallet"
)

// App is the main application orchestrator.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server
	wallet        *wallet.Wallet
	chain         *execution.RPCClient
	snapshots     *statestore.RedisStore
	strategy      *strategy.Manager
	risk          *risk.Adjuster
	breaker       *circuitbreaker.BalanceCircuitBreaker
	storage       storage.Storage
	scheduler     *pricing.Scheduler
	listener      *feed.Listener
	trader        *trader.Trader
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

package app

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Run starts the application and blocks until shutdown.
func (a *App) Run() error {
	a.logger.Info("application-starting",
		zap.String("storage-mode", a.cfg.StorageMode),
		zap.String("base-mint", a.cfg.BaseMint),
		zap.String("log-level", a.cfg.LogLevel))

	err := a.startComponents()
	if err != nil {
		return err
	}

	a.healthChecker.SetReady(true)

	a.logger.Info("application-ready",
		zap.String("http-addr", ":"+a.cfg.HTTPPort),
		zap.String("rpc-url", a.cfg.RPCURL),
		zap.String("wallet", a.wallet.Pubkey()))

	return a.waitForShutdown()
}

func (a *App) startComponents() error {
	// Start HTTP server
	a.wg.Add(1)
	go a.runHTTPServer()

	// Give HTTP server a moment to start
	time.Sleep(100 * time.Millisecond)

	// Start risk adjustment loop
	a.risk.Start(a.ctx)

	// Start circuit breaker monitoring
	if a.breaker != nil {
		a.breaker.Start(a.ctx)
	}

	// Start price polling scheduler
	a.scheduler.Start(a.ctx)

	// Start pool feed listener
	if a.listener != nil {
		err := a.listener.Start()
		if err != nil {
			return fmt.Errorf("start feed listener: %w", err)
		}
	}

	// Start trading engine (restores positions, launches dispatch loops)
	err := a.trader.Start(a.ctx)
	if err != nil {
		return fmt.Errorf("start trader: %w", err)
	}

	return nil
}

func (a *App) runHTTPServer() {
	defer a.wg.Done()
	err := a.httpServer.Start()
	if err != nil {
		a.logger.Error("http-server-error", zap.Error(err))
	}
}

func (a *App) waitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case <-a.ctx.Done():
		a.logger.Info("context-cancelled")
	}

	return a.Shutdown()
}

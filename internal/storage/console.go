package storage

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/mkudasov/soltrader/pkg/types"
)

const consoleHistoryLimit = 500

// ConsoleStorage implements Storage by logging trades and keeping a
// bounded in-memory history. Used when no database is configured.
type ConsoleStorage struct {
	mu     sync.Mutex
	logger *zap.Logger
	trades []*types.Trade
}

// NewConsoleStorage creates a console-only storage.
func NewConsoleStorage(logger *zap.Logger) *ConsoleStorage {
	return &ConsoleStorage{logger: logger}
}

// AppendTrade logs the trade and appends it to the in-memory history.
func (c *ConsoleStorage) AppendTrade(ctx context.Context, trade *types.Trade) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.trades = append(c.trades, trade)
	if len(c.trades) > consoleHistoryLimit {
		c.trades = c.trades[len(c.trades)-consoleHistoryLimit:]
	}

	TradesStoredTotal.WithLabelValues("success").Inc()

	c.logger.Info("trade-recorded",
		zap.String("trade-id", trade.ID),
		zap.String("type", string(trade.Type)),
		zap.String("token", trade.TokenAddress),
		zap.Int64("amount", trade.Amount),
		zap.Float64("price", trade.Price),
		zap.Float64("value", trade.Value),
		zap.String("status", string(trade.Status)),
		zap.Float64("profit", trade.Profit),
		zap.String("error", trade.Error))

	return nil
}

// UpdateTradeStatus updates a trade in the in-memory history.
func (c *ConsoleStorage) UpdateTradeStatus(ctx context.Context, tradeID string, status types.TradeStatus, txID, errMsg string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, trade := range c.trades {
		if trade.ID == tradeID {
			trade.Status = status
			if txID != "" {
				trade.TxID = txID
			}
			if errMsg != "" {
				trade.Error = errMsg
			}
			return nil
		}
	}

	c.logger.Warn("trade-not-found-for-update", zap.String("trade-id", tradeID))

	return nil
}

// ListRecent returns the most recent trades, newest first.
func (c *ConsoleStorage) ListRecent(ctx context.Context, limit int) ([]*types.Trade, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if limit <= 0 || limit > len(c.trades) {
		limit = len(c.trades)
	}

	recent := make([]*types.Trade, 0, limit)
	for i := len(c.trades) - 1; i >= len(c.trades)-limit; i-- {
		recent = append(recent, c.trades[i])
	}

	return recent, nil
}

// Close is a no-op for console storage.
func (c *ConsoleStorage) Close() error {
	return nil
}

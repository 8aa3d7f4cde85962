package storage

import (
	"context"

	"github.com/mkudasov/soltrader/pkg/types"
)

// Storage persists trade history.
type Storage interface {
	// AppendTrade records a trade. Terminal failures are recorded too,
	// with status failed and the error string set.
	AppendTrade(ctx context.Context, trade *types.Trade) error

	// UpdateTradeStatus moves a trade to a new status, optionally
	// attaching the transaction ID and error string.
	UpdateTradeStatus(ctx context.Context, tradeID string, status types.TradeStatus, txID, errMsg string) error

	// ListRecent returns the most recent trades, newest first.
	ListRecent(ctx context.Context, limit int) ([]*types.Trade, error)

	// Close releases underlying resources.
	Close() error
}

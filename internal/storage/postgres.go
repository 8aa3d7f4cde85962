package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/mkudasov/soltrader/pkg/types"
)

// PostgresStorage implements Storage using PostgreSQL.
type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresStorage creates a new PostgreSQL storage.
func NewPostgresStorage(cfg *PostgresConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	cfg.Logger.Info("postgres-storage-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &PostgresStorage{
		db:     db,
		logger: cfg.Logger,
	}, nil
}

// newPostgresStorageWithDB wires an existing connection, used by tests.
func newPostgresStorageWithDB(db *sql.DB, logger *zap.Logger) *PostgresStorage {
	return &PostgresStorage{db: db, logger: logger}
}

// AppendTrade records a trade row.
func (p *PostgresStorage) AppendTrade(ctx context.Context, trade *types.Trade) error {
	query := `
		INSERT INTO trades (
			id, executed_at, trade_type, token_address, token_symbol,
			amount, price, value, tx_id, status, profit, fee, error
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)
	`

	_, err := p.db.ExecContext(ctx, query,
		trade.ID,
		trade.Timestamp,
		string(trade.Type),
		trade.TokenAddress,
		trade.TokenSymbol,
		trade.Amount,
		trade.Price,
		trade.Value,
		trade.TxID,
		string(trade.Status),
		trade.Profit,
		trade.Fee,
		trade.Error,
	)
	if err != nil {
		TradesStoredTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("insert trade: %w", err)
	}

	TradesStoredTotal.WithLabelValues("success").Inc()

	p.logger.Debug("trade-stored",
		zap.String("trade-id", trade.ID),
		zap.String("type", string(trade.Type)),
		zap.String("status", string(trade.Status)))

	return nil
}

// UpdateTradeStatus moves a trade to a new status.
func (p *PostgresStorage) UpdateTradeStatus(ctx context.Context, tradeID string, status types.TradeStatus, txID, errMsg string) error {
	query := `
		UPDATE trades
		SET status = $2, tx_id = $3, error = $4
		WHERE id = $1
	`

	result, err := p.db.ExecContext(ctx, query, tradeID, string(status), txID, errMsg)
	if err != nil {
		return fmt.Errorf("update trade status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return fmt.Errorf("trade %s not found", tradeID)
	}

	return nil
}

// ListRecent returns the most recent trades, newest first.
func (p *PostgresStorage) ListRecent(ctx context.Context, limit int) ([]*types.Trade, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, executed_at, trade_type, token_address, token_symbol,
		       amount, price, value, tx_id, status, profit, fee, error
		FROM trades
		ORDER BY executed_at DESC
		LIMIT $1
	`

	rows, err := p.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	var trades []*types.Trade
	for rows.Next() {
		var (
			trade     types.Trade
			tradeType string
			status    string
		)

		err := rows.Scan(
			&trade.ID,
			&trade.Timestamp,
			&tradeType,
			&trade.TokenAddress,
			&trade.TokenSymbol,
			&trade.Amount,
			&trade.Price,
			&trade.Value,
			&trade.TxID,
			&status,
			&trade.Profit,
			&trade.Fee,
			&trade.Error,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}

		trade.Type = types.TradeAction(tradeType)
		trade.Status = types.TradeStatus(status)
		trades = append(trades, &trade)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trades: %w", err)
	}

	return trades, nil
}

// Close closes the database connection.
func (p *PostgresStorage) Close() error {
	p.logger.Info("closing-postgres-storage")
	return p.db.Close()
}

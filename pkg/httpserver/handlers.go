package httpserver

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/mkudasov/soltrader/pkg/types"
)

const (
	defaultTradesLimit = 50
	maxTradesLimit     = 500
)

// PositionLister exposes the open position set. The strategy manager
// implements this.
type PositionLister interface {
	Positions() []*types.PositionSnapshot
}

// TradeLister exposes recent trade history. The storage layer implements
// this.
type TradeLister interface {
	ListRecent(ctx context.Context, limit int) ([]*types.Trade, error)
}

// PositionResponse represents one open position in the HTTP API.
type PositionResponse struct {
	TokenMint     string    `json:"token_mint"`
	PoolAddress   string    `json:"pool_address"`
	Dex           string    `json:"dex"`
	Amount        int64     `json:"amount"`
	AvgBuyPrice   float64   `json:"avg_buy_price"`
	CurrentPrice  float64   `json:"current_price"`
	ProfitLoss    float64   `json:"profit_loss"`
	ProfitLossPct float64   `json:"profit_loss_pct"`
	LastUpdated   time.Time `json:"last_updated"`
}

// TradeResponse represents one historical trade in the HTTP API.
type TradeResponse struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Type         string    `json:"type"`
	TokenAddress string    `json:"token_address"`
	Amount       int64     `json:"amount"`
	Price        float64   `json:"price"`
	Value        float64   `json:"value"`
	TxID         string    `json:"tx_id,omitempty"`
	Status       string    `json:"status"`
	Profit       float64   `json:"profit"`
	Error        string    `json:"error,omitempty"`
}

// ErrorResponse represents an HTTP error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// PositionsHandler handles HTTP requests for open positions.
type PositionsHandler struct {
	positions PositionLister
	logger    *zap.Logger
}

// NewPositionsHandler creates a new positions handler.
func NewPositionsHandler(positions PositionLister, logger *zap.Logger) *PositionsHandler {
	return &PositionsHandler{positions: positions, logger: logger}
}

// HandlePositions handles GET /api/positions requests.
func (h *PositionsHandler) HandlePositions(w http.ResponseWriter, r *http.Request) {
	snaps := h.positions.Positions()

	response := make([]PositionResponse, 0, len(snaps))
	for _, snap := range snaps {
		response = append(response, PositionResponse{
			TokenMint:     snap.TokenMint,
			PoolAddress:   snap.PoolAddress,
			Dex:           snap.Dex,
			Amount:        snap.Amount,
			AvgBuyPrice:   snap.AvgBuyPrice,
			CurrentPrice:  snap.CurrentPrice,
			ProfitLoss:    snap.ProfitLoss,
			ProfitLossPct: snap.ProfitLossPct,
			LastUpdated:   snap.LastUpdated,
		})
	}

	writeJSON(w, h.logger, http.StatusOK, response)
}

// TradesHandler handles HTTP requests for trade history.
type TradesHandler struct {
	trades TradeLister
	logger *zap.Logger
}

// NewTradesHandler creates a new trades handler.
func NewTradesHandler(trades TradeLister, logger *zap.Logger) *TradesHandler {
	return &TradesHandler{trades: trades, logger: logger}
}

// HandleTrades handles GET /api/trades?limit=<n> requests.
func (h *TradesHandler) HandleTrades(w http.ResponseWriter, r *http.Request) {
	limit := defaultTradesLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, h.logger, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}
	if limit > maxTradesLimit {
		limit = maxTradesLimit
	}

	trades, err := h.trades.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.Error("trade-history-read-failed", zap.Error(err))
		writeError(w, h.logger, "failed to read trade history", http.StatusInternalServerError)
		return
	}

	response := make([]TradeResponse, 0, len(trades))
	for _, trade := range trades {
		response = append(response, TradeResponse{
			ID:           trade.ID,
			Timestamp:    trade.Timestamp,
			Type:         string(trade.Type),
			TokenAddress: trade.TokenAddress,
			Amount:       trade.Amount,
			Price:        trade.Price,
			Value:        trade.Value,
			TxID:         trade.TxID,
			Status:       string(trade.Status),
			Profit:       trade.Profit,
			Error:        trade.Error,
		})
	}

	writeJSON(w, h.logger, http.StatusOK, response)
}

func writeJSON(w http.ResponseWriter, logger *zap.Logger, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("failed-to-encode-response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, logger *zap.Logger, message string, statusCode int) {
	writeJSON(w, logger, statusCode, ErrorResponse{Error: message})
}

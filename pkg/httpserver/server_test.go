package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mkudasov/soltrader/pkg/healthprobe"
	"github.com/mkudasov/soltrader/pkg/types"
)

type stubPositions struct {
	snaps []*types.PositionSnapshot
}

func (s *stubPositions) Positions() []*types.PositionSnapshot {
	return s.snaps
}

type stubTrades struct {
	trades    []*types.Trade
	err       error
	lastLimit int
}

func (s *stubTrades) ListRecent(ctx context.Context, limit int) ([]*types.Trade, error) {
	s.lastLimit = limit
	if s.err != nil {
		return nil, s.err
	}
	if limit < len(s.trades) {
		return s.trades[:limit], nil
	}
	return s.trades, nil
}

func TestNew(t *testing.T) {
	logger := zap.NewNop()
	healthChecker := healthprobe.New()

	server := New(&Config{
		Port:          "8080",
		Logger:        logger,
		HealthChecker: healthChecker,
	})

	if server == nil {
		t.Fatal("New() returned nil server")
	}
	if server.server == nil {
		t.Error("New() server.server is nil")
	}
	if server.logger != logger {
		t.Error("New() logger not set correctly")
	}
	if server.healthChecker != healthChecker {
		t.Error("New() healthChecker not set correctly")
	}
}

func TestHealthEndpoint(t *testing.T) {
	server := New(&Config{
		Port:          "0",
		Logger:        zap.NewNop(),
		HealthChecker: healthprobe.New(),
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	server.server.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Health endpoint status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestReadyEndpoint(t *testing.T) {
	tests := []struct {
		name           string
		setReady       bool
		expectedStatus int
	}{
		{
			name:           "ready_when_set",
			setReady:       true,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "not_ready_initially",
			setReady:       false,
			expectedStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := healthprobe.New()
			if tt.setReady {
				hc.SetReady(true)
			}

			server := New(&Config{
				Port:          "0",
				Logger:        zap.NewNop(),
				HealthChecker: hc,
			})

			req := httptest.NewRequest(http.MethodGet, "/ready", nil)
			w := httptest.NewRecorder()

			server.server.Handler.ServeHTTP(w, req)

			resp := w.Result()
			defer resp.Body.Close()

			if resp.StatusCode != tt.expectedStatus {
				t.Errorf("Ready endpoint status = %d, want %d", resp.StatusCode, tt.expectedStatus)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	server := New(&Config{
		Port:          "0",
		Logger:        zap.NewNop(),
		HealthChecker: healthprobe.New(),
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()

	server.server.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Metrics endpoint status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if resp.Header.Get("Content-Type") == "" {
		t.Error("Metrics endpoint missing Content-Type header")
	}
}

func TestPositionsEndpoint(t *testing.T) {
	positions := &stubPositions{
		snaps: []*types.PositionSnapshot{
			{
				TokenMint:    "mint-token",
				PoolAddress:  "pool-1",
				Dex:          "raydium",
				Amount:       5000,
				AvgBuyPrice:  0.001,
				CurrentPrice: 0.0012,
				LastUpdated:  time.Now(),
			},
		},
	}

	server := New(&Config{
		Port:          "0",
		Logger:        zap.NewNop(),
		HealthChecker: healthprobe.New(),
		Positions:     positions,
	})

	req := httptest.NewRequest(http.MethodGet, "/api/positions", nil)
	w := httptest.NewRecorder()

	server.server.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Positions endpoint status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var body []PositionResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode positions response: %v", err)
	}

	if len(body) != 1 {
		t.Fatalf("Positions response length = %d, want 1", len(body))
	}
	if body[0].TokenMint != "mint-token" {
		t.Errorf("Position token mint = %q, want %q", body[0].TokenMint, "mint-token")
	}
	if body[0].Amount != 5000 {
		t.Errorf("Position amount = %d, want 5000", body[0].Amount)
	}
}

func TestTradesEndpoint(t *testing.T) {
	trades := &stubTrades{
		trades: []*types.Trade{
			{
				ID:           "trade-1",
				Timestamp:    time.Now(),
				Type:         types.ActionBuy,
				TokenAddress: "mint-token",
				Amount:       5000,
				Price:        0.001,
				Value:        5,
				Status:       types.TradeStatusCompleted,
				TxID:         "sig-1",
			},
		},
	}

	server := New(&Config{
		Port:          "0",
		Logger:        zap.NewNop(),
		HealthChecker: healthprobe.New(),
		Trades:        trades,
	})

	req := httptest.NewRequest(http.MethodGet, "/api/trades", nil)
	w := httptest.NewRecorder()

	server.server.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Trades endpoint status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	if trades.lastLimit != defaultTradesLimit {
		t.Errorf("Default limit = %d, want %d", trades.lastLimit, defaultTradesLimit)
	}

	var body []TradeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode trades response: %v", err)
	}

	if len(body) != 1 {
		t.Fatalf("Trades response length = %d, want 1", len(body))
	}
	if body[0].ID != "trade-1" {
		t.Errorf("Trade ID = %q, want %q", body[0].ID, "trade-1")
	}
	if body[0].Type != "buy" {
		t.Errorf("Trade type = %q, want %q", body[0].Type, "buy")
	}
}

func TestTradesEndpoint_LimitHandling(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		expectedStatus int
		expectedLimit  int
	}{
		{
			name:           "explicit_limit",
			query:          "?limit=10",
			expectedStatus: http.StatusOK,
			expectedLimit:  10,
		},
		{
			name:           "limit_capped_at_max",
			query:          "?limit=9999",
			expectedStatus: http.StatusOK,
			expectedLimit:  maxTradesLimit,
		},
		{
			name:           "invalid_limit",
			query:          "?limit=abc",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "negative_limit",
			query:          "?limit=-5",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trades := &stubTrades{}

			server := New(&Config{
				Port:          "0",
				Logger:        zap.NewNop(),
				HealthChecker: healthprobe.New(),
				Trades:        trades,
			})

			req := httptest.NewRequest(http.MethodGet, "/api/trades"+tt.query, nil)
			w := httptest.NewRecorder()

			server.server.Handler.ServeHTTP(w, req)

			resp := w.Result()
			defer resp.Body.Close()

			if resp.StatusCode != tt.expectedStatus {
				t.Errorf("Trades endpoint status = %d, want %d", resp.StatusCode, tt.expectedStatus)
			}
			if tt.expectedStatus == http.StatusOK && trades.lastLimit != tt.expectedLimit {
				t.Errorf("Limit = %d, want %d", trades.lastLimit, tt.expectedLimit)
			}
		})
	}
}

func TestTradesEndpoint_StorageError(t *testing.T) {
	trades := &stubTrades{err: errors.New("connection refused")}

	server := New(&Config{
		Port:          "0",
		Logger:        zap.NewNop(),
		HealthChecker: healthprobe.New(),
		Trades:        trades,
	})

	req := httptest.NewRequest(http.MethodGet, "/api/trades", nil)
	w := httptest.NewRecorder()

	server.server.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("Trades endpoint status = %d, want %d", resp.StatusCode, http.StatusInternalServerError)
	}

	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		t.Fatalf("Failed to decode error response: %v", err)
	}
	if errResp.Error == "" {
		t.Error("Error response missing error message")
	}
}

func TestAPIEndpoints_OnlyWithComponents(t *testing.T) {
	server := New(&Config{
		Port:          "0",
		Logger:        zap.NewNop(),
		HealthChecker: healthprobe.New(),
	})

	for _, path := range []string{"/api/positions", "/api/trades"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()

		server.server.Handler.ServeHTTP(w, req)

		resp := w.Result()
		resp.Body.Close()

		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("%s status = %d, want %d", path, resp.StatusCode, http.StatusNotFound)
		}
	}
}

func TestServer_StartAndShutdown(t *testing.T) {
	server := New(&Config{
		Port:          "0",
		Logger:        zap.NewNop(),
		HealthChecker: healthprobe.New(),
	})

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- server.Start()
	}()

	time.Sleep(100 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}

	select {
	case err := <-serverDone:
		if err != nil {
			t.Errorf("Start() returned error after shutdown: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not return after shutdown")
	}
}

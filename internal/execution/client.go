package execution

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/mkudasov/soltrader/internal/txbuilder"
	"github.com/mkudasov/soltrader/pkg/types"
)

// ChainClient is the transport boundary to the chain. The trade
// executor, transaction builder and circuit breaker all consume slices
// of this interface.
type ChainClient interface {
	// SubmitTransaction broadcasts a serialized signed transaction and
	// returns its signature.
	SubmitTransaction(ctx context.Context, raw []byte) (string, error)
	// ConfirmTransaction blocks until the signature is confirmed or the
	// context expires.
	ConfirmTransaction(ctx context.Context, signature string) error
	// LatestBlockhash returns a fresh blockhash for anchoring.
	LatestBlockhash(ctx context.Context) (string, error)
	// GetBalance returns the base-token balance of an account.
	GetBalance(ctx context.Context, pubkey string) (float64, error)
}

const confirmPollInterval = 500 * time.Millisecond

// RPCClient is a thin JSON-RPC HTTP implementation of ChainClient.
type RPCClient struct {
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
	reqID      atomic.Uint64
}

// RPCConfig holds RPC client configuration.
type RPCConfig struct {
	Endpoint string
	Timeout  time.Duration
	Logger   *zap.Logger
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// NewRPCClient creates a JSON-RPC chain client.
func NewRPCClient(cfg *RPCConfig) (*RPCClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint cannot be empty")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &RPCClient{
		endpoint:   cfg.Endpoint,
		httpClient: &http.Client{Timeout: timeout},
		logger:     cfg.Logger,
	}, nil
}

func (c *RPCClient) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	payload, err := json.Marshal(&rpcRequest{
		JSONRPC: "2.0",
		ID:      c.reqID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("marshal rpc request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create rpc request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("rpc %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("rpc %s returned %d: %s", method, resp.StatusCode, string(body))
	}

	var parsed rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("decode rpc response: %w", err)
	}
	if parsed.Error != nil {
		return fmt.Errorf("rpc %s error %d: %s", method, parsed.Error.Code, parsed.Error.Message)
	}

	if result != nil {
		if err := json.Unmarshal(parsed.Result, result); err != nil {
			return fmt.Errorf("unmarshal rpc result: %w", err)
		}
	}

	return nil
}

// SubmitTransaction broadcasts a serialized transaction.
func (c *RPCClient) SubmitTransaction(ctx context.Context, raw []byte) (string, error) {
	var signature string
	encoded := base64.StdEncoding.EncodeToString(raw)

	err := c.call(ctx, "sendTransaction", []interface{}{
		encoded,
		map[string]interface{}{"encoding": "base64"},
	}, &signature)
	if err != nil {
		return "", err
	}

	return signature, nil
}

// ConfirmTransaction polls signature status until confirmed or the
// context expires. Expiry surfaces as ConfirmationTimeoutError.
func (c *RPCClient) ConfirmTransaction(ctx context.Context, signature string) error {
	ticker := time.NewTicker(confirmPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return &types.ConfirmationTimeoutError{Signature: signature}
		case <-ticker.C:
			confirmed, err := c.signatureConfirmed(ctx, signature)
			if err != nil {
				c.logger.Debug("confirm-poll-error",
					zap.String("signature", signature),
					zap.Error(err))
				continue
			}
			if confirmed {
				return nil
			}
		}
	}
}

func (c *RPCClient) signatureConfirmed(ctx context.Context, signature string) (bool, error) {
	var result struct {
		Value []*struct {
			ConfirmationStatus string  `json:"confirmationStatus"`
			Err                *string `json:"err"`
		} `json:"value"`
	}

	err := c.call(ctx, "getSignatureStatuses", []interface{}{
		[]string{signature},
	}, &result)
	if err != nil {
		return false, err
	}

	if len(result.Value) == 0 || result.Value[0] == nil {
		return false, nil
	}

	status := result.Value[0]
	if status.Err != nil {
		return false, fmt.Errorf("transaction failed on chain: %s", *status.Err)
	}

	return status.ConfirmationStatus == "confirmed" || status.ConfirmationStatus == "finalized", nil
}

// LatestBlockhash returns a fresh blockhash.
func (c *RPCClient) LatestBlockhash(ctx context.Context) (string, error) {
	var result struct {
		Value struct {
			Blockhash string `json:"blockhash"`
		} `json:"value"`
	}

	if err := c.call(ctx, "getLatestBlockhash", nil, &result); err != nil {
		return "", err
	}
	if result.Value.Blockhash == "" {
		return "", fmt.Errorf("empty blockhash in rpc response")
	}

	return result.Value.Blockhash, nil
}

// GetBalance returns the base-token balance of an account in whole
// units.
func (c *RPCClient) GetBalance(ctx context.Context, pubkey string) (float64, error) {
	var result struct {
		Value uint64 `json:"value"`
	}

	if err := c.call(ctx, "getBalance", []interface{}{pubkey}, &result); err != nil {
		return 0, err
	}

	return float64(result.Value) / 1e9, nil
}

// GetTokenMetadata resolves mint decimals from token supply info. The
// symbol is not available over plain RPC and is left empty.
func (c *RPCClient) GetTokenMetadata(ctx context.Context, mint string) (*txbuilder.TokenMetadata, error) {
	var result struct {
		Value struct {
			Decimals uint8 `json:"decimals"`
		} `json:"value"`
	}

	if err := c.call(ctx, "getTokenSupply", []interface{}{mint}, &result); err != nil {
		return nil, err
	}

	return &txbuilder.TokenMetadata{
		Mint:     mint,
		Decimals: result.Value.Decimals,
	}, nil
}

package pricing

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// PriceSource resolves the current price of a token in base-token terms.
type PriceSource interface {
	GetPrice(ctx context.Context, tokenMint string) (float64, error)
}

// HTTPSource fetches prices from a REST price API. Requests are
// rate-limited client-side so concurrent batch fans never exceed the
// upstream quota.
type HTTPSource struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// HTTPSourceConfig holds price source configuration.
type HTTPSourceConfig struct {
	BaseURL string
	// RateLimitRPS caps outgoing requests per second.
	RateLimitRPS float64
	Timeout      time.Duration
	Logger       *zap.Logger
}

type priceResponse struct {
	Data map[string]struct {
		Price float64 `json:"price"`
	} `json:"data"`
}

// NewHTTPSource creates an HTTP price source.
func NewHTTPSource(cfg *HTTPSourceConfig) (*HTTPSource, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	rps := cfg.RateLimitRPS
	if rps <= 0 {
		rps = 10
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &HTTPSource{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), int(rps)+1),
		logger:     cfg.Logger,
	}, nil
}

// GetPrice fetches the current price for a single mint. Blocks on the
// rate limiter when the quota is exhausted.
func (s *HTTPSource) GetPrice(ctx context.Context, tokenMint string) (float64, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limiter: %w", err)
	}

	reqURL := fmt.Sprintf("%s/price?ids=%s", s.baseURL, url.QueryEscape(tokenMint))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		PriceFetchesTotal.WithLabelValues("error").Inc()
		return 0, fmt.Errorf("fetch price: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		PriceFetchesTotal.WithLabelValues("error").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("price API returned %d: %s", resp.StatusCode, string(body))
	}

	var parsed priceResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		PriceFetchesTotal.WithLabelValues("error").Inc()
		return 0, fmt.Errorf("decode price response: %w", err)
	}

	entry, ok := parsed.Data[tokenMint]
	if !ok {
		PriceFetchesTotal.WithLabelValues("not_found").Inc()
		return 0, fmt.Errorf("no price for mint %s", tokenMint)
	}
	if entry.Price <= 0 {
		PriceFetchesTotal.WithLabelValues("invalid").Inc()
		return 0, fmt.Errorf("non-positive price %f for mint %s", entry.Price, tokenMint)
	}

	PriceFetchesTotal.WithLabelValues("success").Inc()

	return entry.Price, nil
}

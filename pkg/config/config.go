package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration. Every tunable of the trading
// engine is injected here, never hard-coded at the call site.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// Chain RPC
	RPCURL            string
	PoolFeedURL       string
	PriceAPIURL       string
	PriceRateLimitRPS float64

	// Wallet
	WalletPrivateKey string
	BaseMint         string

	// TokenDenylist lists mints the risk check must always fail.
	TokenDenylist []string

	// Execution
	MaxRetries       int
	ConfirmTimeout   time.Duration
	SlippageBps      int
	PriorityFee      bool
	PriorityFeeBase  uint64
	PriorityFeeMult  float64
	PriorityFeeCap   uint64
	RetryBackoffBase time.Duration
	RetryBackoffCap  time.Duration

	// Opportunity queue / batch scheduler
	QueueMaxSize  int
	BatchSize     int
	BatchInterval time.Duration

	// Price checking
	PriceCheckInterval time.Duration
	PriceCacheTTL      time.Duration
	PriceCacheMaxSize  int
	PriceBatchMin      int
	PriceBatchMax      int

	// Strategy
	BuyEnabled        bool
	MinConfidence     float64
	MinPriorityScore  float64
	TakeProfitPct     float64
	StopLossPct       float64
	TrailingStopPct   float64
	PositionTimeLimit time.Duration

	// Risk
	RiskAdjustInterval    time.Duration
	RiskWindowSize        int
	MaxRiskPerToken       float64
	MinRiskPerToken       float64
	MaxTotalRisk          float64
	MinTotalRisk          float64
	RiskStep              float64
	MaxAllocationPerToken float64

	// Self healing
	HealInterval    time.Duration
	StuckResetAfter time.Duration
	PendingTimeout  time.Duration

	// Circuit breaker
	CircuitBreakerEnabled         bool
	CircuitBreakerCheckInterval   time.Duration
	CircuitBreakerTradeMultiplier float64
	CircuitBreakerMinAbsolute     float64
	CircuitBreakerHysteresisRatio float64

	// Position snapshots
	RedisAddr     string
	RedisPassword string

	// Storage
	StorageMode  string // "postgres" or "console"
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		// Application defaults
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		// Chain defaults
		RPCURL:            getEnvOrDefault("RPC_URL", "https://api.mainnet-beta.solana.com"),
		PoolFeedURL:       getEnvOrDefault("POOL_FEED_URL", "wss://pool-feed.local/ws"),
		PriceAPIURL:       getEnvOrDefault("PRICE_API_URL", "https://price.jup.ag/v4"),
		PriceRateLimitRPS: getFloat64OrDefault("PRICE_RATE_LIMIT_RPS", 10.0),

		// Wallet defaults
		WalletPrivateKey: os.Getenv("WALLET_PRIVATE_KEY"),
		BaseMint:         getEnvOrDefault("BASE_MINT", "So11111111111111111111111111111111111111112"),
		TokenDenylist:    getListOrDefault("TOKEN_DENYLIST", nil),

		// Execution defaults
		MaxRetries:       getIntOrDefault("MAX_RETRIES", 3),
		ConfirmTimeout:   getDurationOrDefault("CONFIRM_TIMEOUT", 30*time.Second),
		SlippageBps:      getIntOrDefault("SLIPPAGE_BPS", 100),
		PriorityFee:      getBoolOrDefault("PRIORITY_FEE_ENABLED", true),
		PriorityFeeBase:  uint64(getIntOrDefault("PRIORITY_FEE_BASE", 1000)),
		PriorityFeeMult:  getFloat64OrDefault("PRIORITY_FEE_MULTIPLIER", 1.5),
		PriorityFeeCap:   uint64(getIntOrDefault("PRIORITY_FEE_CAP", 1000000)),
		RetryBackoffBase: getDurationOrDefault("RETRY_BACKOFF_BASE", 500*time.Millisecond),
		RetryBackoffCap:  getDurationOrDefault("RETRY_BACKOFF_CAP", 10*time.Second),

		// Queue defaults
		QueueMaxSize:  getIntOrDefault("QUEUE_MAX_SIZE", 100),
		BatchSize:     getIntOrDefault("BATCH_SIZE", 5),
		BatchInterval: getDurationOrDefault("BATCH_INTERVAL", 2*time.Second),

		// Price checking defaults
		PriceCheckInterval: getDurationOrDefault("PRICE_CHECK_INTERVAL", 5*time.Second),
		PriceCacheTTL:      getDurationOrDefault("PRICE_CACHE_TTL", 60*time.Second),
		PriceCacheMaxSize:  getIntOrDefault("PRICE_CACHE_MAX_SIZE", 1000),
		PriceBatchMin:      getIntOrDefault("PRICE_BATCH_MIN", 3),
		PriceBatchMax:      getIntOrDefault("PRICE_BATCH_MAX", 20),

		// Strategy defaults
		BuyEnabled:        getBoolOrDefault("BUY_ENABLED", true),
		MinConfidence:     getFloat64OrDefault("MIN_CONFIDENCE", 0.5),
		MinPriorityScore:  getFloat64OrDefault("MIN_PRIORITY_SCORE", 0.5),
		TakeProfitPct:     getFloat64OrDefault("TAKE_PROFIT_PCT", 20.0),
		StopLossPct:       getFloat64OrDefault("STOP_LOSS_PCT", 10.0),
		TrailingStopPct:   getFloat64OrDefault("TRAILING_STOP_PCT", 0),
		PositionTimeLimit: getDurationOrDefault("POSITION_TIME_LIMIT", 0),

		// Risk defaults
		RiskAdjustInterval:    getDurationOrDefault("RISK_ADJUST_INTERVAL", 5*time.Minute),
		RiskWindowSize:        getIntOrDefault("RISK_WINDOW_SIZE", 50),
		MaxRiskPerToken:       getFloat64OrDefault("MAX_RISK_PER_TOKEN", 0.05),
		MinRiskPerToken:       getFloat64OrDefault("MIN_RISK_PER_TOKEN", 0.005),
		MaxTotalRisk:          getFloat64OrDefault("MAX_TOTAL_RISK", 0.25),
		MinTotalRisk:          getFloat64OrDefault("MIN_TOTAL_RISK", 0.05),
		RiskStep:              getFloat64OrDefault("RISK_STEP", 0.005),
		MaxAllocationPerToken: getFloat64OrDefault("MAX_ALLOCATION_PER_TOKEN", 0.10),

		// Self-healing defaults
		HealInterval:    getDurationOrDefault("HEAL_INTERVAL", 5*time.Minute),
		StuckResetAfter: getDurationOrDefault("STUCK_RESET_AFTER", 60*time.Second),
		PendingTimeout:  getDurationOrDefault("PENDING_TIMEOUT", 5*time.Minute),

		// Circuit breaker defaults
		CircuitBreakerEnabled:         getBoolOrDefault("CIRCUIT_BREAKER_ENABLED", true),
		CircuitBreakerCheckInterval:   getDurationOrDefault("CIRCUIT_BREAKER_CHECK_INTERVAL", 60*time.Second),
		CircuitBreakerTradeMultiplier: getFloat64OrDefault("CIRCUIT_BREAKER_TRADE_MULTIPLIER", 3.0),
		CircuitBreakerMinAbsolute:     getFloat64OrDefault("CIRCUIT_BREAKER_MIN_ABSOLUTE", 0.1),
		CircuitBreakerHysteresisRatio: getFloat64OrDefault("CIRCUIT_BREAKER_HYSTERESIS_RATIO", 1.5),

		// Snapshot defaults
		RedisAddr:     getEnvOrDefault("REDIS_ADDR", ""),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		// Storage defaults
		StorageMode:  getEnvOrDefault("STORAGE_MODE", "console"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "soltrader"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "soltrader123"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "soltrader"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}

	if c.RPCURL == "" {
		return fmt.Errorf("RPC_URL cannot be empty")
	}

	if c.MaxRetries < 1 {
		return fmt.Errorf("MAX_RETRIES must be at least 1, got %d", c.MaxRetries)
	}

	if c.SlippageBps < 0 || c.SlippageBps >= 10000 {
		return fmt.Errorf("SLIPPAGE_BPS must be in [0,10000), got %d", c.SlippageBps)
	}

	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("MIN_CONFIDENCE must be between 0 and 1, got %f", c.MinConfidence)
	}

	if c.QueueMaxSize <= 0 {
		return fmt.Errorf("QUEUE_MAX_SIZE must be positive, got %d", c.QueueMaxSize)
	}

	if c.BatchSize <= 0 || c.BatchSize > c.QueueMaxSize {
		return fmt.Errorf("BATCH_SIZE must be in [1,%d], got %d", c.QueueMaxSize, c.BatchSize)
	}

	if c.PriceBatchMin <= 0 || c.PriceBatchMax < c.PriceBatchMin {
		return fmt.Errorf("invalid price batch bounds [%d,%d]", c.PriceBatchMin, c.PriceBatchMax)
	}

	if c.MaxRiskPerToken < c.MinRiskPerToken {
		return fmt.Errorf("MAX_RISK_PER_TOKEN must be >= MIN_RISK_PER_TOKEN")
	}

	if c.MaxTotalRisk < c.MinTotalRisk {
		return fmt.Errorf("MAX_TOTAL_RISK must be >= MIN_TOTAL_RISK")
	}

	if c.StorageMode != "postgres" && c.StorageMode != "console" {
		return fmt.Errorf("STORAGE_MODE must be 'postgres' or 'console', got %q", c.StorageMode)
	}

	return nil
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatVal
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return boolVal
}

func getListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parts := strings.Split(value, ",")
	list := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			list = append(list, part)
		}
	}

	return list
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}

package feed

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
)

// reconnectConfig holds exponential backoff reconnection settings.
type reconnectConfig struct {
	initialDelay  time.Duration
	maxDelay      time.Duration
	multiplier    float64
	jitterPercent float64
}

// reconnector retries a connect function with exponential backoff and
// jitter so a fleet of listeners doesn't stampede the feed endpoint.
type reconnector struct {
	mu      sync.Mutex
	config  reconnectConfig
	logger  *zap.Logger
	current time.Duration
}

func newReconnector(cfg reconnectConfig, logger *zap.Logger) *reconnector {
	return &reconnector{
		config:  cfg,
		logger:  logger,
		current: cfg.initialDelay,
	}
}

// reconnect retries connect until it succeeds or the context ends.
func (r *reconnector) reconnect(ctx context.Context, connect func(context.Context) error) error {
	for {
		backoff := r.nextBackoff()

		r.logger.Info("feed-reconnecting", zap.Duration("backoff", backoff))
		ReconnectAttemptsTotal.Inc()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		if err := connect(ctx); err == nil {
			r.reset()
			r.logger.Info("feed-reconnected")
			return nil
		} else {
			r.logger.Warn("feed-reconnect-failed", zap.Error(err))
			ReconnectFailuresTotal.Inc()
			r.grow()
		}
	}
}

func (r *reconnector) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.current = r.config.initialDelay
}

func (r *reconnector) nextBackoff() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	jitter := rand.Float64() * r.config.jitterPercent

	return time.Duration(float64(r.current) * (1.0 + jitter))
}

func (r *reconnector) grow() {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := time.Duration(float64(r.current) * r.config.multiplier)
	if next > r.config.maxDelay {
		next = r.config.maxDelay
	}
	r.current = next
}

package statestore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mkudasov/soltrader/pkg/types"
)

const (
	keyPrefix = "soltrader:position:"
	indexKey  = "soltrader:positions"

	// snapshotTTL keeps crashed-run leftovers from lingering forever.
	snapshotTTL = 24 * time.Hour
)

// RedisStore persists position snapshots in Redis so positions survive
// restarts. Every write also lands in an in-memory mirror; when Redis is
// unreachable the mirror keeps serving reads and writes degrade to
// memory-only with a warning.
type RedisStore struct {
	client *redis.Client
	logger *zap.Logger

	mu     sync.Mutex
	mirror map[string]*types.PositionSnapshot
}

// Config holds Redis store configuration.
type Config struct {
	Addr     string
	Password string
	DB       int
	Logger   *zap.Logger
}

// New creates a Redis-backed position store. Connection failures at
// startup are not fatal; the store starts in memory-only mode.
func New(cfg *Config) (*RedisStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	store := &RedisStore{
		logger: cfg.Logger,
		mirror: make(map[string]*types.PositionSnapshot),
	}

	if cfg.Addr == "" {
		cfg.Logger.Info("position-store-memory-only")
		return store, nil
	}

	store.client = redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := store.client.Ping(ctx).Err(); err != nil {
		cfg.Logger.Warn("redis-unreachable-falling-back-to-memory",
			zap.String("addr", cfg.Addr),
			zap.Error(err))
	} else {
		cfg.Logger.Info("position-store-connected", zap.String("addr", cfg.Addr))
	}

	return store, nil
}

// Save upserts a position snapshot.
func (s *RedisStore) Save(ctx context.Context, snap *types.PositionSnapshot) error {
	s.mu.Lock()
	s.mirror[snap.TokenMint] = snap
	s.mu.Unlock()

	if s.client == nil {
		return nil
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, keyPrefix+snap.TokenMint, payload, snapshotTTL)
	pipe.SAdd(ctx, indexKey, snap.TokenMint)

	if _, err := pipe.Exec(ctx); err != nil {
		SnapshotOpsTotal.WithLabelValues("save", "error").Inc()
		s.logger.Warn("snapshot-save-degraded-to-memory",
			zap.String("mint", snap.TokenMint),
			zap.Error(err))
		return nil
	}

	SnapshotOpsTotal.WithLabelValues("save", "success").Inc()

	return nil
}

// Delete removes a position snapshot.
func (s *RedisStore) Delete(ctx context.Context, tokenMint string) error {
	s.mu.Lock()
	delete(s.mirror, tokenMint)
	s.mu.Unlock()

	if s.client == nil {
		return nil
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, keyPrefix+tokenMint)
	pipe.SRem(ctx, indexKey, tokenMint)

	if _, err := pipe.Exec(ctx); err != nil {
		SnapshotOpsTotal.WithLabelValues("delete", "error").Inc()
		s.logger.Warn("snapshot-delete-degraded-to-memory",
			zap.String("mint", tokenMint),
			zap.Error(err))
		return nil
	}

	SnapshotOpsTotal.WithLabelValues("delete", "success").Inc()

	return nil
}

// List returns all stored snapshots. Redis is authoritative when
// reachable; otherwise the in-memory mirror serves the read.
func (s *RedisStore) List(ctx context.Context) ([]*types.PositionSnapshot, error) {
	if s.client != nil {
		snaps, err := s.listRedis(ctx)
		if err == nil {
			return snaps, nil
		}

		SnapshotOpsTotal.WithLabelValues("list", "error").Inc()
		s.logger.Warn("snapshot-list-degraded-to-memory", zap.Error(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snaps := make([]*types.PositionSnapshot, 0, len(s.mirror))
	for _, snap := range s.mirror {
		snaps = append(snaps, snap)
	}

	return snaps, nil
}

func (s *RedisStore) listRedis(ctx context.Context) ([]*types.PositionSnapshot, error) {
	mints, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("read position index: %w", err)
	}

	snaps := make([]*types.PositionSnapshot, 0, len(mints))
	for _, mint := range mints {
		payload, err := s.client.Get(ctx, keyPrefix+mint).Bytes()
		if err == redis.Nil {
			// Expired snapshot still in the index.
			s.client.SRem(ctx, indexKey, mint)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read snapshot %s: %w", mint, err)
		}

		var snap types.PositionSnapshot
		if err := json.Unmarshal(payload, &snap); err != nil {
			return nil, fmt.Errorf("unmarshal snapshot %s: %w", mint, err)
		}
		snaps = append(snaps, &snap)
	}

	SnapshotOpsTotal.WithLabelValues("list", "success").Inc()

	return snaps, nil
}

// Close releases the Redis connection.
func (s *RedisStore) Close() error {
	if s.client == nil {
		return nil
	}

	return s.client.Close()
}

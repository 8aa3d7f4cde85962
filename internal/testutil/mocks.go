package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mkudasov/soltrader/internal/txbuilder"
)

// Logger returns a development logger for tests.
func Logger() *zap.Logger {
	logger, _ := zap.NewDevelopment()
	return logger
}

// MapCache is a synchronous in-memory cache.Cache implementation.
// Ristretto admits entries asynchronously, which makes cache-dependent
// assertions flaky.
type MapCache struct {
	mu      sync.Mutex
	entries map[string]interface{}
}

// NewMapCache creates an empty MapCache.
func NewMapCache() *MapCache {
	return &MapCache{entries: make(map[string]interface{})}
}

func (c *MapCache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *MapCache) Set(key string, value interface{}, ttl time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return true
}

func (c *MapCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

func (c *MapCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]interface{})
}

func (c *MapCache) Close() {}

// StaticMetadataSource serves token metadata from a fixed map.
type StaticMetadataSource struct {
	mu    sync.Mutex
	Meta  map[string]*txbuilder.TokenMetadata
	Err   error
	calls int
}

func (s *StaticMetadataSource) GetTokenMetadata(ctx context.Context, mint string) (*txbuilder.TokenMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if s.Err != nil {
		return nil, s.Err
	}
	meta, ok := s.Meta[mint]
	if !ok {
		return nil, fmt.Errorf("unknown mint %s", mint)
	}

	return meta, nil
}

// Calls returns how many lookups reached the source.
func (s *StaticMetadataSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// MockChain is a configurable in-memory ChainClient.
type MockChain struct {
	mu sync.Mutex

	// SubmitErrs are consumed one per SubmitTransaction call; calls
	// beyond the slice succeed.
	SubmitErrs []error
	// ConfirmBlocks makes ConfirmTransaction wait for context expiry.
	ConfirmBlocks bool
	ConfirmErr    error
	BlockhashErr  error
	Balance       float64

	submitCalls    int
	blockhashCalls int
	blockhashSeq   int
}

func (m *MockChain) SubmitTransaction(ctx context.Context, raw []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	call := m.submitCalls
	m.submitCalls++
	if call < len(m.SubmitErrs) && m.SubmitErrs[call] != nil {
		return "", m.SubmitErrs[call]
	}

	return fmt.Sprintf("signature-%d", m.submitCalls), nil
}

func (m *MockChain) ConfirmTransaction(ctx context.Context, signature string) error {
	m.mu.Lock()
	blocks := m.ConfirmBlocks
	err := m.ConfirmErr
	m.mu.Unlock()

	if blocks {
		<-ctx.Done()
		return ctx.Err()
	}

	return err
}

func (m *MockChain) LatestBlockhash(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.blockhashCalls++
	if m.BlockhashErr != nil {
		return "", m.BlockhashErr
	}
	m.blockhashSeq++

	return fmt.Sprintf("blockhash-%d", m.blockhashSeq), nil
}

func (m *MockChain) GetBalance(ctx context.Context, pubkey string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.Balance, nil
}

// SubmitCalls returns how many submissions were attempted.
func (m *MockChain) SubmitCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.submitCalls
}

// BlockhashCalls returns how many blockhashes were handed out.
func (m *MockChain) BlockhashCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.blockhashCalls
}

// MockSigner signs with a fixed marker instead of a real key.
type MockSigner struct {
	PubkeyValue string
}

func (s *MockSigner) Sign(message []byte) []byte {
	return append([]byte("signed:"), message[:min(8, len(message))]...)
}

func (s *MockSigner) Pubkey() string {
	if s.PubkeyValue == "" {
		return "mock-pubkey"
	}
	return s.PubkeyValue
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

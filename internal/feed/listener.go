package feed

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mkudasov/soltrader/pkg/types"
)

// Listener consumes new-pool events from a WebSocket feed and delivers
// them on a buffered channel. The connection self-heals: read failures
// trigger reconnects with exponential backoff and jitter.
type Listener struct {
	url       string
	logger    *zap.Logger
	reconnect *reconnector
	config    Config

	mu           sync.RWMutex
	conn         *websocket.Conn
	events       chan *types.PoolEvent
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	connected    atomic.Bool
	lastPongTime atomic.Int64
}

// Config holds feed listener configuration.
type Config struct {
	URL                   string
	DialTimeout           time.Duration
	PingInterval          time.Duration
	PongTimeout           time.Duration
	ReconnectInitialDelay time.Duration
	ReconnectMaxDelay     time.Duration
	ReconnectBackoffMult  float64
	EventBufferSize       int
	Logger                *zap.Logger
}

// New creates a feed listener.
func New(cfg Config) (*Listener, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("feed URL cannot be empty")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 15 * time.Second
	}
	if cfg.PongTimeout <= 0 {
		cfg.PongTimeout = 45 * time.Second
	}
	if cfg.ReconnectInitialDelay <= 0 {
		cfg.ReconnectInitialDelay = time.Second
	}
	if cfg.ReconnectMaxDelay <= 0 {
		cfg.ReconnectMaxDelay = time.Minute
	}
	if cfg.ReconnectBackoffMult <= 1 {
		cfg.ReconnectBackoffMult = 2.0
	}
	if cfg.EventBufferSize <= 0 {
		cfg.EventBufferSize = 256
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Listener{
		url:    cfg.URL,
		logger: cfg.Logger,
		reconnect: newReconnector(reconnectConfig{
			initialDelay:  cfg.ReconnectInitialDelay,
			maxDelay:      cfg.ReconnectMaxDelay,
			multiplier:    cfg.ReconnectBackoffMult,
			jitterPercent: 0.2,
		}, cfg.Logger),
		config: cfg,
		events: make(chan *types.PoolEvent, cfg.EventBufferSize),
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Events returns the channel of incoming pool events.
func (l *Listener) Events() <-chan *types.PoolEvent {
	return l.events
}

// IsConnected reports whether the feed connection is up.
func (l *Listener) IsConnected() bool {
	return l.connected.Load()
}

// Start dials the feed and launches the read and keepalive loops.
func (l *Listener) Start() error {
	l.logger.Info("feed-listener-starting", zap.String("url", l.url))

	if err := l.connect(l.ctx); err != nil {
		return fmt.Errorf("initial connection: %w", err)
	}

	l.wg.Add(2)
	go l.readLoop()
	go l.pingLoop()

	return nil
}

// Close tears down the connection and waits for the loops to exit. The
// events channel is closed once both loops are done.
func (l *Listener) Close() {
	l.cancel()

	l.mu.Lock()
	if l.conn != nil {
		l.conn.Close()
	}
	l.mu.Unlock()

	l.wg.Wait()
	close(l.events)

	l.logger.Info("feed-listener-stopped")
}

func (l *Listener) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: l.config.DialTimeout}

	conn, _, err := dialer.DialContext(ctx, l.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", l.url, err)
	}

	conn.SetReadDeadline(time.Now().Add(l.config.PongTimeout))
	conn.SetPongHandler(func(string) error {
		l.lastPongTime.Store(time.Now().Unix())
		conn.SetReadDeadline(time.Now().Add(l.config.PongTimeout))
		return nil
	})

	l.mu.Lock()
	l.conn = conn
	l.mu.Unlock()

	l.connected.Store(true)
	ConnectedGauge.Set(1)

	l.logger.Info("feed-connected", zap.String("url", l.url))

	return nil
}

func (l *Listener) readLoop() {
	defer l.wg.Done()

	for {
		select {
		case <-l.ctx.Done():
			return
		default:
		}

		l.mu.RLock()
		conn := l.conn
		l.mu.RUnlock()

		if conn == nil {
			if !l.recover() {
				return
			}
			continue
		}

		_, payload, err := conn.ReadMessage()
		if err != nil {
			if l.ctx.Err() != nil {
				return
			}

			l.logger.Warn("feed-read-error", zap.Error(err))
			l.markDisconnected()

			if !l.recover() {
				return
			}
			continue
		}

		l.handleMessage(payload)
	}
}

func (l *Listener) handleMessage(payload []byte) {
	var event types.PoolEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		EventsTotal.WithLabelValues("malformed").Inc()
		l.logger.Warn("feed-malformed-event", zap.Error(err))
		return
	}

	if event.PoolAddress == "" || event.TokenAMint == "" {
		EventsTotal.WithLabelValues("incomplete").Inc()
		return
	}

	if event.FirstDetectedAt.IsZero() {
		event.FirstDetectedAt = time.Now()
	}

	select {
	case l.events <- &event:
		EventsTotal.WithLabelValues("delivered").Inc()
	default:
		// Consumer is behind; dropping is better than blocking the read
		// loop and losing the connection.
		EventsTotal.WithLabelValues("dropped").Inc()
		l.logger.Warn("feed-event-dropped", zap.String("pool", event.PoolAddress))
	}
}

func (l *Listener) pingLoop() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.ctx.Done():
			return
		case <-ticker.C:
			l.mu.RLock()
			conn := l.conn
			l.mu.RUnlock()

			if conn == nil || !l.connected.Load() {
				continue
			}

			deadline := time.Now().Add(l.config.DialTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				l.logger.Warn("feed-ping-failed", zap.Error(err))
			}
		}
	}
}

func (l *Listener) markDisconnected() {
	l.connected.Store(false)
	ConnectedGauge.Set(0)

	l.mu.Lock()
	if l.conn != nil {
		l.conn.Close()
		l.conn = nil
	}
	l.mu.Unlock()
}

// recover re-dials with backoff; returns false once the listener is
// shutting down.
func (l *Listener) recover() bool {
	if err := l.reconnect.reconnect(l.ctx, l.connect); err != nil {
		return false
	}

	return true
}

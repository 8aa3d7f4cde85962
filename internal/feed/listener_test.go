package feed

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{}

// feedServer upgrades connections and writes each payload once.
func feedServer(t *testing.T, payloads [][]byte) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for _, payload := range payloads {
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}

		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func newTestListener(t *testing.T, url string) *Listener {
	t.Helper()

	logger, _ := zap.NewDevelopment()
	l, err := New(Config{
		URL:                   url,
		DialTimeout:           time.Second,
		PingInterval:          100 * time.Millisecond,
		PongTimeout:           5 * time.Second,
		ReconnectInitialDelay: 10 * time.Millisecond,
		ReconnectMaxDelay:     50 * time.Millisecond,
		ReconnectBackoffMult:  2.0,
		EventBufferSize:       16,
		Logger:                logger,
	})
	require.NoError(t, err)

	return l
}

func TestNew_Validation(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	_, err := New(Config{Logger: logger})
	assert.Error(t, err)

	_, err = New(Config{URL: "ws://localhost"})
	assert.Error(t, err)
}

func TestListener_DeliversPoolEvents(t *testing.T) {
	payload := []byte(`{
		"dex": "raydium",
		"poolAddress": "pool-1",
		"tokenAMint": "mint-token",
		"tokenBMint": "mint-base"
	}`)

	server := feedServer(t, [][]byte{payload})
	defer server.Close()

	l := newTestListener(t, wsURL(server))
	require.NoError(t, l.Start())
	defer l.Close()

	select {
	case event := <-l.Events():
		assert.Equal(t, "raydium", event.Dex)
		assert.Equal(t, "pool-1", event.PoolAddress)
		assert.Equal(t, "mint-token", event.TokenAMint)
		assert.False(t, event.FirstDetectedAt.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for pool event")
	}

	assert.True(t, l.IsConnected())
}

func TestListener_SkipsMalformedAndIncomplete(t *testing.T) {
	payloads := [][]byte{
		[]byte(`not json`),
		[]byte(`{"dex": "raydium"}`), // missing pool address and mint
		[]byte(`{"dex": "orca", "poolAddress": "pool-2", "tokenAMint": "mint-token", "tokenBMint": "mint-base"}`),
	}

	server := feedServer(t, payloads)
	defer server.Close()

	l := newTestListener(t, wsURL(server))
	require.NoError(t, l.Start())
	defer l.Close()

	select {
	case event := <-l.Events():
		// Only the complete event makes it through.
		assert.Equal(t, "pool-2", event.PoolAddress)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for pool event")
	}
}

func TestListener_InitialDialFailure(t *testing.T) {
	l := newTestListener(t, "ws://127.0.0.1:1")

	err := l.Start()
	assert.Error(t, err)
}

func TestListener_CloseClosesEventChannel(t *testing.T) {
	server := feedServer(t, nil)
	defer server.Close()

	l := newTestListener(t, wsURL(server))
	require.NoError(t, l.Start())

	l.Close()

	_, open := <-l.Events()
	assert.False(t, open)
}

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal-engine/internal/candle"
	"signal-engine/internal/config"
	"signal-engine/internal/events"
	"signal-engine/internal/lifecycle"
	"signal-engine/internal/scan"
)

func testStore(t *testing.T) *config.Store {
	t.Helper()
	registry, err := config.NewRegistry(map[config.Key]config.SignalConfig{})
	require.NoError(t, err)
	return config.NewStore(registry)
}

func newTestServer(t *testing.T, reload Reloader) (*Server, *events.Sink) {
	t.Helper()
	status := scan.NewMetricsRegistry()
	sink := events.New(zerolog.Nop(), events.NewMemoryWriter(), 16)
	srv := New(Config{Host: "127.0.0.1", Port: 0}, status, testStore(t), reload, sink, zerolog.Nop())
	return srv, sink
}

func TestHandleStatus_ReturnsJSONSnapshot(t *testing.T) {
	srv, _ := newTestServer(t, func() (*config.Registry, error) { return nil, nil })

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var snap scan.StatusSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
}

func TestHandleConfigReload_InstallsNewRegistry(t *testing.T) {
	reloaded, err := config.NewRegistry(map[config.Key]config.SignalConfig{})
	require.NoError(t, err)

	srv, _ := newTestServer(t, func() (*config.Registry, error) { return reloaded, nil })

	req := httptest.NewRequest(http.MethodPost, "/config/reload", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Same(t, reloaded, srv.configs.Load())
}

func TestHandleConfigReload_ReportsReloaderError(t *testing.T) {
	srv, _ := newTestServer(t, func() (*config.Registry, error) { return nil, errors.New("vault unreachable") })

	req := httptest.NewRequest(http.MethodPost, "/config/reload", bytes.NewReader(nil))
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestWebSocket_StreamsSinkEventsToClient(t *testing.T) {
	srv, sink := newTestServer(t, func() (*config.Registry, error) { return nil, nil })
	ts := httptest.NewServer(srv.router)
	defer ts.Close()

	wsURL := "ws" + ts.URL[len("http"):] + "/ws/signals"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	time.Sleep(50 * time.Millisecond) // allow registration to land before emitting

	sig := lifecycle.ActiveSignal{Symbol: "BTCUSDT", Market: candle.MarketSpot, Timeframe: candle.TF1h}
	sink.Emit(context.Background(), lifecycle.Event{Kind: lifecycle.Created, Signal: sig, Ts: time.Now()})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var got lifecycle.Event
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "BTCUSDT", got.Signal.Symbol)
}

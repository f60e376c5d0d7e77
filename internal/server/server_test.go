package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	cfg := DefaultConfig()
	// the cheapest tier: no lights, no texture generation
	cfg.QualityTier = "ultra_low"
	cfg.SnapshotEvery = 1
	return cfg
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := New(testConfig(), nil)
	require.NoError(t, err)
	require.NoError(t, s.manager.InitializeAll(context.Background()))
	t.Cleanup(func() { _ = s.manager.DisposeAll() })
	return s
}

func TestLoadConfigLayersOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 9191\ntick_rate: 60\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.Port)
	assert.Equal(t, 60, cfg.TickRate)
	// untouched fields keep their defaults
	assert.Equal(t, DefaultConfig().SnapshotEvery, cfg.SnapshotEvery)
	assert.Equal(t, "127.0.0.1:9191", cfg.Addr())
}

func TestConfigValidation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TickRate = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.SnapshotEvery = -1
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Port = 70000
	assert.Error(t, cfg.Validate())

	assert.NoError(t, DefaultConfig().Validate())
}

func TestNewRejectsUnknownTier(t *testing.T) {
	cfg := DefaultConfig()
	cfg.QualityTier = "cinematic"
	_, err := New(cfg, nil)
	require.Error(t, err)
}

func TestSnapshotEncoderRoundTrip(t *testing.T) {
	enc := newSnapshotEncoder()
	snap := Snapshot{Type: "snapshot", Frame: 7, WaterLevel: 1.5,
		Fireflies: []FireflyState{{X: 1, Y: 2, Z: 3, Lit: true, Fade: 0.5}}}

	data, release, err := enc.encode(snap)
	require.NoError(t, err)
	var got Snapshot
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, snap, got)
	release()

	// a pooled buffer is reset, not appended to
	data, release, err = enc.encode(Snapshot{Type: "snapshot", Frame: 8})
	require.NoError(t, err)
	defer release()
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, uint64(8), got.Frame)
}

func TestWebSocketSnapshotDelivery(t *testing.T) {
	s := newTestServer(t)

	ts := httptest.NewServer(http.HandlerFunc(s.handleWebSocket))
	defer ts.Close()
	u := "ws" + strings.TrimPrefix(ts.URL, "http")

	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return s.ClientCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	s.step()

	var snap Snapshot
	require.NoError(t, conn.ReadJSON(&snap))
	assert.Equal(t, "snapshot", snap.Type)
	assert.Len(t, snap.Fireflies, 80)
	// ultra_low carries no light budget
	assert.Zero(t, snap.ActiveLights)
}

func TestControlMessagesApplyOnNextStep(t *testing.T) {
	s := newTestServer(t)

	s.commands <- controlMessage{Type: ctrlWaterLevel, Value: 2.5}
	s.step()
	assert.InDelta(t, 2.5, s.ocean.WaterLevel(), 1e-9)

	// unknown types are dropped without effect
	s.commands <- controlMessage{Type: "warp_speed", Value: 9}
	s.step()
	assert.InDelta(t, 2.5, s.ocean.WaterLevel(), 1e-9)
}

func TestViewerLimit(t *testing.T) {
	cfg := testConfig()
	cfg.MaxClients = 0
	s, err := New(cfg, nil)
	require.NoError(t, err)

	ts := httptest.NewServer(http.HandlerFunc(s.handleWebSocket))
	defer ts.Close()
	u := "ws" + strings.TrimPrefix(ts.URL, "http")

	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	ts := httptest.NewServer(http.HandlerFunc(s.handleHealth))
	defer ts.Close()

	resp, err := http.Get(ts.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "ultra_low", body["tier"])
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	for _, k := range []string{"API_BASE_URL", "LIVE_TRANSPORT", "LIVE_WS_URL", "LIVE_RECONNECT_DELAY", "SESSION_BACKEND", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000", cfg.API.BaseURL)
	assert.Equal(t, TransportWebSocket, cfg.Live.Transport)
	assert.Equal(t, "ws://localhost:8000/ws/alerts", cfg.Live.WebSocketURL)
	assert.Equal(t, 3*time.Second, cfg.Live.ReconnectDelay)
	assert.Equal(t, SessionBackendBadger, cfg.Session.Backend)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, byte(1), cfg.Live.MQTT.QoS)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://api.hospital.test/")
	t.Setenv("LIVE_TRANSPORT", "MQTT")
	t.Setenv("LIVE_RECONNECT_DELAY", "1500")
	t.Setenv("SESSION_BACKEND", "redis")
	t.Setenv("REDIS_DB", "4")
	t.Setenv("MQTT_TOPIC", "ward/alerts")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.hospital.test", cfg.API.BaseURL)
	assert.Equal(t, TransportMQTT, cfg.Live.Transport)
	assert.Equal(t, 1500*time.Millisecond, cfg.Live.ReconnectDelay)
	assert.Equal(t, SessionBackendRedis, cfg.Session.Backend)
	assert.Equal(t, 4, cfg.Session.Redis.DB)
	assert.Equal(t, "ward/alerts", cfg.Live.MQTT.Topic)
}

func TestLoad_RejectsUnknownTransport(t *testing.T) {
	t.Setenv("LIVE_TRANSPORT", "carrier-pigeon")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LIVE_TRANSPORT")
}

func TestParseDuration(t *testing.T) {
	assert.Equal(t, 2*time.Second, parseDuration("2s", time.Second))
	assert.Equal(t, 250*time.Millisecond, parseDuration("250", time.Second))
	assert.Equal(t, time.Second, parseDuration("soon", time.Second))
	assert.Equal(t, time.Second, parseDuration("", time.Second))
}

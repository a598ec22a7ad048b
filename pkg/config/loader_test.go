package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadConfig_ExpandsEnvPlaceholders(t *testing.T) {
	dir := t.TempDir()
	yaml := `
port: "8083"
jwt_secret: ${TEST_CHAT_JWT_SECRET}
mongo:
  host: mongo
  port: 27017
  database: chat
websocket:
  send_queue_size: 8
  ping_interval: 5s
messaging:
  block_policy: symmetric
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "chat_test.yaml"), []byte(yaml), 0o644))
	t.Setenv("TEST_CHAT_JWT_SECRET", "from-env")

	cfg, err := ReadConfig[Chat]("chat_test", dir)
	require.NoError(t, err)

	assert.Equal(t, "8083", cfg.Port)
	assert.Equal(t, "from-env", cfg.JWTSecret)
	assert.Equal(t, 27017, cfg.MongoSQL.Port)
	assert.Equal(t, 8, cfg.Websocket.SendQueueSize)
	assert.Equal(t, 5*time.Second, cfg.Websocket.PingInterval)
	assert.Equal(t, "symmetric", cfg.Messaging.BlockPolicy)
}

func TestReadConfig_MissingFile(t *testing.T) {
	_, err := ReadConfig[Chat]("does_not_exist", t.TempDir())
	assert.Error(t, err)
}

func TestChat_WithDefaults(t *testing.T) {
	cfg := Chat{}.WithDefaults()

	assert.Equal(t, 256, cfg.Websocket.SendQueueSize)
	assert.Equal(t, 25*time.Second, cfg.Websocket.PingInterval)
	assert.Greater(t, cfg.Websocket.PongWait, cfg.Websocket.PingInterval)
	assert.Equal(t, "asymmetric", cfg.Messaging.BlockPolicy)
	assert.Equal(t, 4000, cfg.Messaging.MaxContentSize)
	assert.Equal(t, 50, cfg.Messaging.SearchLimit)
	assert.Equal(t, time.Hour, cfg.Redis.SessionTTL)
	assert.Equal(t, int64(4000*6+4096), cfg.Websocket.MaxFrameBytes)

	small := Chat{Messaging: MessagingConfig{MaxContentSize: 10}}.WithDefaults()
	assert.Equal(t, int64(10*6+4096), small.Websocket.MaxFrameBytes)

	fixed := Chat{Websocket: WebsocketConfig{MaxFrameBytes: 2048}}.WithDefaults()
	assert.Equal(t, int64(2048), fixed.Websocket.MaxFrameBytes)
}

func TestGetRedisSetting(t *testing.T) {
	t.Setenv("REDIS_SENTINEL1_IP", "10.0.0.1")
	t.Setenv("REDIS_SENTINEL1_PORT", "26379")
	t.Setenv("REDIS_MASTER_NAME", "")

	master, addrs := GetRedisSetting()
	assert.Equal(t, "mymaster", master)
	assert.Contains(t, addrs, "10.0.0.1:26379")
}

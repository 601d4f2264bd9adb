package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// 实时通道传输方式
const (
	TransportWebSocket = "websocket"
	TransportMQTT      = "mqtt"
)

// 会话持久化后端
const (
	SessionBackendBadger = "badger"
	SessionBackendRedis  = "redis"
)

// DefaultReconnectDelay 实时通道断开后的固定重连间隔
const DefaultReconnectDelay = 3 * time.Second

// Config securehealth-console 配置
type Config struct {
	API     APIConfig
	Live    LiveConfig
	Session SessionConfig
	Log     struct {
		Level  string
		Format string
	}
}

// APIConfig 远端 SecureHealth API
type APIConfig struct {
	BaseURL string
}

// LiveConfig 实时告警/活动通道
type LiveConfig struct {
	Transport      string // "websocket" 或 "mqtt"
	WebSocketURL   string
	ReconnectDelay time.Duration
	MQTT           MQTTConfig
}

// MQTTConfig MQTT 传输配置（LIVE_TRANSPORT=mqtt 时使用）
type MQTTConfig struct {
	Broker   string
	ClientID string // 为空时启动时生成
	Username string
	Password string
	Topic    string
	QoS      byte
}

// SessionConfig 会话持久化配置
type SessionConfig struct {
	Backend   string // "badger" 或 "redis"
	Path      string // badger 数据目录
	KeyPrefix string
	Redis     RedisConfig
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Load 从环境变量（以及可选的 .env 文件）加载配置
func Load() (*Config, error) {
	// .env 可选，不存在时直接使用环境变量
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	cfg.API.BaseURL = strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:8000"), "/")

	cfg.Live.Transport = strings.ToLower(getEnv("LIVE_TRANSPORT", TransportWebSocket))
	cfg.Live.WebSocketURL = getEnv("LIVE_WS_URL", "ws://localhost:8000/ws/alerts")
	cfg.Live.ReconnectDelay = parseDuration(getEnv("LIVE_RECONNECT_DELAY", ""), DefaultReconnectDelay)
	cfg.Live.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.Live.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "")
	cfg.Live.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.Live.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.Live.MQTT.Topic = getEnv("MQTT_TOPIC", "securehealth/alerts")
	cfg.Live.MQTT.QoS = byte(parseInt(getEnv("MQTT_QOS", "1"), 1))

	cfg.Session.Backend = strings.ToLower(getEnv("SESSION_BACKEND", SessionBackendBadger))
	cfg.Session.Path = getEnv("SESSION_PATH", defaultSessionPath())
	cfg.Session.KeyPrefix = getEnv("SESSION_KEY_PREFIX", "")
	cfg.Session.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Session.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Session.Redis.DB = parseInt(getEnv("REDIS_DB", "0"), 0)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "console")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 检查枚举类配置项
func (c *Config) Validate() error {
	switch c.Live.Transport {
	case TransportWebSocket, TransportMQTT:
	default:
		return fmt.Errorf("invalid LIVE_TRANSPORT %q (want %q or %q)", c.Live.Transport, TransportWebSocket, TransportMQTT)
	}
	switch c.Session.Backend {
	case SessionBackendBadger, SessionBackendRedis:
	default:
		return fmt.Errorf("invalid SESSION_BACKEND %q (want %q or %q)", c.Session.Backend, SessionBackendBadger, SessionBackendRedis)
	}
	if c.Live.ReconnectDelay <= 0 {
		return fmt.Errorf("LIVE_RECONNECT_DELAY must be positive, got %s", c.Live.ReconnectDelay)
	}
	if c.API.BaseURL == "" {
		return errors.New("API_BASE_URL is required")
	}
	return nil
}

func defaultSessionPath() string {
	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		return dir + string(os.PathSeparator) + "securehealth-console"
	}
	return ".securehealth-console"
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

// parseDuration 同时接受 "3s" 形式与纯毫秒数 "3000"
func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(s); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return def
}

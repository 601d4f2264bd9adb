package live

import (
	"context"
	"errors"
	"fmt"

	"securehealth-console/internal/config"

	"go.uber.org/zap"
)

// ErrConnClosed 连接已被本端关闭
var ErrConnClosed = errors.New("live connection closed")

// Conn 一条已建立的实时连接。
// ReadFrame 阻塞直到收到一帧或连接失败；Close 必须让阻塞中的 ReadFrame 返回。
type Conn interface {
	ReadFrame() ([]byte, error)
	Close() error
}

// Transport 建立实时连接；每次重连调用一次 Dial
type Transport interface {
	Dial(ctx context.Context) (Conn, error)
}

// NewTransport 按配置创建传输层。token 在每次拨号时读取。
func NewTransport(cfg config.LiveConfig, token func() string, logger *zap.Logger) (Transport, error) {
	switch cfg.Transport {
	case config.TransportWebSocket, "":
		return NewWebSocketTransport(cfg.WebSocketURL, token), nil
	case config.TransportMQTT:
		return NewMQTTTransport(cfg.MQTT, logger), nil
	default:
		return nil, fmt.Errorf("unsupported live transport %q", cfg.Transport)
	}
}

package live

import (
	"context"
	"fmt"
	"sync"

	"securehealth-console/internal/config"
	"securehealth-console/internal/logger"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MQTTTransport 通过 MQTT 订阅单个主题。
// paho 自带的自动重连被关闭，重连统一由 Channel 负责。
type MQTTTransport struct {
	cfg    config.MQTTConfig
	logger *zap.Logger
}

// NewMQTTTransport ClientID 为空时生成一个
func NewMQTTTransport(cfg config.MQTTConfig, log *zap.Logger) *MQTTTransport {
	if cfg.ClientID == "" {
		cfg.ClientID = "securehealth-console-" + uuid.NewString()[:8]
	}
	return &MQTTTransport{cfg: cfg, logger: logger.OrNop(log).Named("mqtt")}
}

const mqttFrameBuffer = 64

func (t *MQTTTransport) Dial(ctx context.Context) (Conn, error) {
	conn := newMQTTConn()

	opts := mqtt.NewClientOptions()
	opts.AddBroker(t.cfg.Broker)
	opts.SetClientID(t.cfg.ClientID)
	if t.cfg.Username != "" {
		opts.SetUsername(t.cfg.Username)
	}
	if t.cfg.Password != "" {
		opts.SetPassword(t.cfg.Password)
	}
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)
	opts.SetCleanSession(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		t.logger.Debug("MQTT connection lost", zap.Error(err))
		conn.fail(err)
	})

	client := mqtt.NewClient(opts)
	conn.client = client
	if err := waitToken(ctx, client.Connect()); err != nil {
		client.Disconnect(0)
		return nil, fmt.Errorf("connect mqtt broker %s: %w", t.cfg.Broker, err)
	}

	sub := client.Subscribe(t.cfg.Topic, t.cfg.QoS, func(_ mqtt.Client, msg mqtt.Message) {
		conn.push(msg.Payload())
	})
	if err := waitToken(ctx, sub); err != nil {
		client.Disconnect(0)
		return nil, fmt.Errorf("subscribe %s: %w", t.cfg.Topic, err)
	}
	return conn, nil
}

func waitToken(ctx context.Context, tok mqtt.Token) error {
	select {
	case <-tok.Done():
		return tok.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// mqttConn 把 paho 回调转成阻塞读
type mqttConn struct {
	client mqtt.Client
	frames chan []byte
	done   chan struct{}
	once   sync.Once
	err    error
}

func newMQTTConn() *mqttConn {
	return &mqttConn{
		frames: make(chan []byte, mqttFrameBuffer),
		done:   make(chan struct{}),
	}
}

func (c *mqttConn) push(payload []byte) {
	select {
	case c.frames <- payload:
	case <-c.done:
	}
}

func (c *mqttConn) fail(err error) {
	c.once.Do(func() {
		c.err = err
		close(c.done)
	})
}

func (c *mqttConn) ReadFrame() ([]byte, error) {
	select {
	case f := <-c.frames:
		return f, nil
	case <-c.done:
		return nil, c.err
	}
}

func (c *mqttConn) Close() error {
	c.fail(ErrConnClosed)
	if c.client != nil {
		c.client.Disconnect(250)
	}
	return nil
}

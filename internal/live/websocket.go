package live

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
)

// WebSocketTransport 通过 WebSocket 订阅告警/活动推送
type WebSocketTransport struct {
	url    string
	token  func() string
	dialer *websocket.Dialer
}

// NewWebSocketTransport token 可以为 nil；非空 token 以 bearer 头发送
func NewWebSocketTransport(url string, token func() string) *WebSocketTransport {
	return &WebSocketTransport{
		url:    url,
		token:  token,
		dialer: websocket.DefaultDialer,
	}
}

func (t *WebSocketTransport) Dial(ctx context.Context) (Conn, error) {
	header := http.Header{}
	if t.token != nil {
		if tok := t.token(); tok != "" {
			header.Set("Authorization", "Bearer "+tok)
		}
	}

	ws, resp, err := t.dialer.DialContext(ctx, t.url, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", t.url, err)
	}
	return &wsConn{ws: ws}, nil
}

type wsConn struct {
	ws *websocket.Conn
}

func (c *wsConn) ReadFrame() ([]byte, error) {
	for {
		mt, data, err := c.ws.ReadMessage()
		if err != nil {
			return nil, err
		}
		if mt == websocket.TextMessage || mt == websocket.BinaryMessage {
			return data, nil
		}
	}
}

func (c *wsConn) Close() error {
	return c.ws.Close()
}

// Package live keeps a push subscription to the SecureHealth alert stream
// open for as long as a view is mounted, reconnecting after a fixed delay.
package live

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"securehealth-console/internal/config"
	"securehealth-console/internal/events"
	"securehealth-console/internal/logger"

	"go.uber.org/zap"
)

// State 通道连接状态
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Handler 接收解码后的事件，按传输顺序串行调用
type Handler func(events.Event)

// Option Channel 可选配置
type Option func(*Channel)

// WithScheduler 替换重连定时器
func WithScheduler(s Scheduler) Option {
	return func(c *Channel) { c.sched = s }
}

// WithReconnectDelay 断开后的固定重连间隔（默认 3s）
func WithReconnectDelay(d time.Duration) Option {
	return func(c *Channel) {
		if d > 0 {
			c.delay = d
		}
	}
}

// WithLogger 设置日志
func WithLogger(l *zap.Logger) Option {
	return func(c *Channel) { c.logger = logger.OrNop(l).Named("live") }
}

// WithStateListener 每次状态变化时调用。
// 监听器在内部锁内执行，只能读取 IsConnected/State，不能调用 Close。
func WithStateListener(f func(State)) Option {
	return func(c *Channel) { c.onState = f }
}

// Channel 自动重连的实时订阅
type Channel struct {
	transport Transport
	sched     Scheduler
	delay     time.Duration
	logger    *zap.Logger
	onState   func(State)

	handler atomic.Pointer[Handler]
	state   atomic.Int32

	mu      sync.Mutex
	gen     uint64
	conn    Conn
	cancel  context.CancelFunc
	timer   Timer
	stopped bool

	// deliverMu 串行化事件投递，Close 借它等待正在执行的 handler 返回
	deliverMu sync.Mutex
}

// Open 创建通道并立即开始连接。连接失败不会返回错误，只体现在 State 上。
func Open(transport Transport, handler Handler, opts ...Option) *Channel {
	c := &Channel{
		transport: transport,
		sched:     RealScheduler,
		delay:     config.DefaultReconnectDelay,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.state.Store(int32(StateClosed))
	c.SetHandler(handler)
	c.connect()
	return c
}

// SetHandler 替换事件处理函数，不触发重连；下一帧起生效
func (c *Channel) SetHandler(h Handler) {
	c.handler.Store(&h)
}

// IsConnected 仅在 Open 状态为 true
func (c *Channel) IsConnected() bool {
	return c.State() == StateOpen
}

// State 当前状态
func (c *Channel) State() State {
	return State(c.state.Load())
}

// setState 必须持有 c.mu
func (c *Channel) setState(s State) {
	if State(c.state.Swap(int32(s))) == s {
		return
	}
	c.logger.Debug("Live channel state changed", zap.Stringer("state", s))
	if c.onState != nil {
		c.onState(s)
	}
}

func (c *Channel) connect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.gen++
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.timer = nil
	c.setState(StateConnecting)
	go c.run(ctx, c.gen)
}

func (c *Channel) run(ctx context.Context, gen uint64) {
	conn, err := c.transport.Dial(ctx)
	if err != nil {
		c.closed(gen, err)
		return
	}

	c.mu.Lock()
	if c.stopped || gen != c.gen {
		c.mu.Unlock()
		_ = conn.Close()
		return
	}
	c.conn = conn
	c.setState(StateOpen)
	c.mu.Unlock()
	c.logger.Info("Live channel connected")

	for {
		frame, err := conn.ReadFrame()
		if err != nil {
			// 出错一律关闭连接，不保留半开状态
			_ = conn.Close()
			c.closed(gen, err)
			return
		}
		c.deliver(frame)
	}
}

// closed 进入 Closed 并调度重连；连接已被替换或通道已停止时忽略
func (c *Channel) closed(gen uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped || gen != c.gen {
		return
	}
	c.conn = nil
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if !errors.Is(err, ErrConnClosed) {
		c.logger.Warn("Live channel disconnected, will reconnect",
			zap.Error(err),
			zap.Duration("delay", c.delay),
		)
	}
	c.setState(StateClosed)
	c.timer = c.sched.AfterFunc(c.delay, func() {
		c.mu.Lock()
		current := !c.stopped && gen == c.gen
		c.mu.Unlock()
		if current {
			c.connect()
		}
	})
}

func (c *Channel) deliver(frame []byte) {
	ev, err := events.Decode(frame)
	if err != nil {
		c.logger.Debug("Dropping malformed live frame", zap.Error(err))
		return
	}

	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()
	c.mu.Lock()
	stopped := c.stopped
	c.mu.Unlock()
	if stopped {
		return
	}
	if h := c.handler.Load(); h != nil && *h != nil {
		(*h)(ev)
	}
}

// Close 取消待执行的重连、关闭当前连接，并等待正在执行的 handler 返回。
// Close 返回后不再有 handler 调用与状态变化。handler 内不能同步调用 Close。
func (c *Channel) Close() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.setState(StateStopped)
	c.mu.Unlock()

	// 等待正在执行的 handler
	c.deliverMu.Lock()
	c.deliverMu.Unlock() //nolint:staticcheck
	c.logger.Info("Live channel closed")
}

// Package app wires the session store, API client, live transport and views
// into one console and routes between views through the guard.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"securehealth-console/internal/api"
	"securehealth-console/internal/config"
	"securehealth-console/internal/domain"
	"securehealth-console/internal/guard"
	"securehealth-console/internal/live"
	"securehealth-console/internal/logger"
	"securehealth-console/internal/session"
	"securehealth-console/internal/store"
	"securehealth-console/internal/view"

	"go.uber.org/zap"
)

// maxRedirectHops 守卫重定向最多跟随的次数
const maxRedirectHops = 3

// ErrRedirectLoop 重定向超过上限
var ErrRedirectLoop = errors.New("too many redirects")

// Option Console 可选配置
type Option func(*Console)

// WithKV 使用给定的会话存储（默认按配置打开）
func WithKV(kv store.KV) Option {
	return func(c *Console) { c.kv = kv }
}

// WithTransport 使用给定的实时传输（默认按配置创建）
func WithTransport(t live.Transport) Option {
	return func(c *Console) { c.transport = t }
}

// WithChannelOptions 追加实时通道选项
func WithChannelOptions(opts ...live.Option) Option {
	return func(c *Console) { c.chanOpts = append(c.chanOpts, opts...) }
}

// Console 控制台：唯一的会话、API 客户端与当前视图
type Console struct {
	cfg       *config.Config
	logger    *zap.Logger
	kv        store.KV
	transport live.Transport
	chanOpts  []live.Option

	Session *session.Store
	API     *api.Client

	mu         sync.Mutex
	route      string
	current    view.View
	redirected chan string
}

// New 打开会话存储并恢复上次的会话
func New(ctx context.Context, cfg *config.Config, log *zap.Logger, opts ...Option) (*Console, error) {
	log = logger.OrNop(log)
	c := &Console{
		cfg:        cfg,
		logger:     log.Named("console"),
		route:      guard.LoginRoute,
		redirected: make(chan string, 8),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.kv == nil {
		kv, err := store.Open(cfg.Session, log)
		if err != nil {
			return nil, fmt.Errorf("open session store: %w", err)
		}
		c.kv = kv
	}
	c.Session = session.NewStore(c.kv, cfg.Session.KeyPrefix, log)
	if err := c.Session.Hydrate(ctx); err != nil {
		_ = c.kv.Close()
		return nil, err
	}
	c.API = api.NewClient(cfg.API, c.Session, c, log)

	if c.transport == nil {
		tr, err := live.NewTransport(cfg.Live, c.Session.Token, log)
		if err != nil {
			_ = c.kv.Close()
			return nil, err
		}
		c.transport = tr
	}
	c.chanOpts = append([]live.Option{
		live.WithReconnectDelay(cfg.Live.ReconnectDelay),
		live.WithLogger(log),
	}, c.chanOpts...)
	return c, nil
}

// Close 卸载当前视图并关闭会话存储
func (c *Console) Close() error {
	c.unmountCurrent()
	return c.kv.Close()
}

// Redirect 由 API 客户端在强制登出时调用：卸载当前视图并切到 route
func (c *Console) Redirect(route string) {
	c.mu.Lock()
	prev := c.current
	c.current = nil
	c.route = route
	c.mu.Unlock()

	if prev != nil {
		prev.Unmount()
	}
	c.logger.Info("Redirected", zap.String("route", route))
	select {
	case c.redirected <- route:
	default:
	}
}

// Redirected 强制跳转通知
func (c *Console) Redirected() <-chan string {
	return c.redirected
}

// Route 当前路由
func (c *Console) Route() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.route
}

// Login 登录并返回落地路由
func (c *Console) Login(ctx context.Context, identifier, secret string) (*domain.Session, string, error) {
	sess, err := c.Session.Login(ctx, c.API, identifier, secret)
	if err != nil {
		return nil, "", err
	}
	return sess, guard.HomeFor(sess.Role), nil
}

// Logout 卸载当前视图并清除会话
func (c *Console) Logout(ctx context.Context) error {
	c.unmountCurrent()
	c.mu.Lock()
	c.route = guard.LoginRoute
	c.mu.Unlock()
	return c.Session.Logout(ctx)
}

// Navigate 先过守卫（最多跟随 3 次重定向），放行后才创建并挂载视图。
// 返回最终路由；登录页没有视图，返回 nil。
func (c *Console) Navigate(ctx context.Context, path string) (string, view.View, error) {
	target := path
	for hop := 0; ; hop++ {
		sess, _ := c.Session.Current()
		d := guard.Resolve(sess, target)
		if d.Allow {
			break
		}
		if hop == maxRedirectHops {
			return "", nil, fmt.Errorf("%w: %s", ErrRedirectLoop, path)
		}
		c.logger.Debug("Guard redirect", zap.String("from", target), zap.String("to", d.Redirect))
		target = d.Redirect
	}

	v := c.viewFor(target)

	c.mu.Lock()
	prev := c.current
	c.current = v
	c.route = target
	c.mu.Unlock()
	if prev != nil {
		prev.Unmount()
	}

	if v != nil {
		v.Mount(ctx)
	}
	return target, v, nil
}

func (c *Console) unmountCurrent() {
	c.mu.Lock()
	prev := c.current
	c.current = nil
	c.mu.Unlock()
	if prev != nil {
		prev.Unmount()
	}
}

func (c *Console) subscribe(h live.Handler) view.Stream {
	return live.Open(c.transport, h, c.chanOpts...)
}

func (c *Console) viewFor(route string) view.View {
	switch route {
	case guard.AdminRoute:
		return view.NewAdminDashboard(c.API, c.subscribe, c.logger)
	case guard.ThreatHunterRoute:
		return view.NewThreatHunter(c.API, c.subscribe, c.logger)
	case guard.AuditLogsRoute:
		return view.NewAuditLog(c.API, c.logger)
	case guard.DoctorRoute:
		return view.NewDoctorDashboard(c.API, c.logger)
	case guard.PrivacyQueryRoute:
		return view.NewPrivacyQuery(c.API, c.logger)
	case guard.NurseRoute:
		return view.NewNurseDashboard(c.API, c.logger)
	default:
		return nil
	}
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"securehealth-console/internal/config"
	"securehealth-console/internal/guard"
	"securehealth-console/internal/logger"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrSessionExpired 任意请求收到 401；会话已被强制登出
var ErrSessionExpired = errors.New("session expired")

// HTTPError 非 2xx 响应，原样携带状态码与响应体
type HTTPError struct {
	Method     string
	Path       string
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.Path, e.StatusCode)
}

// HTTPStatus 供 session.StatusError 识别
func (e *HTTPError) HTTPStatus() int { return e.StatusCode }

func (e *HTTPError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized {
		return ErrSessionExpired
	}
	return nil
}

// StatusOf 返回 err 链上的 HTTP 状态码，非 HTTP 错误返回 0
func StatusOf(err error) int {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.StatusCode
	}
	return 0
}

const bearerPrefix = "Bearer "

// Credentials 请求客户端读取 token、在 401 时强制登出（由 session.Store 实现）
type Credentials interface {
	Token() string
	Expire(ctx context.Context, token string) bool
}

// Navigator 强制登出后把整个应用切回登录页
type Navigator interface {
	Redirect(route string)
}

// Client 带认证的 SecureHealth API 客户端
type Client struct {
	http   *resty.Client
	creds  Credentials
	nav    Navigator
	logger *zap.Logger
}

// NewClient 创建 API 客户端。nav 可以为 nil（只清会话、不跳转）。
// 不设置客户端超时，取消只通过 context 传递。
func NewClient(cfg config.APIConfig, creds Credentials, nav Navigator, log *zap.Logger) *Client {
	log = logger.OrNop(log).Named("api")
	c := &Client{
		creds:  creds,
		nav:    nav,
		logger: log,
	}
	c.http = resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("Accept", "application/json").
		SetLogger(log.Sugar())
	c.http.OnBeforeRequest(c.attachCredentials)
	c.http.OnAfterResponse(c.checkResponse)
	return c
}

func (c *Client) attachCredentials(_ *resty.Client, r *resty.Request) error {
	r.SetHeader("X-Request-ID", uuid.NewString())
	if c.creds == nil {
		return nil
	}
	if tok := c.creds.Token(); tok != "" {
		r.SetHeader("Authorization", bearerPrefix+tok)
	}
	return nil
}

// checkResponse 全局响应策略：401 强制登出并跳转登录页，其余非 2xx 原样返回
func (c *Client) checkResponse(_ *resty.Client, resp *resty.Response) error {
	if resp.IsSuccess() {
		return nil
	}
	req := resp.Request
	herr := &HTTPError{
		Method:     req.Method,
		Path:       pathOf(req.URL),
		StatusCode: resp.StatusCode(),
		Body:       resp.Body(),
	}

	if herr.StatusCode == http.StatusUnauthorized {
		sent := strings.TrimPrefix(req.Header.Get("Authorization"), bearerPrefix)
		if c.creds != nil && c.creds.Expire(req.Context(), sent) {
			c.logger.Warn("Unauthorized response, session cleared",
				zap.String("method", herr.Method),
				zap.String("path", herr.Path),
			)
			if c.nav != nil {
				c.nav.Redirect(guard.LoginRoute)
			}
		}
		return herr
	}

	c.logger.Debug("API request failed",
		zap.String("method", herr.Method),
		zap.String("path", herr.Path),
		zap.Int("status_code", herr.StatusCode),
	)
	return herr
}

func pathOf(raw string) string {
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		return u.Path
	}
	return raw
}

// Do 发送请求并把 JSON 响应解码到 out（out 可为 nil）
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	req := c.http.R().SetContext(ctx)
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	resp, err := req.Execute(method, path)
	return c.decode(method, path, resp, err, out)
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	req := c.http.R().SetContext(ctx)
	if len(query) > 0 {
		req.SetQueryParamsFromValues(query)
	}
	resp, err := req.Get(path)
	return c.decode(http.MethodGet, path, resp, err, out)
}

func (c *Client) decode(method, path string, resp *resty.Response, err error, out any) error {
	if err != nil {
		var herr *HTTPError
		if errors.As(err, &herr) {
			return herr
		}
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if out == nil || len(resp.Body()) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

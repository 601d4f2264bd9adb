package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"securehealth-console/internal/domain"
	"securehealth-console/internal/logger"
	"securehealth-console/internal/store"

	"go.uber.org/zap"
)

// 持久化键名；身份与 token 总是成对写入、成对清除
const (
	UserKey  = "securehealth_user"
	TokenKey = "securehealth_token"
)

// ErrInvalidCredentials 登录失败的唯一对外错误，不区分密码错误与账号锁定
var ErrInvalidCredentials = errors.New("invalid credentials or account locked")

// Authenticator 提交登录凭据（由 api.Client 实现）
type Authenticator interface {
	Authenticate(ctx context.Context, identifier, secret string) (*domain.LoginResult, error)
}

// StatusError is implemented by errors that carry an HTTP response status.
type StatusError interface {
	error
	HTTPStatus() int
}

// Store 会话存储：进程内唯一的登录状态，持久化到 KV
type Store struct {
	mu      sync.Mutex
	kv      store.KV
	userKey string
	tokKey  string
	current *domain.Session
	logger  *zap.Logger
}

// NewStore 创建会话存储；prefix 用于多个控制台实例共享同一 Redis 时区分键
func NewStore(kv store.KV, prefix string, log *zap.Logger) *Store {
	return &Store{
		kv:      kv,
		userKey: prefix + UserKey,
		tokKey:  prefix + TokenKey,
		logger:  logger.OrNop(log).Named("session"),
	}
}

// Hydrate 启动时从持久化存储恢复会话。
// 身份 JSON 损坏、角色未知或只剩其中一个键时视为未登录，并清掉残留键。
func (s *Store) Hydrate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = nil

	rawUser, userErr := s.kv.Get(ctx, s.userKey)
	token, tokErr := s.kv.Get(ctx, s.tokKey)
	for _, err := range []error{userErr, tokErr} {
		if err != nil && !errors.Is(err, store.ErrMiss) {
			return fmt.Errorf("hydrate session: %w", err)
		}
	}
	if errors.Is(userErr, store.ErrMiss) && errors.Is(tokErr, store.ErrMiss) {
		return nil
	}

	var sess domain.Session
	switch {
	case userErr != nil || tokErr != nil || token == "":
		s.logger.Warn("Discarding half-persisted session",
			zap.Bool("has_identity", userErr == nil),
			zap.Bool("has_token", tokErr == nil && token != ""),
		)
	case json.Unmarshal([]byte(rawUser), &sess) != nil || !sess.Role.Valid():
		s.logger.Warn("Discarding malformed persisted identity")
	default:
		sess.Token = token
		s.current = &sess
		s.logger.Debug("Session restored", zap.Int64("user_id", sess.ID), zap.String("role", string(sess.Role)))
		return nil
	}

	if err := s.clear(ctx); err != nil {
		s.logger.Warn("Failed to clear stale session entries", zap.Error(err))
	}
	return nil
}

// Login 提交凭据，成功后原子保存身份与 token
func (s *Store) Login(ctx context.Context, authn Authenticator, identifier, secret string) (*domain.Session, error) {
	res, err := authn.Authenticate(ctx, identifier, secret)
	if err != nil {
		var se StatusError
		if errors.As(err, &se) {
			s.logger.Info("Login rejected", zap.Int("status_code", se.HTTPStatus()))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login: %w", err)
	}
	if res.AccessToken == "" || !res.Role.Valid() {
		s.logger.Warn("Login response missing token or role", zap.String("role", string(res.Role)))
		return nil, ErrInvalidCredentials
	}

	sess := res.Session()
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	s.logger.Info("Logged in", zap.Int64("user_id", sess.ID), zap.String("role", string(sess.Role)))
	out := *sess
	return &out, nil
}

func (s *Store) save(ctx context.Context, sess *domain.Session) error {
	identity, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.SetMulti(ctx, map[string]string{
		s.userKey: string(identity),
		s.tokKey:  sess.Token,
	}); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	s.current = sess
	return nil
}

// clear 成对删除持久化键；调用方的 ctx 被取消时仍然删除
func (s *Store) clear(ctx context.Context) error {
	return s.kv.Delete(context.WithoutCancel(ctx), s.userKey, s.tokKey)
}

// Logout 无条件清除内存与持久化中的会话
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	if err := s.clear(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Expire is the forced-logout path for an unauthorized response. It clears
// the session only if the rejected request carried the current token, and
// reports whether this call performed the clear. Concurrent 401s for the
// same token therefore clear and redirect exactly once.
func (s *Store) Expire(ctx context.Context, token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || s.current.Token != token {
		return false
	}
	s.current = nil
	if err := s.clear(ctx); err != nil {
		s.logger.Error("Failed to clear expired session", zap.Error(err))
	}
	s.logger.Warn("Session expired, forced logout")
	return true
}

// Current 返回当前会话副本
func (s *Store) Current() (*domain.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil, false
	}
	out := *s.current
	return &out, true
}

// Token 当前 bearer token，未登录时为空
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ""
	}
	return s.current.Token
}

// HasRole 当前会话角色是否属于 roles
func (s *Store) HasRole(roles ...domain.Role) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil && s.current.Role.In(roles...)
}

func (s *Store) IsAdmin() bool  { return s.HasRole(domain.RoleAdmin) }
func (s *Store) IsDoctor() bool { return s.HasRole(domain.RoleDoctor) }
func (s *Store) IsNurse() bool  { return s.HasRole(domain.RoleNurse) }

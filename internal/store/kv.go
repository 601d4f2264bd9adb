package store

import (
	"context"
	"errors"
	"fmt"

	"securehealth-console/internal/config"

	"go.uber.org/zap"
)

// ErrMiss 键不存在
var ErrMiss = errors.New("key not found")

// KV 会话持久化所需的最小键值接口
// SetMulti 与 Delete 必须原子生效：多个键要么全部写入/删除，要么都不变
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	SetMulti(ctx context.Context, entries map[string]string) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// Open 按配置打开会话存储后端
func Open(cfg config.SessionConfig, logger *zap.Logger) (KV, error) {
	switch cfg.Backend {
	case config.SessionBackendRedis:
		kv := NewRedisKV(NewRedisClient(cfg.Redis))
		if err := kv.Ping(context.Background()); err != nil {
			_ = kv.Close()
			return nil, fmt.Errorf("connect redis %s: %w", cfg.Redis.Addr, err)
		}
		return kv, nil
	case config.SessionBackendBadger, "":
		return OpenBadgerKV(cfg.Path, logger)
	default:
		return nil, fmt.Errorf("unsupported session backend %q", cfg.Backend)
	}
}

// Package view holds the per-route state reconcilers. Each view merges a
// REST snapshot fetched on mount with events pushed over its own live
// channel, and stops mutating state once it is unmounted.
package view

import (
	"context"
	"sync"
	"time"

	"securehealth-console/internal/live"
	"securehealth-console/internal/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// View 一个可挂载的页面状态
type View interface {
	Route() string
	Mount(ctx context.Context)
	Unmount()
}

// Stream 视图持有的实时订阅（*live.Channel）
type Stream interface {
	IsConnected() bool
	Close()
}

// Subscribe 为视图打开一条独立的实时订阅
type Subscribe func(h live.Handler) Stream

// base 视图公共部分：存活标记、实时订阅与状态锁。
// 所有状态写入都经过 update，卸载后的写入直接丢弃。
type base struct {
	mu      sync.Mutex
	alive   bool
	mounted bool
	stream  Stream
	logger  *zap.Logger
	now     func() time.Time
}

func newBase(log *zap.Logger, name string) base {
	return base{logger: logger.OrNop(log).Named(name), now: time.Now}
}

// activate 标记为已挂载；每个视图实例只挂载一次
func (b *base) activate() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.mounted {
		return false
	}
	b.mounted = true
	b.alive = true
	return true
}

func (b *base) attach(sub Subscribe, h live.Handler) {
	if sub == nil {
		return
	}
	s := sub(h)
	b.mu.Lock()
	if !b.alive {
		b.mu.Unlock()
		s.Close()
		return
	}
	b.stream = s
	b.mu.Unlock()
}

// update 在视图存活时执行 f，返回是否执行
func (b *base) update(f func()) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.alive {
		return false
	}
	f()
	return true
}

// Unmount 停止状态更新并关闭实时订阅，可重复调用
func (b *base) Unmount() {
	b.mu.Lock()
	b.alive = false
	s := b.stream
	b.stream = nil
	b.mu.Unlock()

	if s != nil {
		s.Close()
	}
}

// Alive 视图是否已挂载且未卸载
func (b *base) Alive() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.alive
}

// connected 必须持有 b.mu
func (b *base) connected() bool {
	return b.stream != nil && b.stream.IsConnected()
}

// fetchOr 执行一次快照请求，失败时记录日志并返回零值
func fetchOr[T any](ctx context.Context, log *zap.Logger, what string, call func(context.Context) (T, error)) T {
	v, err := call(ctx)
	if err != nil {
		log.Warn("Snapshot fetch failed, showing empty", zap.String("resource", what), zap.Error(err))
		var zero T
		return zero
	}
	return v
}

// parallel 并行执行快照请求并等待全部完成；单个失败不影响其他请求
func parallel(ctx context.Context, fns ...func(context.Context)) {
	g, gctx := errgroup.WithContext(ctx)
	for _, fn := range fns {
		fn := fn
		g.Go(func() error {
			fn(gctx)
			return nil
		})
	}
	_ = g.Wait()
}

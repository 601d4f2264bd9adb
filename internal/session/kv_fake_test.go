package session_test

import (
	"context"
	"sync"

	"securehealth-console/internal/store"
)

// fakeKV 仅用于单元测试（内存 KV，可注入写失败）
type fakeKV struct {
	mu      sync.Mutex
	data    map[string]string
	setErr  error
	deletes int
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string]string)}
}

func (f *fakeKV) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return "", store.ErrMiss
	}
	return v, nil
}

func (f *fakeKV) SetMulti(ctx context.Context, entries map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	for k, v := range entries {
		f.data[k] = v
	}
	return nil
}

func (f *fakeKV) Delete(ctx context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func (f *fakeKV) Close() error { return nil }

func (f *fakeKV) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.data[key]
	return ok
}

func (f *fakeKV) deleteCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deletes
}

package view

import (
	"context"
	"errors"
	"sync"

	"securehealth-console/internal/api"
	"securehealth-console/internal/domain"
	"securehealth-console/internal/events"
	"securehealth-console/internal/live"
)

var errBoom = errors.New("boom")

// fakeAPI 实现所有视图接口；fail 中的资源返回错误，gate 非 nil 时请求阻塞到 gate 关闭
type fakeAPI struct {
	mu sync.Mutex

	staff    []domain.StaffMember
	alerts   []domain.Alert
	logs     []domain.AuditLog
	patients []domain.Patient
	summary  *domain.RiskSummary
	commands []domain.AgentCommand
	scan     *domain.ScanResult
	voice    *domain.VoiceResult
	answer   string

	fail     map[string]bool
	gate     chan struct{}
	resolved []int64
	queries  []api.LogQuery
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{fail: make(map[string]bool)}
}

func (f *fakeAPI) call(ctx context.Context, what string) error {
	f.mu.Lock()
	gate := f.gate
	failing := f.fail[what]
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if failing {
		return &api.HTTPError{Path: what, StatusCode: 500}
	}
	return nil
}

func (f *fakeAPI) failOn(what ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, w := range what {
		f.fail[w] = true
	}
}

func (f *fakeAPI) ListStaff(ctx context.Context) ([]domain.StaffMember, error) {
	if err := f.call(ctx, "staff"); err != nil {
		return nil, err
	}
	return f.staff, nil
}

func (f *fakeAPI) ListAlerts(ctx context.Context) ([]domain.Alert, error) {
	if err := f.call(ctx, "alerts"); err != nil {
		return nil, err
	}
	return f.alerts, nil
}

func (f *fakeAPI) ResolveAlert(ctx context.Context, id int64) error {
	if err := f.call(ctx, "resolve"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolved = append(f.resolved, id)
	return nil
}

func (f *fakeAPI) ListLogs(ctx context.Context, q api.LogQuery) ([]domain.AuditLog, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()
	if err := f.call(ctx, "logs"); err != nil {
		return nil, err
	}
	return f.logs, nil
}

func (f *fakeAPI) MyLogs(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	if err := f.call(ctx, "my_logs"); err != nil {
		return nil, err
	}
	if limit < len(f.logs) {
		return f.logs[:limit], nil
	}
	return f.logs, nil
}

func (f *fakeAPI) ListPatients(ctx context.Context, search string) ([]domain.Patient, error) {
	if err := f.call(ctx, "patients"); err != nil {
		return nil, err
	}
	return f.patients, nil
}

func (f *fakeAPI) RiskSummary(ctx context.Context) (*domain.RiskSummary, error) {
	if err := f.call(ctx, "risk_summary"); err != nil {
		return nil, err
	}
	return f.summary, nil
}

func (f *fakeAPI) Commands(ctx context.Context) ([]domain.AgentCommand, error) {
	if err := f.call(ctx, "commands"); err != nil {
		return nil, err
	}
	return f.commands, nil
}

func (f *fakeAPI) Ask(ctx context.Context, question string) (*domain.QueryAnswer, error) {
	if err := f.call(ctx, "ask"); err != nil {
		return nil, err
	}
	return &domain.QueryAnswer{Answer: f.answer}, nil
}

func (f *fakeAPI) Scan(ctx context.Context, req domain.ScanRequest) (*domain.ScanResult, error) {
	if err := f.call(ctx, "scan"); err != nil {
		return nil, err
	}
	return f.scan, nil
}

func (f *fakeAPI) ThreatHunterVoice(ctx context.Context, transcript string) (*domain.VoiceResult, error) {
	if err := f.call(ctx, "voice"); err != nil {
		return nil, err
	}
	return f.voice, nil
}

// fakeStream 记录 handler，测试中直接调用它注入事件
type fakeStream struct {
	mu        sync.Mutex
	handler   live.Handler
	connected bool
	closed    bool
}

func (s *fakeStream) subscribe(h live.Handler) Stream {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = h
	s.connected = true
	return s
}

func (s *fakeStream) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected && !s.closed
}

func (s *fakeStream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *fakeStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// emit 模拟通道投递；即使已关闭也调用 handler，用于验证视图自身的存活检查
func (s *fakeStream) emit(ev events.Event) {
	s.mu.Lock()
	h := s.handler
	s.mu.Unlock()
	h(ev)
}

package view

import (
	"context"
	"fmt"

	"securehealth-console/internal/api"
	"securehealth-console/internal/domain"
	"securehealth-console/internal/guard"

	"go.uber.org/zap"
)

// AuditLogAPI 审计日志页所需接口
type AuditLogAPI interface {
	ListLogs(ctx context.Context, q api.LogQuery) ([]domain.AuditLog, error)
}

// AuditLogState 审计日志页渲染快照；Logs 已按当前排序列排好
type AuditLogState struct {
	Query   api.LogQuery
	Loading bool
	Logs    []domain.AuditLog
	SortKey SortKey
	SortAsc bool
}

// AuditLog 带过滤条件的审计日志表
type AuditLog struct {
	base
	api AuditLogAPI

	query   api.LogQuery
	seq     uint64
	loading bool
	logs    []domain.AuditLog
	sortKey SortKey
	sortAsc bool
}

func NewAuditLog(c AuditLogAPI, log *zap.Logger) *AuditLog {
	return &AuditLog{
		base:    newBase(log, "audit_log"),
		api:     c,
		query:   api.LogQuery{Limit: api.DefaultLogLimit},
		sortKey: SortByTimestamp,
	}
}

func (v *AuditLog) Route() string { return guard.AuditLogsRoute }

// Mount 按默认条件拉取一次
func (v *AuditLog) Mount(ctx context.Context) {
	if !v.activate() {
		return
	}
	v.mu.Lock()
	q := v.query
	v.mu.Unlock()
	v.Apply(ctx, q)
}

// Apply 以新条件重新拉取；失败时列表置空。
// 并发调用时只保留最后一次的结果。
func (v *AuditLog) Apply(ctx context.Context, q api.LogQuery) {
	var seq uint64
	if !v.update(func() {
		v.seq++
		seq = v.seq
		v.query = q
		v.loading = true
	}) {
		return
	}

	logs, err := v.api.ListLogs(ctx, q)
	if err != nil {
		v.logger.Warn("Audit log fetch failed", zap.Error(err))
		logs = nil
	}
	v.update(func() {
		if seq != v.seq {
			return
		}
		v.logs = logs
		v.loading = false
	})
}

// Sort 设置排序列与方向，只支持 timestamp 与 anomaly_score
func (v *AuditLog) Sort(key SortKey, asc bool) error {
	if !key.Valid() {
		return fmt.Errorf("unsupported sort key %q", key)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.sortKey = key
	v.sortAsc = asc
	return nil
}

func (v *AuditLog) State() AuditLogState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return AuditLogState{
		Query:   v.query,
		Loading: v.loading,
		Logs:    SortLogs(v.logs, v.sortKey, v.sortAsc),
		SortKey: v.sortKey,
		SortAsc: v.sortAsc,
	}
}

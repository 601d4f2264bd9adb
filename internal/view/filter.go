package view

import (
	"sort"
	"strings"

	"securehealth-console/internal/domain"
)

// 过滤函数都返回新切片，从不修改传入的列表

// AlertFilter 告警过滤条件，零值表示不过滤
type AlertFilter struct {
	Severity domain.Severity
}

// FilterAlerts 按级别过滤告警
func FilterAlerts(alerts []domain.Alert, f AlertFilter) []domain.Alert {
	out := make([]domain.Alert, 0, len(alerts))
	for _, a := range alerts {
		if f.Severity != "" && a.Severity != f.Severity {
			continue
		}
		out = append(out, a)
	}
	return out
}

// ActivityFilter 实时活动过滤条件
type ActivityFilter struct {
	Action domain.Action
	Ward   string
	Search string // 匹配操作人或患者姓名，不区分大小写
}

// FilterActivity 过滤实时活动
func FilterActivity(evs []domain.ActivityEvent, f ActivityFilter) []domain.ActivityEvent {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]domain.ActivityEvent, 0, len(evs))
	for _, e := range evs {
		if f.Action != "" && e.Action != f.Action {
			continue
		}
		if f.Ward != "" && !strings.EqualFold(e.PatientWard, f.Ward) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(e.UserName), search) &&
			!strings.Contains(strings.ToLower(e.PatientName), search) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// PatientFilter 患者列表过滤条件
type PatientFilter struct {
	Ward   string
	Search string // 匹配姓名或病区
	Age    domain.AgeBracket
	Risk   domain.RiskBand
	// SchemeEligible 非 nil 时按是否符合补助计划过滤
	SchemeEligible *bool
}

// FilterPatients 过滤患者
func FilterPatients(patients []domain.Patient, f PatientFilter) []domain.Patient {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]domain.Patient, 0, len(patients))
	for _, p := range patients {
		if f.Ward != "" && !strings.EqualFold(p.Ward, f.Ward) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Ward), search) {
			continue
		}
		if f.Age != "" && domain.BracketFor(p.Age) != f.Age {
			continue
		}
		if f.Risk != "" && domain.BandFor(p.RiskScore) != f.Risk {
			continue
		}
		if f.SchemeEligible != nil && p.SchemeEligibleAny() != *f.SchemeEligible {
			continue
		}
		out = append(out, p)
	}
	return out
}

// LogFilter 审计日志本地过滤条件
type LogFilter struct {
	FlaggedOnly bool
	Action      domain.Action
}

// FilterLogs 本地过滤审计日志
func FilterLogs(logs []domain.AuditLog, f LogFilter) []domain.AuditLog {
	out := make([]domain.AuditLog, 0, len(logs))
	for _, l := range logs {
		if f.FlaggedOnly && !bool(l.Flagged) {
			continue
		}
		if f.Action != "" && l.Action != f.Action {
			continue
		}
		out = append(out, l)
	}
	return out
}

// SortKey 审计日志可排序的列
type SortKey string

const (
	SortByTimestamp    SortKey = "timestamp"
	SortByAnomalyScore SortKey = "anomaly_score"
)

// Valid 是否为支持排序的列
func (k SortKey) Valid() bool {
	return k == SortByTimestamp || k == SortByAnomalyScore
}

// SortLogs 返回排序后的副本；不支持的列按时间排序
func SortLogs(logs []domain.AuditLog, key SortKey, asc bool) []domain.AuditLog {
	out := append([]domain.AuditLog(nil), logs...)
	less := func(a, b domain.AuditLog) bool {
		if key == SortByAnomalyScore {
			return a.AnomalyScore < b.AnomalyScore
		}
		return a.Timestamp.Before(b.Timestamp.Time)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if asc {
			return less(out[i], out[j])
		}
		return less(out[j], out[i])
	})
	return out
}

// LogPageSize 审计日志表每页行数
const LogPageSize = 50

// PageLogs 返回第 page 页（从 0 开始）及总页数
func PageLogs(logs []domain.AuditLog, page int) ([]domain.AuditLog, int) {
	pages := (len(logs) + LogPageSize - 1) / LogPageSize
	if page < 0 || page >= pages {
		return nil, pages
	}
	end := min((page+1)*LogPageSize, len(logs))
	return append([]domain.AuditLog(nil), logs[page*LogPageSize:end]...), pages
}

// Highlight 审计日志行的提示级别
type Highlight int

const (
	HighlightNone Highlight = iota
	HighlightHighScore
	HighlightFlagged
	HighlightCritical
)

// HighScoreThreshold 异常分数高亮阈值
const HighScoreThreshold = 0.7

// HighlightFor 已标记且高分为 Critical，其次已标记，其次高分
func HighlightFor(l domain.AuditLog) Highlight {
	high := l.AnomalyScore > HighScoreThreshold
	switch {
	case bool(l.Flagged) && high:
		return HighlightCritical
	case bool(l.Flagged):
		return HighlightFlagged
	case high:
		return HighlightHighScore
	default:
		return HighlightNone
	}
}

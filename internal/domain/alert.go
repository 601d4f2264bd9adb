package domain

// Severity 告警级别
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// 告警类型
const (
	AlertTypeAnomaly    = "anomaly_detected"
	AlertTypeManualLock = "manual_lock"
)

// Alert 安全告警（/alerts/ 快照或实时事件合成）
type Alert struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	UserName   string    `json:"user_name,omitempty"`
	Severity   Severity  `json:"severity"`
	AlertType  string    `json:"alert_type"`
	Details    string    `json:"details,omitempty"`
	AutoLocked Flag      `json:"auto_locked"`
	CreatedAt  Timestamp `json:"created_at"`
	Resolved   Flag      `json:"resolved"`
}

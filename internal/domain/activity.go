package domain

// Action 患者数据访问动作
type Action string

const (
	ActionView   Action = "VIEW"
	ActionEdit   Action = "EDIT"
	ActionExport Action = "EXPORT"
	ActionLogin  Action = "LOGIN"
	ActionLogout Action = "LOGOUT"
)

// ActivityEvent 实时推送的患者数据访问事件（patient_action）
// 只来自实时通道，不做批量拉取
type ActivityEvent struct {
	LogID       int64     `json:"log_id"`
	UserID      int64     `json:"user_id"`
	UserName    string    `json:"user_name"`
	UserRole    Role      `json:"user_role"`
	PatientID   int64     `json:"patient_id,omitempty"`
	PatientName string    `json:"patient_name"`
	PatientWard string    `json:"patient_ward,omitempty"`
	Action      Action    `json:"action"`
	Resource    string    `json:"resource"`
	Timestamp   Timestamp `json:"timestamp"`
}

// AuditLog 审计日志（/logs/ 与 /logs/my）
type AuditLog struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	UserName     string    `json:"user_name,omitempty"`
	PatientID    *int64    `json:"patient_id"`
	Action       Action    `json:"action"`
	Resource     string    `json:"resource"`
	IPAddress    string    `json:"ip_address,omitempty"`
	Timestamp    Timestamp `json:"timestamp"`
	AnomalyScore float64   `json:"anomaly_score"`
	Flagged      Flag      `json:"flagged"`
	Count        int       `json:"count,omitempty"` // 服务端 60 秒内相同操作合并计数
}

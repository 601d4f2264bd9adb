package domain

import "encoding/json"

// 代理名称
const (
	AgentThreatHunter = "threat_hunter"
	AgentPrivacyQuery = "privacy_query"
)

// AgentCommand 代理命令历史（/agents/commands）
type AgentCommand struct {
	ID            int64     `json:"id"`
	IssuedBy      int64     `json:"issued_by"`
	Agent         string    `json:"agent"`
	CommandText   string    `json:"command_text"`
	ResultSummary string    `json:"result_summary"`
	CreatedAt     Timestamp `json:"created_at"`
}

// ScanRequest 威胁扫描请求，字段为空表示全量扫描
type ScanRequest struct {
	Ward     string `json:"ward,omitempty"`
	UserName string `json:"user_name,omitempty"`
}

// ScanResult 威胁扫描结果
type ScanResult struct {
	Summary       string `json:"summary"`
	AlertsCreated int    `json:"alerts_created"`
	UsersLocked   int    `json:"users_locked"`
}

// VoiceResult 语音命令结果；Result 形状取决于解析出的动作
type VoiceResult struct {
	Transcript string          `json:"transcript"`
	Parsed     json.RawMessage `json:"parsed"`
	Result     struct {
		Summary string `json:"summary"`
	} `json:"result"`
}

// QueryAnswer 隐私查询代理回答
type QueryAnswer struct {
	Answer string `json:"answer"`
}

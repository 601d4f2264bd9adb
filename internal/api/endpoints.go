package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"securehealth-console/internal/domain"
)

// Authenticate 提交登录表单（username/password），实现 session.Authenticator
func (c *Client) Authenticate(ctx context.Context, identifier, secret string) (*domain.LoginResult, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"username": identifier,
			"password": secret,
		}).
		Post("/auth/login")

	var res domain.LoginResult
	if err := c.decode(http.MethodPost, "/auth/login", resp, err, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ListStaff 员工列表（管理员）
func (c *Client) ListStaff(ctx context.Context) ([]domain.StaffMember, error) {
	var out []domain.StaffMember
	if err := c.get(ctx, "/users/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListAlerts 未处理告警
func (c *Client) ListAlerts(ctx context.Context) ([]domain.Alert, error) {
	var out []domain.Alert
	if err := c.get(ctx, "/alerts/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ResolveAlert 标记告警已处理
func (c *Client) ResolveAlert(ctx context.Context, id int64) error {
	return c.Do(ctx, http.MethodPost, fmt.Sprintf("/alerts/%d/resolve", id), nil, nil)
}

// LogQuery /logs/ 过滤条件，零值字段不发送
type LogQuery struct {
	UserID      *int64
	Action      domain.Action
	FlaggedOnly bool
	From        time.Time
	To          time.Time
	Limit       int
}

// DefaultLogLimit 审计日志默认条数
const DefaultLogLimit = 100

const logTimeLayout = "2006-01-02T15:04"

// Values 编码为查询参数
func (q LogQuery) Values() url.Values {
	v := url.Values{}
	if q.UserID != nil {
		v.Set("user_id", strconv.FormatInt(*q.UserID, 10))
	}
	if q.Action != "" {
		v.Set("action", string(q.Action))
	}
	if q.FlaggedOnly {
		v.Set("flagged", "1")
	}
	if !q.From.IsZero() {
		v.Set("from_dt", q.From.Format(logTimeLayout))
	}
	if !q.To.IsZero() {
		v.Set("to_dt", q.To.Format(logTimeLayout))
	}
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	v.Set("limit", strconv.Itoa(limit))
	return v
}

// ListLogs 全部审计日志（管理员）
func (c *Client) ListLogs(ctx context.Context, q LogQuery) ([]domain.AuditLog, error) {
	var out []domain.AuditLog
	if err := c.get(ctx, "/logs/", q.Values(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MyLogs 当前用户自己的访问记录
func (c *Client) MyLogs(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	var out []domain.AuditLog
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	if err := c.get(ctx, "/logs/my", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListPatients 患者列表；服务端按角色限定范围（护士只看到自己的病区）
func (c *Client) ListPatients(ctx context.Context, search string) ([]domain.Patient, error) {
	var q url.Values
	if search != "" {
		q = url.Values{"search": {search}}
	}
	var out []domain.Patient
	if err := c.get(ctx, "/patients/", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetPatient 患者详情（服务端记录一次 VIEW）
func (c *Client) GetPatient(ctx context.Context, id int64) (*domain.Patient, error) {
	var out domain.Patient
	if err := c.get(ctx, fmt.Sprintf("/patients/%d", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdatePatient 修改患者记录（服务端记录一次 EDIT）
func (c *Client) UpdatePatient(ctx context.Context, id int64, upd domain.PatientUpdate) (*domain.Patient, error) {
	var out domain.Patient
	if err := c.Do(ctx, http.MethodPatch, fmt.Sprintf("/patients/%d", id), upd, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExportPatient 导出患者记录（服务端记录一次 EXPORT）
func (c *Client) ExportPatient(ctx context.Context, id int64) (*domain.Patient, error) {
	var out domain.Patient
	if err := c.Do(ctx, http.MethodPost, fmt.Sprintf("/patients/%d/export", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RiskSummary 风险分布汇总
func (c *Client) RiskSummary(ctx context.Context) (*domain.RiskSummary, error) {
	var out domain.RiskSummary
	if err := c.get(ctx, "/patients/risk-summary", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ask 向隐私查询代理提问
func (c *Client) Ask(ctx context.Context, question string) (*domain.QueryAnswer, error) {
	var out domain.QueryAnswer
	body := map[string]string{"question": question}
	if err := c.Do(ctx, http.MethodPost, "/agents/privacy-query/ask", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Scan 触发威胁扫描
func (c *Client) Scan(ctx context.Context, req domain.ScanRequest) (*domain.ScanResult, error) {
	var out domain.ScanResult
	if err := c.Do(ctx, http.MethodPost, "/agents/threat-hunter/scan", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ThreatHunterVoice 提交语音命令文本
func (c *Client) ThreatHunterVoice(ctx context.Context, transcript string) (*domain.VoiceResult, error) {
	var out domain.VoiceResult
	body := map[string]string{"transcript": transcript}
	if err := c.Do(ctx, http.MethodPost, "/agents/threat-hunter/voice", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Commands 代理命令历史（最新在前）
func (c *Client) Commands(ctx context.Context) ([]domain.AgentCommand, error) {
	var out []domain.AgentCommand
	if err := c.get(ctx, "/agents/commands", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

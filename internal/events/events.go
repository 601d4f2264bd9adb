// Package events decodes frames from the live channel into a closed set of
// typed messages keyed by the "event" discriminator.
package events

import (
	"encoding/json"
	"errors"
	"fmt"

	"securehealth-console/internal/domain"
)

// 已识别的 event 判别值
const (
	NameNewAlert      = "new_alert"
	NameUserLocked    = "user_locked"
	NamePatientAction = "patient_action"
)

// ErrMalformed 帧不是合法 JSON 对象
var ErrMalformed = errors.New("malformed frame")

// Event is one decoded live message. The concrete type is one of
// *NewAlert, *UserLocked, *PatientAction or *Unknown.
type Event interface {
	Name() string
}

// NewAlert 异常检测产生的新告警
type NewAlert struct {
	AlertID      int64            `json:"alert_id"`
	UserID       int64            `json:"user_id"`
	UserName     string           `json:"user_name,omitempty"`
	Severity     domain.Severity  `json:"severity"`
	AnomalyScore float64          `json:"anomaly_score,omitempty"`
	AutoLocked   domain.Flag      `json:"auto_locked"`
	CreatedAt    domain.Timestamp `json:"created_at"`
}

func (*NewAlert) Name() string { return NameNewAlert }

// Alert 合成告警记录
func (e *NewAlert) Alert() domain.Alert {
	return domain.Alert{
		ID:         e.AlertID,
		UserID:     e.UserID,
		UserName:   e.UserName,
		Severity:   e.Severity,
		AlertType:  domain.AlertTypeAnomaly,
		AutoLocked: e.AutoLocked,
		CreatedAt:  e.CreatedAt,
		Resolved:   false,
	}
}

// UserLocked 管理员或代理锁定了用户
type UserLocked struct {
	AlertID   int64            `json:"alert_id"`
	UserID    int64            `json:"user_id"`
	UserName  string           `json:"user_name,omitempty"`
	Severity  domain.Severity  `json:"severity"`
	CreatedAt domain.Timestamp `json:"created_at"`
}

func (*UserLocked) Name() string { return NameUserLocked }

// Alert 合成告警记录；锁定事件的 auto_locked 恒为 true
func (e *UserLocked) Alert() domain.Alert {
	return domain.Alert{
		ID:         e.AlertID,
		UserID:     e.UserID,
		UserName:   e.UserName,
		Severity:   e.Severity,
		AlertType:  domain.AlertTypeManualLock,
		AutoLocked: true,
		CreatedAt:  e.CreatedAt,
		Resolved:   false,
	}
}

// PatientAction 医护人员对患者数据的访问
type PatientAction struct {
	domain.ActivityEvent
}

func (*PatientAction) Name() string { return NamePatientAction }

// Unknown 未识别的 event，保留原始内容，由调用方忽略
type Unknown struct {
	Event string
	Raw   json.RawMessage
}

func (u *Unknown) Name() string { return u.Event }

// AlertSource is implemented by events that synthesize an alert record.
type AlertSource interface {
	Event
	Alert() domain.Alert
}

var (
	_ AlertSource = (*NewAlert)(nil)
	_ AlertSource = (*UserLocked)(nil)
)

type envelope struct {
	Event string `json:"event"`
}

// Decode 解析一帧 JSON。
// 非 JSON 或非对象返回 ErrMalformed；已识别 event 的字段类型错误同样视为损坏帧。
func Decode(frame []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var ev Event
	switch env.Event {
	case NameNewAlert:
		ev = &NewAlert{}
	case NameUserLocked:
		ev = &UserLocked{}
	case NamePatientAction:
		ev = &PatientAction{}
	default:
		return &Unknown{Event: env.Event, Raw: append(json.RawMessage(nil), frame...)}, nil
	}

	if err := json.Unmarshal(frame, ev); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, env.Event, err)
	}
	return ev, nil
}

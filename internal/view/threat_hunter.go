package view

import (
	"context"
	"fmt"

	"securehealth-console/internal/domain"
	"securehealth-console/internal/events"
	"securehealth-console/internal/guard"

	"go.uber.org/zap"
)

// ThreatHunterAPI 威胁猎手页所需接口
type ThreatHunterAPI interface {
	AlertsAPI
	Scan(ctx context.Context, req domain.ScanRequest) (*domain.ScanResult, error)
	ThreatHunterVoice(ctx context.Context, transcript string) (*domain.VoiceResult, error)
}

// 状态栏文案
const (
	StatusScanning     = "Scanning…"
	StatusScanFailed   = "Scan failed"
	StatusVoiceFailed  = "Voice command failed"
	StatusVoiceHandled = "Command processed"
)

// ThreatHunterState 威胁猎手页渲染快照
type ThreatHunterState struct {
	Connected      bool
	Alerts         []domain.Alert
	Status         string
	Busy           bool
	LastTranscript string
}

// ThreatHunter 活跃告警、扫描与语音命令
type ThreatHunter struct {
	base
	api ThreatHunterAPI
	sub Subscribe

	feed       AlertFeed
	status     string
	busy       bool
	transcript string
}

func NewThreatHunter(c ThreatHunterAPI, sub Subscribe, log *zap.Logger) *ThreatHunter {
	return &ThreatHunter{
		base: newBase(log, "threat_hunter"),
		api:  c,
		sub:  sub,
		feed: newAlertFeed(),
	}
}

func (v *ThreatHunter) Route() string { return guard.ThreatHunterRoute }

func (v *ThreatHunter) Mount(ctx context.Context) {
	if !v.activate() {
		return
	}
	v.attach(v.sub, v.OnEvent)
	alerts := fetchOr(ctx, v.logger, "alerts", v.api.ListAlerts)
	v.update(func() { v.feed.SetSnapshot(alerts) })
}

func (v *ThreatHunter) OnEvent(ev events.Event) {
	v.update(func() {
		if !v.feed.Apply(ev) {
			v.logger.Debug("Ignoring live event", zap.String("event", ev.Name()))
		}
	})
}

// RunScan 触发扫描；状态栏显示进度与结果
func (v *ThreatHunter) RunScan(ctx context.Context, req domain.ScanRequest) (*domain.ScanResult, error) {
	v.update(func() {
		v.busy = true
		v.status = StatusScanning
	})
	res, err := v.api.Scan(ctx, req)
	v.update(func() {
		v.busy = false
		switch {
		case err != nil:
			v.status = StatusScanFailed
		case res.Summary != "":
			v.status = res.Summary
		default:
			v.status = fmt.Sprintf("Done — %d alerts, %d locked", res.AlertsCreated, res.UsersLocked)
		}
	})
	if err != nil {
		v.logger.Warn("Threat scan failed", zap.Error(err))
		return nil, err
	}
	return res, nil
}

// Voice 提交语音命令文本
func (v *ThreatHunter) Voice(ctx context.Context, transcript string) (*domain.VoiceResult, error) {
	v.update(func() {
		v.transcript = transcript
		v.busy = true
		v.status = fmt.Sprintf("Command: %q", transcript)
	})
	res, err := v.api.ThreatHunterVoice(ctx, transcript)
	v.update(func() {
		v.busy = false
		switch {
		case err != nil:
			v.status = StatusVoiceFailed
		case res.Result.Summary != "":
			v.status = res.Result.Summary
		default:
			v.status = StatusVoiceHandled
		}
	})
	if err != nil {
		v.logger.Warn("Voice command failed", zap.Error(err))
		return nil, err
	}
	return res, nil
}

// Resolve 同 AdminDashboard.Resolve
func (v *ThreatHunter) Resolve(ctx context.Context, id int64) error {
	if err := v.api.ResolveAlert(ctx, id); err != nil {
		v.logger.Warn("Resolve alert failed", zap.Int64("alert_id", id), zap.Error(err))
		return err
	}
	v.update(func() { v.feed.Resolve(id) })
	return nil
}

func (v *ThreatHunter) State() ThreatHunterState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return ThreatHunterState{
		Connected:      v.connected(),
		Alerts:         v.feed.Alerts(),
		Status:         v.status,
		Busy:           v.busy,
		LastTranscript: v.transcript,
	}
}

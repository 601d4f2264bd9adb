package view

import (
	"context"

	"securehealth-console/internal/domain"
	"securehealth-console/internal/guard"

	"go.uber.org/zap"
)

// NurseAPI 护士首页所需接口
type NurseAPI interface {
	PatientsAPI
	MyLogs(ctx context.Context, limit int) ([]domain.AuditLog, error)
}

// nurseLogLimit 护士首页展示的个人访问记录条数
const nurseLogLimit = 20

// NurseState 护士首页渲染快照
type NurseState struct {
	Loaded   bool
	Patients []domain.Patient
	MyLogs   []domain.AuditLog
	HighRisk int
}

// NurseDashboard 本病区患者与个人最近访问记录
type NurseDashboard struct {
	base
	api NurseAPI

	loaded   bool
	patients []domain.Patient
	logs     []domain.AuditLog
}

func NewNurseDashboard(c NurseAPI, log *zap.Logger) *NurseDashboard {
	return &NurseDashboard{base: newBase(log, "nurse_dashboard"), api: c}
}

func (v *NurseDashboard) Route() string { return guard.NurseRoute }

func (v *NurseDashboard) Mount(ctx context.Context) {
	if !v.activate() {
		return
	}
	parallel(ctx,
		func(ctx context.Context) {
			patients := fetchOr(ctx, v.logger, "patients", func(ctx context.Context) ([]domain.Patient, error) {
				return v.api.ListPatients(ctx, "")
			})
			v.update(func() { v.patients = patients })
		},
		func(ctx context.Context) {
			logs := fetchOr(ctx, v.logger, "my_logs", func(ctx context.Context) ([]domain.AuditLog, error) {
				return v.api.MyLogs(ctx, nurseLogLimit)
			})
			v.update(func() { v.logs = logs })
		},
	)
	v.update(func() { v.loaded = true })
}

func (v *NurseDashboard) State() NurseState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return NurseState{
		Loaded:   v.loaded,
		Patients: append([]domain.Patient(nil), v.patients...),
		MyLogs:   append([]domain.AuditLog(nil), v.logs...),
		HighRisk: countHighRisk(v.patients),
	}
}

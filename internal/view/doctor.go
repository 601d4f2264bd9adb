package view

import (
	"context"
	"sort"

	"securehealth-console/internal/domain"
	"securehealth-console/internal/guard"

	"go.uber.org/zap"
)

// PatientsAPI 患者列表
type PatientsAPI interface {
	ListPatients(ctx context.Context, search string) ([]domain.Patient, error)
}

// DoctorAPI 医生首页所需接口
type DoctorAPI interface {
	PatientsAPI
	RiskSummary(ctx context.Context) (*domain.RiskSummary, error)
}

// Count 图表中的一个分组
type Count struct {
	Key   string
	Count int
}

// DoctorStats 医生首页统计卡片
type DoctorStats struct {
	Total          int
	AvgRisk        float64
	HighRisk       int
	SchemeEligible int
}

// DoctorState 医生首页渲染快照
type DoctorState struct {
	Loaded   bool
	Patients []domain.Patient
	Summary  *domain.RiskSummary
	Stats    DoctorStats
	Buckets  []Count
	Schemes  []Count
	Wards    []Count
}

// DoctorDashboard 患者列表与风险汇总；不订阅实时事件
type DoctorDashboard struct {
	base
	api DoctorAPI

	loaded   bool
	patients []domain.Patient
	summary  *domain.RiskSummary
}

func NewDoctorDashboard(c DoctorAPI, log *zap.Logger) *DoctorDashboard {
	return &DoctorDashboard{base: newBase(log, "doctor_dashboard"), api: c}
}

func (v *DoctorDashboard) Route() string { return guard.DoctorRoute }

func (v *DoctorDashboard) Mount(ctx context.Context) {
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
			summary := fetchOr(ctx, v.logger, "risk_summary", v.api.RiskSummary)
			v.update(func() { v.summary = summary })
		},
	)
	v.update(func() { v.loaded = true })
}

func (v *DoctorDashboard) State() DoctorState {
	v.mu.Lock()
	defer v.mu.Unlock()

	st := DoctorState{
		Loaded:   v.loaded,
		Patients: append([]domain.Patient(nil), v.patients...),
		Stats: DoctorStats{
			Total:          len(v.patients),
			HighRisk:       countHighRisk(v.patients),
			SchemeEligible: countSchemeEligible(v.patients),
		},
	}
	if v.summary != nil {
		s := *v.summary
		st.Summary = &s
		st.Stats.AvgRisk = s.AvgRisk
		st.Buckets = sortedCounts(s.Buckets)
		st.Schemes = sortedCounts(s.SchemeCounts)
		st.Wards = sortedCounts(s.WardCounts)
	}
	return st
}

func countHighRisk(patients []domain.Patient) int {
	n := 0
	for _, p := range patients {
		if p.IsHighRisk() {
			n++
		}
	}
	return n
}

func countSchemeEligible(patients []domain.Patient) int {
	n := 0
	for _, p := range patients {
		if p.SchemeEligibleAny() {
			n++
		}
	}
	return n
}

func sortedCounts(m map[string]int) []Count {
	out := make([]Count, 0, len(m))
	for k, n := range m {
		out = append(out, Count{Key: k, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

package main

import (
	"bytes"
	"testing"
	"time"

	"securehealth-console/internal/domain"
	"securehealth-console/internal/guard"
	"securehealth-console/internal/view"

	"github.com/stretchr/testify/assert"
)

func TestRenderAdmin(t *testing.T) {
	var buf bytes.Buffer
	renderAdmin(&buf, view.AdminState{
		Loaded:     true,
		Connected:  true,
		Staff:      []domain.StaffMember{{ID: 1}, {ID: 2}},
		RoleCounts: map[domain.Role]int{domain.RoleAdmin: 1, domain.RoleNurse: 1},
		Alerts: []domain.Alert{{
			ID: 7, UserID: 3, Severity: domain.SeverityCritical,
			AlertType: domain.AlertTypeAnomaly, AutoLocked: true,
		}},
		LogsToday: 4,
	})

	out := buf.String()
	assert.Contains(t, out, "● Live")
	assert.Contains(t, out, "Staff 2 (admin 1, doctor 0, nurse 1)")
	assert.Contains(t, out, "Logs today 4")
	assert.Contains(t, out, "CRITICAL")
	assert.Contains(t, out, "#3")
	assert.Contains(t, out, "waiting for activity")
}

func TestRenderThreatHunterDisconnected(t *testing.T) {
	var buf bytes.Buffer
	renderThreatHunter(&buf, view.ThreatHunterState{Status: view.StatusScanFailed})

	assert.Contains(t, buf.String(), "Reconnecting")
	assert.Contains(t, buf.String(), view.StatusScanFailed)
	assert.Contains(t, buf.String(), "no active alerts")
}

func TestRenderAuditLogHighlightsAndPages(t *testing.T) {
	logs := make([]domain.AuditLog, view.LogPageSize+5)
	for i := range logs {
		logs[i] = domain.AuditLog{ID: int64(i + 1), UserID: 2, Action: domain.ActionView}
	}
	logs[0].Flagged = true
	logs[0].AnomalyScore = 0.9
	logs[0].Count = 3

	var buf bytes.Buffer
	renderAuditLog(&buf, view.AuditLogState{Logs: logs, SortKey: view.SortByTimestamp})

	out := buf.String()
	assert.Contains(t, out, "55 entries, sorted by timestamp desc")
	assert.Contains(t, out, "!!")
	assert.Contains(t, out, "#2 (x3)")
	assert.Contains(t, out, "page 1 of 2")
}

func TestRenderPatients(t *testing.T) {
	var buf bytes.Buffer
	renderPatients(&buf, []domain.Patient{
		{ID: 1, Name: "Asha", Age: 31, Ward: "B2", RiskScore: 0.7, SchemeEligible: []string{"PMJAY"}},
		{ID: 2, Name: "Ravi", Age: 50, Ward: "C1", RiskScore: 0.1},
	})

	out := buf.String()
	assert.Contains(t, out, "0.70 high")
	assert.Contains(t, out, "PMJAY")
	assert.Contains(t, out, "0.10 low")
}

func TestStampZero(t *testing.T) {
	assert.Equal(t, "-", stamp(domain.Timestamp{}))
	ts := domain.Timestamp{Time: time.Date(2024, 3, 1, 9, 5, 0, 0, time.Local)}
	assert.Equal(t, "2024-03-01 09:05", stamp(ts))
}

func TestErrRedirected(t *testing.T) {
	assert.Contains(t, errRedirected{want: guard.AdminRoute, got: guard.LoginRoute}.Error(), "run login first")
	assert.Contains(t, errRedirected{want: guard.AdminRoute, got: guard.NurseRoute}.Error(), "home is /nurse")
}

func TestRoutePathsExcludesLogin(t *testing.T) {
	paths := routePaths()
	assert.NotContains(t, paths, guard.LoginRoute)
	assert.Contains(t, paths, guard.AuditLogsRoute)
}

func TestRenderPatientDetail(t *testing.T) {
	doc := int64(4)
	var buf bytes.Buffer
	renderPatient(&buf, domain.Patient{ID: 9, Name: "Meera", Age: 24, Ward: "A1", AssignedDoctorID: &doc, RiskScore: 0.4})

	out := buf.String()
	assert.Contains(t, out, "24 (under-25)")
	assert.Contains(t, out, "#4")
	assert.Contains(t, out, "0.40 medium")
}

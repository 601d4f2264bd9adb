package view

import (
	"context"
	"testing"

	"securehealth-console/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func patientsFixture() []domain.Patient {
	return []domain.Patient{
		{ID: 1, Name: "Asha Rao", RiskScore: 0.8, SchemeEligible: []string{"PMMVY"}},
		{ID: 2, Name: "Meena Das", RiskScore: 0.66},
		{ID: 3, Name: "Lata Iyer", RiskScore: 0.2, SchemeEligible: []string{"JSY"}},
	}
}

func TestDoctorDashboard_Stats(t *testing.T) {
	f := newFakeAPI()
	f.patients = patientsFixture()
	f.summary = &domain.RiskSummary{
		Total:        3,
		AvgRisk:      0.55,
		Buckets:      map[string]int{"0.6-0.8": 1, "0.0-0.2": 1, "0.8-1.0": 1},
		SchemeCounts: map[string]int{"PMMVY": 1, "JSY": 1},
		WardCounts:   map[string]int{"A1": 3},
	}
	v := NewDoctorDashboard(f, zap.NewNop())
	v.Mount(context.Background())

	st := v.State()
	assert.True(t, st.Loaded)
	assert.Equal(t, DoctorStats{Total: 3, AvgRisk: 0.55, HighRisk: 2, SchemeEligible: 2}, st.Stats)
	assert.Equal(t, []Count{{"0.0-0.2", 1}, {"0.6-0.8", 1}, {"0.8-1.0", 1}}, st.Buckets)
	assert.Equal(t, []Count{{"JSY", 1}, {"PMMVY", 1}}, st.Schemes)
	assert.Equal(t, []Count{{"A1", 3}}, st.Wards)
}

func TestDoctorDashboard_SummaryFailure(t *testing.T) {
	f := newFakeAPI()
	f.patients = patientsFixture()
	f.failOn("risk_summary")
	v := NewDoctorDashboard(f, zap.NewNop())
	v.Mount(context.Background())

	st := v.State()
	assert.Nil(t, st.Summary)
	assert.Zero(t, st.Stats.AvgRisk)
	assert.Empty(t, st.Buckets)
	assert.Equal(t, 3, st.Stats.Total)
}

func TestNurseDashboard(t *testing.T) {
	f := newFakeAPI()
	f.patients = patientsFixture()
	f.logs = make([]domain.AuditLog, 30)
	v := NewNurseDashboard(f, zap.NewNop())
	v.Mount(context.Background())

	st := v.State()
	assert.Len(t, st.MyLogs, 20)
	assert.Equal(t, 2, st.HighRisk)

	f2 := newFakeAPI()
	f2.failOn("patients", "my_logs")
	v2 := NewNurseDashboard(f2, zap.NewNop())
	v2.Mount(context.Background())
	st2 := v2.State()
	assert.True(t, st2.Loaded)
	assert.Empty(t, st2.Patients)
	assert.Empty(t, st2.MyLogs)
}

func TestPrivacyQuery_HistoryAndAsk(t *testing.T) {
	f := newFakeAPI()
	// 最新在前
	for i := 8; i >= 1; i-- {
		f.commands = append(f.commands, domain.AgentCommand{
			ID: int64(i), Agent: domain.AgentPrivacyQuery,
			CommandText: "q" + string(rune('0'+i)), ResultSummary: "a" + string(rune('0'+i)),
		})
		if i == 5 {
			f.commands = append(f.commands, domain.AgentCommand{Agent: domain.AgentThreatHunter, CommandText: "scan"})
		}
	}
	f.commands[0].ResultSummary = ""
	f.answer = "3 high-risk patients"
	v := NewPrivacyQuery(f, zap.NewNop())
	v.Mount(context.Background())

	msgs := v.State().Messages
	require.Len(t, msgs, 12)
	assert.Equal(t, Message{SpeakerUser, "q3"}, msgs[0])
	assert.Equal(t, Message{SpeakerAgent, "a3"}, msgs[1])
	assert.Equal(t, Message{SpeakerUser, "q8"}, msgs[10])
	assert.Equal(t, Message{SpeakerAgent, "…"}, msgs[11])

	ans, err := v.Ask(context.Background(), "  any high-risk patients in Ward D?  ")
	require.NoError(t, err)
	assert.Equal(t, "3 high-risk patients", ans)

	f.failOn("ask")
	ans, err = v.Ask(context.Background(), "again")
	require.Error(t, err)
	assert.Equal(t, AskFallback, ans)

	msgs = v.State().Messages
	require.Len(t, msgs, 16)
	assert.Equal(t, Message{SpeakerUser, "any high-risk patients in Ward D?"}, msgs[12])
	assert.Equal(t, Message{SpeakerAgent, AskFallback}, msgs[15])
	assert.False(t, v.State().Pending)

	_, err = v.Ask(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyQuestion)
}

func TestAuditLog_ApplyAndSort(t *testing.T) {
	f := newFakeAPI()
	f.logs = []domain.AuditLog{
		{ID: 1, AnomalyScore: 0.3, Timestamp: at(today)},
		{ID: 2, AnomalyScore: 0.9, Timestamp: at(today.Add(-1))},
	}
	v := NewAuditLog(f, zap.NewNop())
	v.Mount(context.Background())

	st := v.State()
	assert.Equal(t, 100, st.Query.Limit)
	assert.Equal(t, int64(1), st.Logs[0].ID)

	require.NoError(t, v.Sort(SortByAnomalyScore, false))
	assert.Equal(t, int64(2), v.State().Logs[0].ID)
	assert.Error(t, v.Sort("user_name", true))

	f.failOn("logs")
	v.Apply(context.Background(), f.queries[0])
	assert.Empty(t, v.State().Logs)
	assert.False(t, v.State().Loading)
}

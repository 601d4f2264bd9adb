package events

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"securehealth-console/internal/domain"
)

func TestDecode_NewAlert(t *testing.T) {
	ev, err := Decode([]byte(`{"event":"new_alert","alert_id":7,"user_id":3,"severity":"high","anomaly_score":0.91,"auto_locked":0,"created_at":"2025-02-10T08:15:30"}`))
	require.NoError(t, err)

	na, ok := ev.(*NewAlert)
	require.True(t, ok)
	a := na.Alert()
	assert.Equal(t, int64(7), a.ID)
	assert.Equal(t, domain.SeverityHigh, a.Severity)
	assert.Equal(t, domain.AlertTypeAnomaly, a.AlertType)
	assert.False(t, bool(a.AutoLocked))
	assert.False(t, bool(a.Resolved))
	assert.Equal(t, 2025, a.CreatedAt.Year())
}

func TestDecode_UserLockedDefaultsToLocked(t *testing.T) {
	ev, err := Decode([]byte(`{"event":"user_locked","alert_id":8,"user_id":5,"severity":"high","created_at":"2025-02-10T08:15:30"}`))
	require.NoError(t, err)

	ul, ok := ev.(*UserLocked)
	require.True(t, ok)
	a := ul.Alert()
	assert.Equal(t, domain.AlertTypeManualLock, a.AlertType)
	assert.True(t, bool(a.AutoLocked))
}

func TestDecode_PatientAction(t *testing.T) {
	ev, err := Decode([]byte(`{"event":"patient_action","log_id":42,"user_id":2,"user_name":"Dr. Rao","user_role":"doctor","patient_id":11,"patient_name":"Meena","patient_ward":"Ward D","action":"EXPORT","resource":"patient_record","timestamp":"2025-02-10T08:15:30"}`))
	require.NoError(t, err)

	pa, ok := ev.(*PatientAction)
	require.True(t, ok)
	assert.Equal(t, int64(42), pa.LogID)
	assert.Equal(t, domain.ActionExport, pa.Action)
	assert.Equal(t, domain.RoleDoctor, pa.UserRole)
	assert.Equal(t, "Ward D", pa.PatientWard)
}

func TestDecode_UnknownIsNotAnError(t *testing.T) {
	ev, err := Decode([]byte(`{"event":"scan_progress","pct":40}`))
	require.NoError(t, err)
	u, ok := ev.(*Unknown)
	require.True(t, ok)
	assert.Equal(t, "scan_progress", u.Name())
	assert.JSONEq(t, `{"event":"scan_progress","pct":40}`, string(u.Raw))

	ev, err = Decode([]byte(`{"pct":40}`))
	require.NoError(t, err)
	assert.IsType(t, &Unknown{}, ev)
}

func TestDecode_Malformed(t *testing.T) {
	for _, frame := range []string{`not json`, `{"event":`, `[1,2,3]`, `{"event":"new_alert","alert_id":"seven"}`} {
		_, err := Decode([]byte(frame))
		require.Error(t, err, frame)
		assert.True(t, errors.Is(err, ErrMalformed), frame)
	}
}

func TestDecode_TimestampLayoutsKeepTheEvent(t *testing.T) {
	cases := map[string]int{
		"2024-05-01 10:00:00+05:30":    5*3600 + 1800,
		"2024-05-01T10:00:00.123+0000": 0,
		"last tuesday":                 -1,
	}
	for raw, offset := range cases {
		ev, err := Decode([]byte(`{"event":"new_alert","alert_id":5,"user_id":3,"severity":"high","created_at":"` + raw + `"}`))
		require.NoError(t, err, raw)
		na, ok := ev.(*NewAlert)
		require.True(t, ok, raw)
		assert.Equal(t, int64(5), na.AlertID, raw)

		if offset < 0 {
			assert.True(t, na.CreatedAt.IsZero(), raw)
			continue
		}
		_, got := na.CreatedAt.Zone()
		assert.Equal(t, offset, got, raw)
	}
}

package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"securehealth-console/internal/config"
	"securehealth-console/internal/domain"
	"securehealth-console/internal/guard"
	"securehealth-console/internal/live"
	"securehealth-console/internal/view"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// idleTransport 连接建立后不推送任何帧，直到被关闭
type idleTransport struct{}

type idleConn struct {
	once sync.Once
	done chan struct{}
}

func (idleTransport) Dial(ctx context.Context) (live.Conn, error) {
	return &idleConn{done: make(chan struct{})}, nil
}

func (c *idleConn) ReadFrame() ([]byte, error) {
	<-c.done
	return nil, live.ErrConnClosed
}

func (c *idleConn) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

// fakeBackend 按 token 区分角色的最小 API
type fakeBackend struct {
	mu      sync.Mutex
	hits    map[string]int
	revoked map[string]bool
}

var accounts = map[string]domain.LoginResult{
	"admin@hospital.in": {AccessToken: "tok-admin", Role: domain.RoleAdmin, Name: "Priya", UserID: 1},
	"nurse@hospital.in": {AccessToken: "tok-nurse", Role: domain.RoleNurse, Name: "Joy", UserID: 4, Department: "A1"},
}

func newBackend(t *testing.T) (*fakeBackend, *httptest.Server) {
	b := &fakeBackend{hits: map[string]int{}, revoked: map[string]bool{}}
	mux := http.NewServeMux()
	reply := func(path string, body any) {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			b.mu.Lock()
			b.hits[path]++
			revoked := b.revoked[r.Header.Get("Authorization")]
			b.mu.Unlock()
			if r.Header.Get("Authorization") == "" || revoked {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(body)
		})
	}
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		res, ok := accounts[r.PostForm.Get("username")]
		if !ok || r.PostForm.Get("password") != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(res)
	})
	reply("/users/", []domain.StaffMember{{ID: 1, Role: domain.RoleAdmin}, {ID: 4, Role: domain.RoleNurse}})
	reply("/alerts/", []domain.Alert{{ID: 9, Severity: domain.SeverityHigh}})
	reply("/logs/", []domain.AuditLog{})
	reply("/logs/my", []domain.AuditLog{{ID: 3, Action: domain.ActionView}})
	reply("/patients/", []domain.Patient{{ID: 2, Name: "Asha Rao", RiskScore: 0.7}})
	reply("/patients/risk-summary", domain.RiskSummary{Total: 1})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return b, srv
}

func (b *fakeBackend) count(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[path]
}

func (b *fakeBackend) revoke(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.revoked["Bearer "+token] = true
}

func testConfig(apiURL, sessionPath string) *config.Config {
	cfg := &config.Config{}
	cfg.API.BaseURL = apiURL
	cfg.Session.Backend = config.SessionBackendBadger
	cfg.Session.Path = sessionPath
	cfg.Live.ReconnectDelay = 10 * time.Millisecond
	return cfg
}

func newConsole(t *testing.T, apiURL, sessionPath string) *Console {
	t.Helper()
	c, err := New(context.Background(), testConfig(apiURL, sessionPath), zap.NewNop(), WithTransport(idleTransport{}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestConsole_AdminLoginRendersAdminView(t *testing.T) {
	b, srv := newBackend(t)
	c := newConsole(t, srv.URL, "")
	ctx := context.Background()

	sess, landing, err := c.Login(ctx, "admin@hospital.in", "pw")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, sess.Role)
	assert.Equal(t, guard.AdminRoute, landing)

	route, v, err := c.Navigate(ctx, landing)
	require.NoError(t, err)
	assert.Equal(t, guard.AdminRoute, route)
	admin, ok := v.(*view.AdminDashboard)
	require.True(t, ok)

	st := admin.State()
	assert.True(t, st.Loaded)
	assert.Len(t, st.Staff, 2)
	assert.Len(t, st.Alerts, 1)
	assert.Eventually(t, func() bool { return admin.State().Connected }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, b.count("/users/"))
}

func TestConsole_NurseBouncedToOwnHome(t *testing.T) {
	b, srv := newBackend(t)
	c := newConsole(t, srv.URL, "")
	ctx := context.Background()

	_, _, err := c.Login(ctx, "nurse@hospital.in", "pw")
	require.NoError(t, err)

	route, v, err := c.Navigate(ctx, guard.AdminRoute)
	require.NoError(t, err)
	assert.Equal(t, guard.NurseRoute, route)
	nurse, ok := v.(*view.NurseDashboard)
	require.True(t, ok)
	assert.Len(t, nurse.State().MyLogs, 1)
	assert.Equal(t, 0, b.count("/users/"), "admin data must not be fetched for a nurse")
}

func TestConsole_NoSessionFetchesNothing(t *testing.T) {
	b, srv := newBackend(t)
	c := newConsole(t, srv.URL, "")

	route, v, err := c.Navigate(context.Background(), guard.DoctorRoute)
	require.NoError(t, err)
	assert.Equal(t, guard.LoginRoute, route)
	assert.Nil(t, v)
	assert.Equal(t, 0, b.count("/patients/"))
}

func TestConsole_RejectedLogin(t *testing.T) {
	_, srv := newBackend(t)
	c := newConsole(t, srv.URL, "")

	_, _, err := c.Login(context.Background(), "admin@hospital.in", "nope")
	require.Error(t, err)
	assert.Equal(t, guard.LoginRoute, c.Route())
}

func TestConsole_UnauthorizedForcesLogoutAndRedirect(t *testing.T) {
	b, srv := newBackend(t)
	c := newConsole(t, srv.URL, "")
	ctx := context.Background()

	_, landing, err := c.Login(ctx, "admin@hospital.in", "pw")
	require.NoError(t, err)
	b.revoke("tok-admin")

	_, v, err := c.Navigate(ctx, landing)
	require.NoError(t, err)

	select {
	case route := <-c.Redirected():
		assert.Equal(t, guard.LoginRoute, route)
	case <-time.After(time.Second):
		t.Fatal("expected a redirect to the login route")
	}
	assert.Equal(t, guard.LoginRoute, c.Route())
	_, ok := c.Session.Current()
	assert.False(t, ok)

	admin := v.(*view.AdminDashboard)
	assert.False(t, admin.Alive())
	assert.Empty(t, admin.State().Alerts)

	// 之后的导航回到登录页
	route, _, err := c.Navigate(ctx, guard.AdminRoute)
	require.NoError(t, err)
	assert.Equal(t, guard.LoginRoute, route)
}

func TestConsole_SessionSurvivesRestart(t *testing.T) {
	_, srv := newBackend(t)
	dir := t.TempDir()
	ctx := context.Background()

	first, err := New(ctx, testConfig(srv.URL, dir), zap.NewNop(), WithTransport(idleTransport{}))
	require.NoError(t, err)
	_, _, err = first.Login(ctx, "nurse@hospital.in", "pw")
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second := newConsole(t, srv.URL, dir)
	sess, ok := second.Session.Current()
	require.True(t, ok)
	assert.Equal(t, domain.RoleNurse, sess.Role)
	assert.Equal(t, "tok-nurse", second.Session.Token())

	require.NoError(t, second.Logout(ctx))
	_, ok = second.Session.Current()
	assert.False(t, ok)
}

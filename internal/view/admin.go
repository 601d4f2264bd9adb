package view

import (
	"context"

	"securehealth-console/internal/api"
	"securehealth-console/internal/domain"
	"securehealth-console/internal/events"
	"securehealth-console/internal/guard"

	"go.uber.org/zap"
)

// AlertsAPI 告警列表与处理
type AlertsAPI interface {
	ListAlerts(ctx context.Context) ([]domain.Alert, error)
	ResolveAlert(ctx context.Context, id int64) error
}

// AdminAPI 管理员首页所需接口
type AdminAPI interface {
	AlertsAPI
	ListStaff(ctx context.Context) ([]domain.StaffMember, error)
	ListLogs(ctx context.Context, q api.LogQuery) ([]domain.AuditLog, error)
}

// adminLogLimit 统计“今日日志”时拉取的条数
const adminLogLimit = 200

// AdminState 管理员首页渲染快照
type AdminState struct {
	Loaded     bool
	Connected  bool
	Staff      []domain.StaffMember
	RoleCounts map[domain.Role]int
	Alerts     []domain.Alert
	LogsToday  int
	Activity   []domain.ActivityEvent // 最新在前，最多 50 条
}

// AdminDashboard 员工、告警、今日日志数与实时活动
type AdminDashboard struct {
	base
	api AdminAPI
	sub Subscribe

	loaded        bool
	staff         []domain.StaffMember
	feed          AlertFeed
	todaySnapshot int
	todayStreamed int
	activity      *Ring[domain.ActivityEvent]
}

// NewAdminDashboard sub 为 nil 时不订阅实时事件
func NewAdminDashboard(c AdminAPI, sub Subscribe, log *zap.Logger) *AdminDashboard {
	return &AdminDashboard{
		base:     newBase(log, "admin_dashboard"),
		api:      c,
		sub:      sub,
		feed:     newAlertFeed(),
		activity: NewRing[domain.ActivityEvent](ActivityCapacity),
	}
}

func (v *AdminDashboard) Route() string { return guard.AdminRoute }

// Mount 打开实时订阅并并行拉取员工、告警与最近日志
func (v *AdminDashboard) Mount(ctx context.Context) {
	if !v.activate() {
		return
	}
	v.attach(v.sub, v.OnEvent)

	parallel(ctx,
		func(ctx context.Context) {
			staff := fetchOr(ctx, v.logger, "staff", v.api.ListStaff)
			v.update(func() { v.staff = staff })
		},
		func(ctx context.Context) {
			alerts := fetchOr(ctx, v.logger, "alerts", v.api.ListAlerts)
			v.update(func() { v.feed.SetSnapshot(alerts) })
		},
		func(ctx context.Context) {
			logs := fetchOr(ctx, v.logger, "logs", func(ctx context.Context) ([]domain.AuditLog, error) {
				return v.api.ListLogs(ctx, api.LogQuery{Limit: adminLogLimit})
			})
			today := v.now()
			n := 0
			for _, l := range logs {
				if l.Timestamp.SameDay(today) {
					n++
				}
			}
			v.update(func() { v.todaySnapshot = n })
		},
	)
	v.update(func() { v.loaded = true })
}

// OnEvent 合并一条实时事件
func (v *AdminDashboard) OnEvent(ev events.Event) {
	v.update(func() {
		switch e := ev.(type) {
		case *events.NewAlert, *events.UserLocked:
			v.feed.Apply(e)
		case *events.PatientAction:
			v.activity.Push(e.ActivityEvent)
			v.todayStreamed++
		default:
			v.logger.Debug("Ignoring live event", zap.String("event", ev.Name()))
		}
	})
}

// Resolve 先请求服务端，成功后才从本地列表移除；失败不重试
func (v *AdminDashboard) Resolve(ctx context.Context, id int64) error {
	if err := v.api.ResolveAlert(ctx, id); err != nil {
		v.logger.Warn("Resolve alert failed", zap.Int64("alert_id", id), zap.Error(err))
		return err
	}
	v.update(func() { v.feed.Resolve(id) })
	return nil
}

// State 返回渲染用副本
func (v *AdminDashboard) State() AdminState {
	v.mu.Lock()
	defer v.mu.Unlock()
	counts := make(map[domain.Role]int, len(domain.Roles))
	for _, s := range v.staff {
		counts[s.Role]++
	}
	return AdminState{
		Loaded:     v.loaded,
		Connected:  v.connected(),
		Staff:      append([]domain.StaffMember(nil), v.staff...),
		RoleCounts: counts,
		Alerts:     v.feed.Alerts(),
		LogsToday:  v.todaySnapshot + v.todayStreamed,
		Activity:   v.activity.Newest(),
	}
}

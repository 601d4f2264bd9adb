// Package guard decides whether the current session may render a route and,
// when it may not, where to send it instead.
package guard

import (
	"securehealth-console/internal/domain"
)

// 控制台路由
const (
	LoginRoute        = "/"
	AdminRoute        = "/admin"
	ThreatHunterRoute = "/admin/threat-hunter"
	AuditLogsRoute    = "/admin/audit-logs"
	DoctorRoute       = "/doctor"
	PrivacyQueryRoute = "/doctor/query"
	NurseRoute        = "/nurse"
)

// Route 路由及其允许的角色；Roles 为空表示公开路由
type Route struct {
	Path  string
	Roles []domain.Role
}

// Public 是否无需登录
func (r Route) Public() bool { return len(r.Roles) == 0 }

var routes = []Route{
	{Path: LoginRoute},
	{Path: AdminRoute, Roles: []domain.Role{domain.RoleAdmin}},
	{Path: ThreatHunterRoute, Roles: []domain.Role{domain.RoleAdmin}},
	{Path: AuditLogsRoute, Roles: []domain.Role{domain.RoleAdmin}},
	{Path: DoctorRoute, Roles: []domain.Role{domain.RoleDoctor, domain.RoleAdmin}},
	{Path: PrivacyQueryRoute, Roles: []domain.Role{domain.RoleDoctor, domain.RoleAdmin}},
	{Path: NurseRoute, Roles: []domain.Role{domain.RoleNurse}},
}

// Routes 返回路由表副本
func Routes() []Route {
	out := make([]Route, len(routes))
	copy(out, routes)
	return out
}

// Lookup 按路径查找路由
func Lookup(path string) (Route, bool) {
	for _, r := range routes {
		if r.Path == path {
			return r, true
		}
	}
	return Route{}, false
}

// HomeFor 角色的主页，也是登录后的落地页
func HomeFor(role domain.Role) string {
	switch role {
	case domain.RoleAdmin:
		return AdminRoute
	case domain.RoleDoctor:
		return DoctorRoute
	default:
		return NurseRoute
	}
}

// Decision 授权结果。Allow 为 false 时 Redirect 给出目标路由。
type Decision struct {
	Allow    bool
	Redirect string
}

func allow() Decision                { return Decision{Allow: true} }
func redirect(route string) Decision { return Decision{Redirect: route} }
func (d Decision) String() string {
	if d.Allow {
		return "allow"
	}
	return "redirect " + d.Redirect
}

// Authorize 未登录跳登录页；角色不在 required 中跳回自己的主页；否则放行。
// required 为空时只要求已登录。
func Authorize(sess *domain.Session, required ...domain.Role) Decision {
	if sess == nil {
		return redirect(LoginRoute)
	}
	if len(required) > 0 && !sess.Role.In(required...) {
		return redirect(HomeFor(sess.Role))
	}
	return allow()
}

// Resolve 按路由表授权 path；未知路径跳登录页
func Resolve(sess *domain.Session, path string) Decision {
	r, ok := Lookup(path)
	if !ok {
		return redirect(LoginRoute)
	}
	if r.Public() {
		return allow()
	}
	return Authorize(sess, r.Roles...)
}

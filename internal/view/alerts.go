package view

import (
	"securehealth-console/internal/domain"
	"securehealth-console/internal/events"
)

// AlertFeed 告警列表：快照与实时推送分开保存，展示时合并。
// 推送的告警不与快照去重，同一告警可能短暂出现两次。
type AlertFeed struct {
	snapshot []domain.Alert
	streamed []domain.Alert // 最新在前
	resolved map[int64]struct{}
}

func newAlertFeed() AlertFeed {
	return AlertFeed{resolved: make(map[int64]struct{})}
}

// SetSnapshot 替换快照部分，推送部分保留
func (f *AlertFeed) SetSnapshot(alerts []domain.Alert) {
	f.snapshot = append([]domain.Alert(nil), alerts...)
}

// Apply 处理告警类事件，返回是否改变了列表
func (f *AlertFeed) Apply(ev events.Event) bool {
	src, ok := ev.(events.AlertSource)
	if !ok {
		return false
	}
	a := src.Alert()
	f.streamed = append([]domain.Alert{a}, f.streamed...)
	return true
}

// Resolve 本地移除已处理的告警，之后到达的快照同样过滤掉
func (f *AlertFeed) Resolve(id int64) {
	f.resolved[id] = struct{}{}
	f.snapshot = withoutAlert(f.snapshot, id)
	f.streamed = withoutAlert(f.streamed, id)
}

// Alerts 推送（最新在前）+ 快照，去掉已处理的
func (f *AlertFeed) Alerts() []domain.Alert {
	out := make([]domain.Alert, 0, len(f.streamed)+len(f.snapshot))
	for _, list := range [][]domain.Alert{f.streamed, f.snapshot} {
		for _, a := range list {
			if _, done := f.resolved[a.ID]; !done {
				out = append(out, a)
			}
		}
	}
	return out
}

func withoutAlert(list []domain.Alert, id int64) []domain.Alert {
	out := list[:0:0]
	for _, a := range list {
		if a.ID != id {
			out = append(out, a)
		}
	}
	return out
}

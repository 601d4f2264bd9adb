package live

import "time"

// Timer 已调度的一次性回调
type Timer interface {
	Stop() bool
}

// Scheduler 重连定时器来源；测试中替换为手动时钟
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealScheduler 基于 time.AfterFunc 的调度器
var RealScheduler Scheduler = realScheduler{}

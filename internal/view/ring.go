package view

// ActivityCapacity 实时活动流保留条数
const ActivityCapacity = 50

// Ring 定长环形缓冲，写满后覆盖最旧的元素。
// 不自带锁，由所属视图的锁保护。
type Ring[T any] struct {
	data     []T
	capacity int
	// next 下一个写入位置
	next  int
	count int
}

// NewRing 创建容量为 capacity 的环形缓冲
func NewRing[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring[T]{data: make([]T, capacity), capacity: capacity}
}

// Push 写入一个元素
func (r *Ring[T]) Push(v T) {
	r.data[r.next] = v
	r.next = (r.next + 1) % r.capacity
	if r.count < r.capacity {
		r.count++
	}
}

// Len 当前保存的元素数
func (r *Ring[T]) Len() int { return r.count }

// Newest 按最新在前返回副本
func (r *Ring[T]) Newest() []T {
	out := make([]T, r.count)
	for i := 0; i < r.count; i++ {
		pos := (r.next - 1 - i + r.capacity) % r.capacity
		out[i] = r.data[pos]
	}
	return out
}
